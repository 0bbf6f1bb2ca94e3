package jq

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/psilva261/minjq/dom"
)

// DefaultDelay is the throttle and debounce delay scripts get when they
// omit one.
const DefaultDelay = 250 * time.Millisecond

const DefaultReadyTimeout = 5 * time.Second

var ErrReadyTimeout = errors.New("DOM ready timeout")

// Ready runs fn once the document is parsed. The returned channel gets
// nil after fn ran, ErrReadyTimeout if DOMContentLoaded did not fire
// within timeout, or the panic of fn as error. fn never runs after a
// timeout.
func (q *Query) Ready(fn func(), timeout time.Duration) <-chan error {
	res := make(chan error, 1)
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	run := func() {
		defer close(res)
		defer func() {
			if r := recover(); r != nil {
				res <- errors.Errorf("ready callback: %v", r)
			}
		}()
		fn()
		res <- nil
	}
	switch q.doc.ReadyState() {
	case dom.Interactive, dom.Complete:
		q.sched.AfterFunc(0, run)
		return res
	}

	var mu sync.Mutex
	settled := false
	claim := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if settled {
			return false
		}
		settled = true
		return true
	}
	doc := q.doc.Element()
	timer := q.sched.AfterFunc(timeout, func() {
		if claim() {
			res <- ErrReadyTimeout
			close(res)
		}
	})
	var l dom.EventListener
	l = dom.Listener(func(*dom.Event) {
		doc.RemoveEventListener("DOMContentLoaded", l)
		if !claim() {
			return
		}
		timer.Stop()
		run()
	})
	doc.AddEventListener("DOMContentLoaded", l)
	return res
}

// Throttle binds h for types so that it runs at most once per delay,
// counted over all members together. A delay of zero does not limit.
func (c *Collection) Throttle(types string, h Handler, delay time.Duration) *Collection {
	if h == nil {
		return c.On(types, nil)
	}
	var last time.Time
	return c.On(types, Func(func(this *dom.Element, ev *dom.Event) {
		now := c.q.now()
		if last.IsZero() || now.Sub(last) >= delay {
			last = now
			h.Handle(this, ev)
		}
	}))
}

// Debounce binds h for types so that it runs delay after the last event
// of a burst, counted over all members together. A delay of zero runs h
// on the next turn of the scheduler.
func (c *Collection) Debounce(types string, h Handler, delay time.Duration) *Collection {
	if h == nil {
		return c.On(types, nil)
	}
	var timer Timer
	return c.On(types, Func(func(this *dom.Element, ev *dom.Event) {
		if timer != nil {
			timer.Stop()
		}
		timer = c.q.sched.AfterFunc(delay, func() {
			h.Handle(this, ev)
		})
	}))
}
