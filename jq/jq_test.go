package jq

import (
	"sort"
	"testing"
	"time"

	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/logger"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Debug = true
}

const htm = `
<html>
<body>
<div class="wrap" id="w">
  <button class="btn" id="b1">OK</button>
  <span><i class="btn" id="b2">icon</i></span>
</div>
<button class="btn" id="outside">Out</button>
<ul id="list"><li>a</li><li class="sel">b</li><li>c</li></ul>
<input id="name" value="joe">
</body>
</html>
`

func newQuery(t *testing.T, opts ...Option) *Query {
	d, err := dom.Parse(htm)
	require.NoError(t, err)
	return New(d, opts...)
}

func ids(c *Collection) (res []string) {
	c.ForEach(func(_ int, el *dom.Element) {
		res = append(res, el.ID())
	})
	return
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler runs timers only when advanced.
type fakeScheduler struct {
	base   time.Time
	now    time.Duration
	timers []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Now() time.Time {
	return s.base.Add(s.now)
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.now += d
	for {
		sort.SliceStable(s.timers, func(i, j int) bool { return s.timers[i].at < s.timers[j].at })
		var due *fakeTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && t.at <= s.now {
				due = t
				break
			}
		}
		if due == nil {
			return
		}
		due.fired = true
		due.f()
	}
}

func (s *fakeScheduler) pending() (n int) {
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return
}
