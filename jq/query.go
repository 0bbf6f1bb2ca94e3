// Package jq builds chainable element collections over a dom.Document and
// routes events onto them with namespaces and selector delegation.
package jq

import (
	"time"

	"github.com/psilva261/minjq/dom"
)

// Scheduler runs f after d. Implementations must run f in the same
// serialized context that owns the document, e.g. an event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(q *Query)

// WithScheduler sets the scheduler used by Ready and Debounce. The default
// is time.AfterFunc, which runs f on its own goroutine.
func WithScheduler(s Scheduler) Option {
	return func(q *Query) {
		q.sched = s
	}
}

// WithClock sets the time source used by Throttle.
func WithClock(now func() time.Time) Option {
	return func(q *Query) {
		q.now = now
	}
}

// Query is bound to one document and owns the event router for the
// collections it builds.
type Query struct {
	doc    *dom.Document
	router *Router
	sched  Scheduler
	now    func() time.Time
}

func New(d *dom.Document, opts ...Option) *Query {
	q := &Query{
		doc:    d,
		router: NewRouter(),
		sched:  timeScheduler{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *Query) Document() *dom.Document {
	return q.doc
}

func (q *Query) Router() *Router {
	return q.router
}
