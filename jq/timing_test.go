package jq

import (
	"testing"
	"time"

	"github.com/psilva261/minjq/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeQuery(t *testing.T) (*Query, *fakeScheduler) {
	s := newFakeScheduler()
	return newQuery(t, WithScheduler(s), WithClock(s.Now)), s
}

func recv(t *testing.T, ch <-chan error) (error, bool) {
	select {
	case err := <-ch:
		return err, true
	default:
		return nil, false
	}
}

func TestReadyOnContentLoaded(t *testing.T) {
	q, s := newFakeQuery(t)
	n := 0
	ch := q.Ready(func() { n++ }, time.Second)
	_, ok := recv(t, ch)
	require.False(t, ok)

	q.Document().Close()
	assert.Equal(t, 1, n)
	err, ok := recv(t, ch)
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.pending(), "timeout timer stopped")
	assert.Equal(t, 0, q.Document().Element().NumListeners("DOMContentLoaded"))
}

func TestReadyAlreadyLoaded(t *testing.T) {
	q, s := newFakeQuery(t)
	q.Document().Close()
	n := 0
	ch := q.Ready(func() { n++ }, 0)
	assert.Equal(t, 0, n, "runs on a later turn")
	s.Advance(0)
	assert.Equal(t, 1, n)
	err, ok := recv(t, ch)
	require.True(t, ok)
	assert.NoError(t, err)
}

func TestReadyTimeout(t *testing.T) {
	q, s := newFakeQuery(t)
	n := 0
	ch := q.Ready(func() { n++ }, time.Second)
	s.Advance(999 * time.Millisecond)
	_, ok := recv(t, ch)
	require.False(t, ok)
	s.Advance(time.Millisecond)
	err, ok := recv(t, ch)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrReadyTimeout)

	q.Document().Close()
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, q.Document().Element().NumListeners("DOMContentLoaded"))
}

func TestReadyPanic(t *testing.T) {
	q, _ := newFakeQuery(t)
	ch := q.Ready(func() { panic("boom") }, time.Second)
	q.Document().Close()
	err, ok := recv(t, ch)
	require.True(t, ok)
	assert.Error(t, err)
}

func TestThrottle(t *testing.T) {
	q, s := newFakeQuery(t)
	var r recorder
	c := q.Select(Selector(".btn")).Throttle("click", r.handler("h"), 100*time.Millisecond)
	click(t, q, "b1")
	click(t, q, "outside")
	s.Advance(99 * time.Millisecond)
	click(t, q, "b1")
	s.Advance(time.Millisecond)
	click(t, q, "outside")
	assert.Equal(t, []string{"h:b1", "h:outside"}, r.calls)

	regs := q.Router().Registrations(c.els[0], "click")
	require.Len(t, regs, 1)
}

func TestDebounce(t *testing.T) {
	q, s := newFakeQuery(t)
	var r recorder
	q.Select(Selector("#name")).Debounce("input", r.handler("h"), DefaultDelay)
	el, _ := q.One(Selector("#name"))
	for i := 0; i < 3; i++ {
		el.DispatchEvent(dom.NewEvent("input", dom.EventInit{Bubbles: true}))
		s.Advance(DefaultDelay / 2)
	}
	assert.Empty(t, r.calls)
	s.Advance(DefaultDelay / 2)
	assert.Equal(t, []string{"h:name"}, r.calls)
	s.Advance(time.Hour)
	assert.Len(t, r.calls, 1)
}

func TestThrottleZeroDelay(t *testing.T) {
	q, _ := newFakeQuery(t)
	var r recorder
	q.Select(Selector("#b1")).Throttle("click", r.handler("h"), 0)
	click(t, q, "b1")
	click(t, q, "b1")
	assert.Equal(t, []string{"h:b1", "h:b1"}, r.calls)
}

func TestDebounceZeroDelay(t *testing.T) {
	q, s := newFakeQuery(t)
	var r recorder
	q.Select(Selector("#b1")).Debounce("click", r.handler("h"), 0)
	click(t, q, "b1")
	click(t, q, "b1")
	assert.Empty(t, r.calls, "runs on a later turn")
	s.Advance(0)
	assert.Equal(t, []string{"h:b1"}, r.calls)
}
