package dom

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/psilva261/minjq/logger"
	"golang.org/x/net/html"
)

type Phase int

const (
	EvPhNone Phase = iota
	EvPhCapturing
	EvPhAtTarget
	EvPhBubbling
)

type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Detail     any
}

// Event is dispatched through DispatchEvent. The json tags name the
// fields for script runtimes.
type Event struct {
	Type             string   `json:"type"`
	Target           *Element `json:"target"`
	CurrentTarget    *Element `json:"currentTarget"`
	Phase            Phase    `json:"eventPhase"`
	Bubbles          bool     `json:"bubbles"`
	Cancelable       bool     `json:"cancelable"`
	DefaultPrevented bool     `json:"defaultPrevented"`
	Detail           any      `json:"detail"`

	dispatching        bool
	propagationStopped bool
	immediateStopped   bool
}

func NewEvent(t string, init EventInit) *Event {
	return &Event{
		Type:       t,
		Bubbles:    init.Bubbles,
		Cancelable: init.Cancelable,
		Detail:     init.Detail,
	}
}

func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.DefaultPrevented = true
	}
}

func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediateStopped = true
}

func (e *Event) String() string {
	return fmt.Sprintf("%v event on %v", e.Type, e.Target)
}

type EventListener interface {
	HandleEvent(e *Event)
}

type funcListener struct {
	f func(*Event)
}

func (l *funcListener) HandleEvent(e *Event) {
	l.f(e)
}

// Listener wraps f. Every call returns a distinct listener.
func Listener(f func(*Event)) EventListener {
	return &funcListener{f: f}
}

type listener struct {
	l       EventListener
	removed bool
}

func sameListener(a, b EventListener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// AddEventListener registers l for type t. Adding the same listener twice
// has no effect.
func (el *Element) AddEventListener(t string, l EventListener) {
	if l == nil {
		return
	}
	for _, x := range el.listeners[t] {
		if sameListener(x.l, l) {
			return
		}
	}
	if el.listeners == nil {
		el.listeners = make(map[string][]*listener)
	}
	el.listeners[t] = append(el.listeners[t], &listener{l: l})
}

func (el *Element) RemoveEventListener(t string, l EventListener) {
	ls := el.listeners[t]
	for i, x := range ls {
		if sameListener(x.l, l) {
			x.removed = true
			rest := make([]*listener, 0, len(ls)-1)
			rest = append(rest, ls[:i]...)
			rest = append(rest, ls[i+1:]...)
			if len(rest) == 0 {
				delete(el.listeners, t)
			} else {
				el.listeners[t] = rest
			}
			return
		}
	}
}

// NumListeners counts the listeners registered for type t.
func (el *Element) NumListeners(t string) int {
	return len(el.listeners[t])
}

// DispatchEvent runs the listeners of el and, if e bubbles, those of its
// ancestors up to the document and the window. It returns false if a
// listener canceled the event.
func (el *Element) DispatchEvent(e *Event) bool {
	if e.dispatching {
		log.Errorf("dispatch %v: already dispatching", e)
		return false
	}
	e.dispatching = true
	e.propagationStopped = false
	e.immediateStopped = false
	e.Target = el
	for i, cur := range el.eventPath() {
		if i == 0 {
			e.Phase = EvPhAtTarget
		} else if e.Bubbles {
			e.Phase = EvPhBubbling
		} else {
			break
		}
		cur.invoke(e)
		if e.propagationStopped {
			break
		}
	}
	e.Phase = EvPhNone
	e.CurrentTarget = nil
	e.dispatching = false
	return !e.DefaultPrevented
}

func (el *Element) eventPath() (path []*Element) {
	if el.win {
		return []*Element{el}
	}
	n := el.n
	for ; n != nil; n = n.Parent {
		path = append(path, el.d.getEl(n))
		if n.Parent == nil {
			break
		}
	}
	if n != nil && n == el.d.doc && n.Type == html.DocumentNode {
		path = append(path, el.d.win)
	}
	return
}

func (el *Element) invoke(e *Event) {
	ls := el.listeners[e.Type]
	if len(ls) == 0 {
		return
	}
	snapshot := append([]*listener(nil), ls...)
	e.CurrentTarget = el
	for _, x := range snapshot {
		if x.removed {
			continue
		}
		call(x.l, e)
		if e.immediateStopped {
			return
		}
	}
}

func call(l EventListener, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("listener for %v panicked: %v", e, r)
			log.Printf("%s", debug.Stack())
		}
	}()
	l.HandleEvent(e)
}
