package jq

import (
	"reflect"
	"sort"
	"strings"

	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/logger"
)

// Handler handles an event. this is the element the handler runs for:
// the current target for direct bindings, the matched descendant for
// delegated ones.
type Handler interface {
	Handle(this *dom.Element, ev *dom.Event)
}

type funcHandler struct {
	f func(this *dom.Element, ev *dom.Event)
}

func (h *funcHandler) Handle(this *dom.Element, ev *dom.Event) {
	h.f(this, ev)
}

// Func turns f into a Handler. Handlers are removed by identity, so keep
// the returned value around to unbind it later.
func Func(f func(this *dom.Element, ev *dom.Event)) Handler {
	return &funcHandler{f: f}
}

func sameHandler(a, b Handler) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

type registration struct {
	listener  *listener
	namespace string
	original  Handler
	selector  string
	delegate  bool
}

// Registration describes one binding made through On or Delegate.
type Registration struct {
	Type      string
	Namespace string
	Selector  string
	Delegate  bool
	Handler   Handler
}

// listener is what gets installed on the element.
type listener struct {
	el  *dom.Element
	reg *registration
}

func (l *listener) HandleEvent(ev *dom.Event) {
	r := l.reg
	if !r.delegate {
		r.original.Handle(ev.CurrentTarget, ev)
		return
	}
	if ev.Target == nil {
		return
	}
	match, err := ev.Target.Closest(r.selector)
	if err != nil {
		log.Errorf("delegate %v: %v", r.selector, err)
		return
	}
	if match != nil && l.el.Contains(match) {
		r.original.Handle(match, ev)
	}
}

// Router keeps the registrations per element and event type. Entries
// are deleted as soon as they are empty.
type Router struct {
	table map[*dom.Element]map[string][]*registration
}

func NewRouter() *Router {
	return &Router{
		table: make(map[*dom.Element]map[string][]*registration),
	}
}

type evType struct {
	typ string
	ns  string
}

// parseTypes splits "click.a keyup" into type and namespace pairs.
func parseTypes(types string) (ts []evType) {
	for _, f := range strings.Fields(types) {
		parts := strings.Split(f, ".")
		t := evType{typ: parts[0]}
		if len(parts) > 1 {
			t.ns = parts[1]
		}
		ts = append(ts, t)
	}
	return
}

func (r *Router) bind(el *dom.Element, t evType, sel string, delegate bool, h Handler) {
	if t.typ == "" {
		log.Errorf("bind %v: missing event type", el)
		return
	}
	reg := &registration{
		namespace: t.ns,
		original:  h,
		selector:  sel,
		delegate:  delegate,
	}
	reg.listener = &listener{el: el, reg: reg}
	types, ok := r.table[el]
	if !ok {
		types = make(map[string][]*registration)
		r.table[el] = types
	}
	types[t.typ] = append(types[t.typ], reg)
	el.AddEventListener(t.typ, reg.listener)
}

// unbind removes the registrations of el for t.typ passing all given
// filters. An empty namespace, selector or nil handler does not filter.
// A pair without type matches no registration.
func (r *Router) unbind(el *dom.Element, t evType, sel string, h Handler) {
	types, ok := r.table[el]
	if !ok {
		return
	}
	regs, ok := types[t.typ]
	if !ok {
		return
	}
	var kept []*registration
	for _, reg := range regs {
		if t.ns != "" && reg.namespace != t.ns {
			kept = append(kept, reg)
			continue
		}
		if sel != "" && (!reg.delegate || reg.selector != sel) {
			kept = append(kept, reg)
			continue
		}
		if h != nil && !sameHandler(reg.original, h) {
			kept = append(kept, reg)
			continue
		}
		el.RemoveEventListener(t.typ, reg.listener)
	}
	if len(kept) > 0 {
		types[t.typ] = kept
	} else {
		delete(types, t.typ)
	}
	if len(types) == 0 {
		delete(r.table, el)
	}
}

// Registrations lists the bindings of el for typ in registration order,
// or for all types sorted by type when typ is empty.
func (r *Router) Registrations(el *dom.Element, typ string) (rs []Registration) {
	types := r.table[el]
	names := []string{typ}
	if typ == "" {
		names = names[:0]
		for t := range types {
			names = append(names, t)
		}
		sort.Strings(names)
	}
	for _, t := range names {
		for _, reg := range types[t] {
			rs = append(rs, Registration{
				Type:      t,
				Namespace: reg.namespace,
				Selector:  reg.selector,
				Delegate:  reg.delegate,
				Handler:   reg.original,
			})
		}
	}
	return
}

// Holds reports whether any element still has a registration of h.
func (r *Router) Holds(h Handler) bool {
	for _, types := range r.table {
		for _, regs := range types {
			for _, reg := range regs {
				if sameHandler(reg.original, h) {
					return true
				}
			}
		}
	}
	return false
}

// Len is the number of elements with registrations.
func (r *Router) Len() int {
	return len(r.table)
}

// Forget uninstalls and drops every registration of el and its
// descendants.
func (r *Router) Forget(el *dom.Element) {
	for x, types := range r.table {
		if !el.Contains(x) {
			continue
		}
		for typ, regs := range types {
			for _, reg := range regs {
				x.RemoveEventListener(typ, reg.listener)
			}
		}
		delete(r.table, x)
	}
}

// On binds h directly to every element for each of the space separated
// types. A type may carry a namespace as in "click.menu".
func (c *Collection) On(types string, h Handler) *Collection {
	if h == nil {
		log.Errorf("on %v: nil handler", types)
		return c
	}
	for _, el := range c.els {
		for _, t := range parseTypes(types) {
			c.q.router.bind(el, t, "", false, h)
		}
	}
	return c
}

// Delegate binds h to every element such that it runs for events whose
// target is or is inside a descendant matching sel.
func (c *Collection) Delegate(types, sel string, h Handler) *Collection {
	if h == nil || sel == "" {
		log.Errorf("delegate %v: need selector and handler", types)
		return c
	}
	for _, el := range c.els {
		for _, t := range parseTypes(types) {
			c.q.router.bind(el, t, sel, true, h)
		}
	}
	return c
}

// Off removes all bindings of the given types, restricted to a namespace
// if one is given. A namespace without type removes nothing.
func (c *Collection) Off(types string) *Collection {
	return c.off(types, "", nil)
}

// OffHandler removes the bindings of h for the given types, direct and
// delegated ones.
func (c *Collection) OffHandler(types string, h Handler) *Collection {
	return c.off(types, "", h)
}

// Undelegate removes delegated bindings for sel. A nil h removes them
// regardless of handler.
func (c *Collection) Undelegate(types, sel string, h Handler) *Collection {
	return c.off(types, sel, h)
}

func (c *Collection) off(types, sel string, h Handler) *Collection {
	for _, el := range c.els {
		for _, t := range parseTypes(types) {
			c.q.router.unbind(el, t, sel, h)
		}
	}
	return c
}
