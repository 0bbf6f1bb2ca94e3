package runner

import (
	"strconv"
	"time"

	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/jq"
	"github.com/psilva261/minjq/logger"
	"github.com/psilva261/sparkle/js"
)

// collSym keys the Go collection behind a wrapped object.
var collSym = js.NewSymbol("minjq.collection")

type jsHandler struct {
	r  *Runner
	fn js.Callable
}

func (h *jsHandler) Handle(this *dom.Element, ev *dom.Event) {
	vm := h.r.vm
	if _, err := h.fn(vm.ToValue(this), vm.ToValue(ev)); err != nil {
		log.Errorf("%v handler: %v", ev.Type, err)
	}
}

// handler returns the Handler registered for the JS function v. With
// create unset an unknown function yields nil. isFn reports whether v
// is a function at all. Entries live until off, offAll or remove leave
// no binding of the function.
func (r *Runner) handler(v js.Value, create bool) (h jq.Handler, isFn bool) {
	o, ok := v.(*js.Object)
	if !ok {
		return nil, false
	}
	fn, ok := js.AssertFunction(o)
	if !ok {
		return nil, false
	}
	if h, ok := r.handlers[o]; ok {
		return h, true
	}
	if !create {
		return nil, true
	}
	h = &jsHandler{r: r, fn: fn}
	r.handlers[o] = h
	return h, true
}

// prune drops the functions no element is bound to any more.
func (r *Runner) prune() {
	for o, h := range r.handlers {
		if !r.q.Router().Holds(h) {
			delete(r.handlers, o)
		}
	}
}

func absent(v js.Value) bool {
	return v == nil || js.IsUndefined(v) || js.IsNull(v)
}

func isString(v js.Value) bool {
	if absent(v) {
		return false
	}
	_, ok := v.Export().(string)
	return ok
}

func (r *Runner) collection(o *js.Object) *jq.Collection {
	v := o.GetSymbol(collSym)
	if absent(v) {
		return nil
	}
	c, _ := v.Export().(*jq.Collection)
	return c
}

// descriptor converts a script value into a jq.Descriptor.
func (r *Runner) descriptor(v js.Value) jq.Descriptor {
	if absent(v) {
		return nil
	}
	if o, ok := v.(*js.Object); ok {
		if c := r.collection(o); c != nil {
			return c
		}
	}
	switch x := v.Export().(type) {
	case []interface{}:
		els := make([]*dom.Element, 0, len(x))
		for _, e := range x {
			if el, ok := e.(*dom.Element); ok {
				els = append(els, el)
			}
		}
		return jq.Nodes(els...)
	default:
		return jq.From(x)
	}
}

func millis(v js.Value) time.Duration {
	if absent(v) {
		return 0
	}
	return time.Duration(v.ToInteger()) * time.Millisecond
}

// delay is the throttle or debounce delay in v, jq.DefaultDelay if
// omitted.
func delay(v js.Value) time.Duration {
	if absent(v) {
		return jq.DefaultDelay
	}
	return millis(v)
}

func (r *Runner) dollar() *js.Object {
	vm := r.vm
	d := vm.ToValue(func(call js.FunctionCall) js.Value {
		var ctx []jq.Descriptor
		if len(call.Arguments) > 1 {
			ctx = append(ctx, r.descriptor(call.Argument(1)))
		}
		return r.wrap(r.q.Select(r.descriptor(call.Argument(0)), ctx...))
	}).(*js.Object)

	d.Set("one", func(call js.FunctionCall) js.Value {
		var ctx []jq.Descriptor
		if len(call.Arguments) > 1 {
			ctx = append(ctx, r.descriptor(call.Argument(1)))
		}
		el, ok := r.q.One(r.descriptor(call.Argument(0)), ctx...)
		if !ok {
			return js.Null()
		}
		return vm.ToValue(el)
	})

	d.Set("ready", func(call js.FunctionCall) js.Value {
		fn, ok := js.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("ready: not a function"))
		}
		timeout := millis(call.Argument(1))
		if timeout <= 0 {
			timeout = jq.DefaultReadyTimeout
		}
		p, resolve, reject := vm.NewPromise()
		ch := r.q.Ready(func() {
			if _, err := fn(js.Undefined()); err != nil {
				panic(err)
			}
		}, timeout)
		go func() {
			err := <-ch
			r.loop.RunOnLoop(func(*js.Runtime) {
				if err != nil {
					log.Errorf("ready: %v", err)
					reject(vm.NewGoError(err))
				} else {
					resolve(js.Undefined())
				}
			})
		}()
		return vm.ToValue(p)
	})

	return d
}

// index mirrors the members of c as indexed properties of o.
func (r *Runner) index(o *js.Object, c *jq.Collection) {
	o.Set("length", c.Len())
	c.ForEach(func(i int, el *dom.Element) {
		o.Set(strconv.Itoa(i), el)
	})
}

func (r *Runner) wrap(c *jq.Collection) *js.Object {
	vm := r.vm
	o := vm.NewObject()
	if err := o.SetSymbol(collSym, c); err != nil {
		log.Errorf("wrap: %v", err)
	}
	r.index(o, c)

	chain := func(f func(call js.FunctionCall)) func(js.FunctionCall) js.Value {
		return func(call js.FunctionCall) js.Value {
			f(call)
			return o
		}
	}
	str := func(call js.FunctionCall, i int) string {
		if absent(call.Argument(i)) {
			return ""
		}
		return call.Argument(i).String()
	}
	get := func(v string, ok bool) js.Value {
		if !ok {
			return js.Undefined()
		}
		return vm.ToValue(v)
	}
	mustFn := func(name string, v js.Value) jq.Handler {
		h, isFn := r.handler(v, true)
		if !isFn {
			log.Errorf("%v: handler is not a function", name)
		}
		return h
	}
	// throttled and debounced bindings wrap the handler and cannot be
	// removed by function, so they are not kept in r.handlers
	wrapFn := func(name string, v js.Value) jq.Handler {
		fn, ok := js.AssertFunction(v)
		if !ok {
			log.Errorf("%v: handler is not a function", name)
			return nil
		}
		return &jsHandler{r: r, fn: fn}
	}

	o.Set("forEach", chain(func(call js.FunctionCall) {
		fn, ok := js.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("forEach: not a function"))
		}
		c.ForEach(func(i int, el *dom.Element) {
			if _, err := fn(js.Undefined(), vm.ToValue(el), vm.ToValue(i)); err != nil {
				panic(err)
			}
		})
	}))
	o.Set("eq", func(call js.FunctionCall) js.Value {
		return r.wrap(c.Eq(int(call.Argument(0).ToInteger())))
	})
	o.Set("find", func(call js.FunctionCall) js.Value {
		return r.wrap(c.Find(str(call, 0)))
	})
	o.Set("index", func(call js.FunctionCall) js.Value {
		return vm.ToValue(c.Index())
	})

	o.Set("addClass", chain(func(call js.FunctionCall) { c.AddClass(str(call, 0)) }))
	o.Set("removeClass", chain(func(call js.FunctionCall) { c.RemoveClass(str(call, 0)) }))
	o.Set("toggleClass", chain(func(call js.FunctionCall) { c.ToggleClass(str(call, 0)) }))
	o.Set("hasClass", func(call js.FunctionCall) js.Value {
		return vm.ToValue(c.HasClass(str(call, 0)))
	})

	o.Set("css", chain(func(call js.FunctionCall) {
		if absent(call.Argument(0)) {
			return
		}
		obj := call.Argument(0).ToObject(vm)
		props := make(map[string]string)
		for _, k := range obj.Keys() {
			props[k] = obj.Get(k).String()
		}
		c.CSS(props)
	}))
	o.Set("show", chain(func(js.FunctionCall) { c.Show() }))
	o.Set("hide", chain(func(js.FunctionCall) { c.Hide() }))

	o.Set("html", func(call js.FunctionCall) js.Value {
		if len(call.Arguments) == 0 {
			el, ok := c.First()
			if !ok {
				return js.Undefined()
			}
			return vm.ToValue(el.InnerHTML())
		}
		c.HTML(str(call, 0))
		return o
	})
	o.Set("append", chain(func(call js.FunctionCall) { c.Append(r.descriptor(call.Argument(0))) }))
	o.Set("remove", chain(func(js.FunctionCall) {
		c.Remove()
		r.prune()
	}))
	o.Set("offAll", chain(func(js.FunctionCall) {
		c.OffAll()
		r.index(o, c)
		r.prune()
	}))

	o.Set("val", func(call js.FunctionCall) js.Value {
		if len(call.Arguments) == 0 {
			return get(c.Val())
		}
		c.SetVal(str(call, 0))
		return o
	})
	o.Set("attr", func(call js.FunctionCall) js.Value {
		a := call.Argument(0)
		if ao, ok := a.(*js.Object); ok && !isString(a) {
			attrs := make(map[string]string)
			for _, k := range ao.Keys() {
				attrs[k] = ao.Get(k).String()
			}
			c.SetAttrs(attrs)
			return o
		}
		if len(call.Arguments) < 2 {
			v, ok := c.Attr(str(call, 0))
			if !ok {
				return js.Null()
			}
			return vm.ToValue(v)
		}
		c.SetAttr(str(call, 0), str(call, 1))
		return o
	})
	o.Set("data", func(call js.FunctionCall) js.Value {
		if len(call.Arguments) < 2 {
			return get(c.Data(str(call, 0)))
		}
		c.SetData(str(call, 0), str(call, 1))
		return o
	})

	o.Set("on", chain(func(call js.FunctionCall) {
		types := str(call, 0)
		if isString(call.Argument(1)) {
			c.Delegate(types, str(call, 1), mustFn("on", call.Argument(2)))
		} else {
			c.On(types, mustFn("on", call.Argument(1)))
		}
	}))
	o.Set("off", chain(func(call js.FunctionCall) {
		types := str(call, 0)
		switch {
		case isString(call.Argument(1)):
			h, isFn := r.handler(call.Argument(2), false)
			if isFn && h == nil {
				return
			}
			c.Undelegate(types, str(call, 1), h)
		default:
			h, isFn := r.handler(call.Argument(1), false)
			if !isFn {
				c.Off(types)
			} else if h != nil {
				c.OffHandler(types, h)
			}
		}
		r.prune()
	}))
	o.Set("click", chain(func(call js.FunctionCall) {
		if len(call.Arguments) == 0 {
			c.Trigger("click")
			return
		}
		c.Click(mustFn("click", call.Argument(0)))
	}))
	o.Set("trigger", chain(func(call js.FunctionCall) { c.Trigger(str(call, 0)) }))
	o.Set("throttle", chain(func(call js.FunctionCall) {
		c.Throttle(str(call, 0), wrapFn("throttle", call.Argument(1)), delay(call.Argument(2)))
	}))
	o.Set("debounce", chain(func(call js.FunctionCall) {
		c.Debounce(str(call, 0), wrapFn("debounce", call.Argument(1)), delay(call.Argument(2)))
	}))

	return o
}
