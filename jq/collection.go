package jq

import (
	"sort"

	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/logger"
)

// Collection is an ordered view over elements. Members are not owned and
// may be detached by other code at any time.
//
// Mutators apply to every member and return the receiver. Getters read
// the first member and report absence instead of failing on an empty
// collection.
type Collection struct {
	q   *Query
	els []*dom.Element
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.els)
}

func (c *Collection) At(i int) (*dom.Element, bool) {
	if i < 0 || i >= c.Len() {
		return nil, false
	}
	return c.els[i], true
}

// Set replaces the member at i. Out of range indices and nil elements
// are ignored.
func (c *Collection) Set(i int, el *dom.Element) *Collection {
	if i < 0 || i >= c.Len() {
		log.Errorf("set %v: index out of range", i)
		return c
	}
	if el == nil {
		log.Errorf("set %v: nil element", i)
		return c
	}
	c.els[i] = el
	return c
}

func (c *Collection) First() (*dom.Element, bool) {
	return c.At(0)
}

// Elements returns a copy of the members.
func (c *Collection) Elements() []*dom.Element {
	if c == nil {
		return nil
	}
	return append([]*dom.Element(nil), c.els...)
}

func (c *Collection) ForEach(f func(i int, el *dom.Element)) *Collection {
	for i, el := range c.els {
		f(i, el)
	}
	return c
}

func (c *Collection) Query() *Query {
	return c.q
}

// Find selects the descendants of the first member matching sel.
func (c *Collection) Find(sel string) *Collection {
	return c.q.Select(Selector(sel), c)
}

// Eq is the collection of the i-th member, empty when out of range.
func (c *Collection) Eq(i int) *Collection {
	el, _ := c.At(i)
	return c.q.Select(Node(el))
}

func (c *Collection) AddClass(cls string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.AddClass(cls) })
}

func (c *Collection) RemoveClass(cls string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.RemoveClass(cls) })
}

func (c *Collection) ToggleClass(cls string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.ToggleClass(cls) })
}

func (c *Collection) HasClass(cls string) bool {
	el, ok := c.First()
	return ok && el.HasClass(cls)
}

// CSS sets inline style properties, in sorted key order.
func (c *Collection) CSS(props map[string]string) *Collection {
	ks := make([]string, 0, len(props))
	for k := range props {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return c.ForEach(func(_ int, el *dom.Element) {
		s := el.Style()
		for _, k := range ks {
			s.Set(k, props[k])
		}
	})
}

func (c *Collection) Show() *Collection {
	return c.CSS(map[string]string{"display": "block"})
}

func (c *Collection) Hide() *Collection {
	return c.CSS(map[string]string{"display": "none"})
}

func (c *Collection) HTML(h string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) {
		if err := el.SetInnerHTML(h); err != nil {
			log.Errorf("html: %v", err)
		}
	})
}

// Append appends the first element of desc to every member. As a node
// has one parent, it ends up under the last member.
func (c *Collection) Append(desc Descriptor) *Collection {
	child, ok := c.q.One(desc)
	if !ok {
		log.Errorf("append: %v has no element", describe(desc))
		return c
	}
	return c.ForEach(func(_ int, el *dom.Element) {
		if _, err := el.AppendChild(child); err != nil {
			log.Errorf("append: %v", err)
		}
	})
}

// Remove detaches the members and drops their event bindings.
func (c *Collection) Remove() *Collection {
	return c.ForEach(func(_ int, el *dom.Element) {
		c.q.router.Forget(el)
		el.Remove()
	})
}

// OffAll replaces each attached member by a deep clone, which carries
// no listeners. The receiver then holds the clones.
func (c *Collection) OffAll() *Collection {
	return c.ForEach(func(i int, el *dom.Element) {
		p := el.Parent()
		if p == nil {
			log.Errorf("off all: %v is detached", el)
			return
		}
		clone := el.CloneNode(true)
		if _, err := p.ReplaceChild(clone, el); err != nil {
			log.Errorf("off all: %v", err)
			return
		}
		c.q.router.Forget(el)
		c.els[i] = clone
	})
}

func (c *Collection) Index() int {
	el, ok := c.First()
	if !ok {
		return -1
	}
	p := el.Parent()
	if p == nil {
		return -1
	}
	for i, ch := range p.Children() {
		if ch == el {
			return i
		}
	}
	return -1
}

func (c *Collection) Val() (string, bool) {
	el, ok := c.First()
	if !ok {
		return "", false
	}
	return el.Value(), true
}

func (c *Collection) SetVal(v string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.SetValue(v) })
}

func (c *Collection) Attr(k string) (string, bool) {
	el, ok := c.First()
	if !ok {
		return "", false
	}
	return el.Attr(k)
}

func (c *Collection) SetAttr(k, v string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.SetAttribute(k, v) })
}

// SetAttrs sets attributes in sorted key order.
func (c *Collection) SetAttrs(attrs map[string]string) *Collection {
	ks := make([]string, 0, len(attrs))
	for k := range attrs {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	for _, k := range ks {
		c.SetAttr(k, attrs[k])
	}
	return c
}

func (c *Collection) Data(k string) (string, bool) {
	el, ok := c.First()
	if !ok {
		return "", false
	}
	return el.Data(k)
}

func (c *Collection) SetData(k, v string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) { el.SetData(k, v) })
}

// Click binds h to click.
func (c *Collection) Click(h Handler) *Collection {
	return c.On("click", h)
}

// Trigger dispatches a bubbling, cancelable event of type typ on every
// member. click is dispatched as a user click.
func (c *Collection) Trigger(typ string) *Collection {
	return c.ForEach(func(_ int, el *dom.Element) {
		if typ == "click" {
			el.Click()
			return
		}
		el.DispatchEvent(dom.NewEvent(typ, dom.EventInit{Bubbles: true, Cancelable: true}))
	})
}
