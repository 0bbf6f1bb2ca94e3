package jq

import (
	"testing"

	"github.com/psilva261/minjq/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutatorsReturnReceiver(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector("li"))
	before := c.Elements()
	h := Func(func(*dom.Element, *dom.Event) {})
	for name, res := range map[string]*Collection{
		"AddClass":    c.AddClass("x"),
		"RemoveClass": c.RemoveClass("x"),
		"ToggleClass": c.ToggleClass("y"),
		"CSS":         c.CSS(map[string]string{"color": "red"}),
		"Show":        c.Show(),
		"Hide":        c.Hide(),
		"SetAttr":     c.SetAttr("title", "t"),
		"SetAttrs":    c.SetAttrs(map[string]string{"a": "1"}),
		"SetVal":      c.SetVal("v"),
		"SetData":     c.SetData("k", "v"),
		"On":          c.On("click", h),
		"Delegate":    c.Delegate("click", "b", h),
		"Off":         c.Off("click"),
		"OffHandler":  c.OffHandler("click", h),
		"Undelegate":  c.Undelegate("click", "b", nil),
		"Click":       c.Click(h),
		"Trigger":     c.Trigger("custom"),
		"Throttle":    c.Throttle("scroll", h, 0),
		"Debounce":    c.Debounce("input", h, 0),
		"ForEach":     c.ForEach(func(int, *dom.Element) {}),
	} {
		assert.Same(t, c, res, name)
		assert.Equal(t, before, c.Elements(), name)
	}
}

func TestEmptyGetters(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector(".none"))
	assert.False(t, c.HasClass("x"))
	v, ok := c.Attr("id")
	assert.False(t, ok)
	assert.Equal(t, "", v)
	_, ok = c.Val()
	assert.False(t, ok)
	_, ok = c.Data("k")
	assert.False(t, ok)
	assert.Equal(t, -1, c.Index())
	_, ok = c.First()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Eq(3).Len())
	assert.Equal(t, 0, c.Find("li").Len())

	c.AddClass("x").Remove().OffAll().HTML("<p>").Append(Selector("#w"))
}

func TestGetters(t *testing.T) {
	q := newQuery(t)
	assert.True(t, q.Select(Selector("li.sel")).HasClass("sel"))
	assert.Equal(t, 1, q.Select(Selector("li.sel")).Index())
	assert.Equal(t, 2, q.Select(Selector("li")).Eq(2).Index())
	p, _ := q.One(Fragment("<p></p>"))
	assert.Equal(t, 0, q.Select(Node(p)).Index())
	assert.Equal(t, -1, q.Select(Node(p.Parent())).Index())

	v, ok := q.Select(Selector("#name")).Val()
	assert.True(t, ok)
	assert.Equal(t, "joe", v)

	_, ok = q.Select(Selector("li")).Attr("class")
	assert.False(t, ok)
	v, ok = q.Select(Selector("li.sel")).Attr("class")
	assert.True(t, ok)
	assert.Equal(t, "sel", v)
}

func TestClassesAndStyle(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector("li"))
	c.AddClass("a b").RemoveClass("b").ToggleClass("sel")
	assert.Equal(t, []string{"a sel", "a", "a sel"}, attrs(c, "class"))

	c.CSS(map[string]string{"fontSize": "14px", "color": "red"}).Hide()
	assert.Equal(t, "color: red; font-size: 14px; display: none;", attrs(c, "style")[0])
	c.Show()
	el, _ := c.First()
	assert.Equal(t, "block", el.Style().Get("display"))
}

func attrs(c *Collection, k string) (res []string) {
	c.ForEach(func(_ int, el *dom.Element) {
		res = append(res, el.GetAttribute(k))
	})
	return
}

func TestAttrValData(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector("li"))
	c.SetAttrs(map[string]string{"title": "t", "role": "item"}).SetData("userId", "9")
	assert.Equal(t, []string{"t", "t", "t"}, attrs(c, "title"))
	assert.Equal(t, []string{"9", "9", "9"}, attrs(c, "data-user-id"))
	v, ok := c.Data("userId")
	assert.True(t, ok)
	assert.Equal(t, "9", v)

	in := q.Select(Selector("#name")).SetVal("ann")
	v, _ = in.Val()
	assert.Equal(t, "ann", v)
}

func TestHTMLAndFind(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector("#list")).HTML(`<li id="n1">x</li><li id="n2">y</li>`)
	assert.Equal(t, []string{"n1", "n2"}, ids(c.Find("li")))
	assert.Equal(t, []string{"n2"}, ids(c.Find("li").Eq(1)))
	assert.Equal(t, 0, c.Find("li").Eq(-1).Len())
}

func TestAppend(t *testing.T) {
	q := newQuery(t)
	list := q.Select(Selector("#list"))
	list.Append(Fragment(`<li id="new">d</li>`))
	assert.Equal(t, 3, q.Select(Selector("li:last-child#new"), list).Index())

	// moves an existing node
	list.Append(Selector("#b1"))
	el, ok := q.One(Selector("#b1"))
	require.True(t, ok)
	p := el.Parent()
	assert.Equal(t, "list", p.ID())
	assert.Equal(t, 1, q.Select(Selector(".wrap > .btn, .wrap .btn")).Len())

	// with several targets the node ends up under the last one
	q.Select(Selector("#w, #list")).Append(Selector("#outside"))
	el, _ = q.One(Selector("#outside"))
	assert.Equal(t, "list", el.Parent().ID())
}

func TestRemove(t *testing.T) {
	q := newQuery(t)
	var r recorder
	c := q.Select(Selector("#w"))
	c.Delegate("click", ".btn", r.handler("h"))
	q.Select(Selector("#b1")).On("click", r.handler("d"))
	require.Equal(t, 2, q.Router().Len())

	res := c.Remove()
	assert.Same(t, c, res)
	assert.Equal(t, 0, q.Select(Selector("#w")).Len())
	assert.Equal(t, 0, q.Router().Len())
	el, _ := c.First()
	assert.Nil(t, el.Parent())
	assert.Equal(t, 0, el.NumListeners("click"))
}

func TestOffAll(t *testing.T) {
	q := newQuery(t)
	var r recorder
	c := q.Select(Selector(".btn"))
	old := c.Elements()
	c.On("click", r.handler("h"))
	c.OffAll()
	assert.Equal(t, 0, q.Router().Len())
	for i, el := range c.Elements() {
		assert.NotSame(t, old[i], el)
		assert.NotNil(t, el.Parent())
		el.Click()
	}
	assert.Empty(t, r.calls)
	assert.Equal(t, []string{"b1", "b2", "outside"}, ids(q.Select(Selector(".btn"))))
	one, _ := q.One(Selector("#b1"))
	first, _ := c.First()
	assert.Same(t, first, one)
}

func TestClickAndTrigger(t *testing.T) {
	q := newQuery(t)
	var r recorder
	q.Select(Selector("#w")).On("custom", r.handler("custom"))
	q.Select(Selector(".btn")).Click(r.handler("click"))
	q.Select(Selector("#b1")).Trigger("click").Trigger("custom")
	assert.Equal(t, []string{"click:b1", "custom:w"}, r.calls)
}

func TestSetAt(t *testing.T) {
	q := newQuery(t)
	c := q.Select(Selector("li"))
	w, _ := q.One(Selector("#w"))
	c.Set(1, w).Set(7, w)
	el, ok := c.At(1)
	assert.True(t, ok)
	assert.Same(t, w, el)
	_, ok = c.At(7)
	assert.False(t, ok)

	c.Set(0, nil)
	el, ok = c.At(0)
	assert.True(t, ok)
	assert.NotNil(t, el)
}
