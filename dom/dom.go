// Package dom is a small host DOM over golang.org/x/net/html: documents,
// element wrappers, event targets, inline style and mutation records.
//
// Nothing in this package is safe for concurrent use. Callers serialize
// access, e.g. on an event loop.
package dom

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/psilva261/minjq/dom/sel"
	"github.com/psilva261/minjq/logger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	Loading     = "loading"
	Interactive = "interactive"
	Complete    = "complete"
)

type Document struct {
	doc        *html.Node
	win        *Element
	elRefs     map[*html.Node]*Element
	readyState string
	mutations  chan Mutation
}

// Parse parses htm into a new document in the loading state.
func Parse(htm string) (d *Document, err error) {
	doc, err := html.Parse(strings.NewReader(htm))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return NewDocument(doc), nil
}

func NewDocument(doc *html.Node) (d *Document) {
	d = &Document{
		doc:        doc,
		readyState: Loading,
	}
	d.elRefs = make(map[*html.Node]*Element)
	d.mutations = make(chan Mutation, 10000)
	d.win = &Element{
		d:   d,
		n:   &html.Node{Type: html.DocumentNode, Data: "#window"},
		win: true,
	}
	return
}

// Element returns the document node itself as an event target.
func (d *Document) Element() *Element {
	return d.getEl(d.doc)
}

func (d *Document) Doc() *html.Node {
	return d.doc
}

// Window is the event target receiving events that bubble past the
// document node.
func (d *Document) Window() *Element {
	return d.win
}

func (d *Document) Body() *Element {
	return d.getEl(grep(d.doc, "body"))
}

func (d *Document) Head() *Element {
	return d.getEl(grep(d.doc, "head"))
}

// Wrap returns the element wrapping n. There is exactly one wrapper per
// node and document.
func (d *Document) Wrap(n *html.Node) *Element {
	return d.getEl(n)
}

func (d *Document) getEl(n *html.Node) (el *Element) {
	if n == nil {
		return nil
	}
	el, ok := d.elRefs[n]
	if ok {
		return
	}
	el = &Element{d: d, n: n}
	d.elRefs[n] = el
	return
}

// CreateElement returns a new detached element. tag must be a valid
// element name.
func (d *Document) CreateElement(tag string) (*Element, error) {
	if !validTag(tag) {
		return nil, errors.Errorf("invalid tag name %q", tag)
	}
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.getEl(n), nil
}

func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	for i, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

func (d *Document) GetElementById(id string) *Element {
	return d.getEl(grepById(d.doc, id))
}

func (d *Document) QuerySelector(s string) (*Element, error) {
	return d.Element().QuerySelector(s)
}

func (d *Document) QuerySelectorAll(s string) ([]*Element, error) {
	return d.Element().QuerySelectorAll(s)
}

func (d *Document) ReadyState() string {
	return d.readyState
}

// Close finishes loading: readyState goes to interactive, DOMContentLoaded
// fires on the document and bubbles to the window, then readyState goes to
// complete and load fires on the window. Calling it again is a no-op.
func (d *Document) Close() {
	if d.readyState != Loading {
		return
	}
	doc := d.Element()
	d.readyState = Interactive
	doc.DispatchEvent(NewEvent("readystatechange", EventInit{}))
	doc.DispatchEvent(NewEvent("DOMContentLoaded", EventInit{Bubbles: true}))
	d.readyState = Complete
	doc.DispatchEvent(NewEvent("readystatechange", EventInit{}))
	d.win.DispatchEvent(NewEvent("load", EventInit{}))
}

// Mutations returns the buffered change feed of the document. Records are
// dropped when nobody drains it.
func (d *Document) Mutations() <-chan Mutation {
	return d.mutations
}

// Render serializes the whole document.
func (d *Document) Render() string {
	return render(d.doc)
}

type Element struct {
	d   *Document
	n   *html.Node
	win bool

	listeners map[string][]*listener
}

func (el *Element) Node() *html.Node {
	return el.n
}

func (el *Element) Document() *Document {
	return el.d
}

func (el *Element) IsWindow() bool {
	return el.win
}

func (el *Element) TagName() string {
	if el.n.Type != html.ElementNode {
		return el.n.Data
	}
	return strings.ToUpper(el.n.Data)
}

func (el *Element) ID() string {
	return attr(*el.n, "id")
}

func (el *Element) String() string {
	if el.win {
		return "window"
	}
	s := strings.ToLower(el.TagName())
	if id := el.ID(); id != "" {
		s += "#" + id
	}
	return s
}

func (el *Element) GetAttribute(k string) string {
	return attr(*el.n, k)
}

// Attr returns the attribute value and whether it is present.
func (el *Element) Attr(k string) (string, bool) {
	return attr(*el.n, k), hasAttr(*el.n, k)
}

func (el *Element) HasAttribute(k string) bool {
	return hasAttr(*el.n, k)
}

func (el *Element) SetAttribute(k, v string) {
	if el.win {
		return
	}
	el.setAttr(strings.ToLower(k), v)
}

func (el *Element) RemoveAttribute(k string) {
	el.rmAttr(strings.ToLower(k))
}

func (el *Element) HasClass(c string) bool {
	for _, cl := range classes(attr(*el.n, "class")) {
		if cl == c {
			return true
		}
	}
	return false
}

// AddClass adds the space separated class names cls.
func (el *Element) AddClass(cls string) {
	cur := classes(attr(*el.n, "class"))
	changed := false
	for _, c := range classes(cls) {
		if !contains(cur, c) {
			cur = append(cur, c)
			changed = true
		}
	}
	if changed {
		el.setAttr("class", strings.Join(cur, " "))
	}
}

func (el *Element) RemoveClass(cls string) {
	if !el.HasAttribute("class") {
		return
	}
	rm := classes(cls)
	cur := classes(attr(*el.n, "class"))
	kept := cur[:0]
	for _, c := range cur {
		if !contains(rm, c) {
			kept = append(kept, c)
		}
	}
	el.setAttr("class", strings.Join(kept, " "))
}

func (el *Element) ToggleClass(cls string) {
	for _, c := range classes(cls) {
		if el.HasClass(c) {
			el.RemoveClass(c)
		} else {
			el.AddClass(c)
		}
	}
}

func contains(xs []string, x string) bool {
	for _, y := range xs {
		if y == x {
			return true
		}
	}
	return false
}

func (el *Element) Style() *Style {
	return &Style{el: el}
}

// Data reads the data-* attribute for key, e.g. userId reads data-user-id.
func (el *Element) Data(key string) (string, bool) {
	return el.Attr("data-" + kebab(key))
}

func (el *Element) SetData(key, v string) {
	el.SetAttribute("data-"+kebab(key), v)
}

// Value is the form value of input, textarea and select elements and the
// value attribute otherwise.
func (el *Element) Value() string {
	switch el.n.Data {
	case "textarea":
		return el.TextContent()
	case "select":
		var first *html.Node
		for _, o := range grepAll(el.n, "option", true) {
			if first == nil {
				first = o
			}
			if hasAttr(*o, "selected") {
				return optionValue(o)
			}
		}
		if first != nil {
			return optionValue(first)
		}
		return ""
	}
	return attr(*el.n, "value")
}

func optionValue(o *html.Node) string {
	if hasAttr(*o, "value") {
		return attr(*o, "value")
	}
	return strings.TrimSpace(text(o))
}

func (el *Element) SetValue(v string) {
	switch el.n.Data {
	case "textarea":
		el.setText(v)
	case "select":
		for _, o := range grepAll(el.n, "option", true) {
			if optionValue(o) == v {
				setAttr(o, "selected", "")
			} else {
				rmAttr(o, "selected")
			}
		}
	default:
		setAttr(el.n, "value", v)
	}
	addMutation(el.d, Value, el.n)
}

func (el *Element) Checked() bool {
	return hasAttr(*el.n, "checked")
}

func (el *Element) TextContent() string {
	return text(el.n)
}

func (el *Element) SetTextContent(t string) {
	el.setText(t)
}

func (el *Element) setText(t string) {
	for el.n.FirstChild != nil {
		el.n.RemoveChild(el.n.FirstChild)
	}
	if t != "" {
		el.n.AppendChild(&html.Node{
			Type: html.TextNode,
			Data: t,
		})
	}
	addMutation(el.d, Value, el.n)
}

func text(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func (el *Element) InnerHTML() string {
	return renderInner(el.n)
}

func (el *Element) OuterHTML() string {
	return render(el.n)
}

// SetInnerHTML replaces the children of el with h parsed in the context
// of el.
func (el *Element) SetInnerHTML(h string) error {
	if el.n.Type != html.ElementNode {
		return errors.Errorf("set inner html on %v", el)
	}
	ns, err := el.ParseFragment(h)
	if err != nil {
		return err
	}
	for el.n.FirstChild != nil {
		el.n.RemoveChild(el.n.FirstChild)
	}
	for _, c := range ns {
		el.n.AppendChild(c)
	}
	addMutation(el.d, Value, el.n)
	return nil
}

// ParseFragment parses h with el as context element. The returned nodes
// are detached.
func (el *Element) ParseFragment(h string) (ns []*html.Node, err error) {
	ctx := el.n
	if ctx.DataAtom != atom.Lookup([]byte(ctx.Data)) {
		ctx = &html.Node{
			Type:     html.ElementNode,
			Data:     ctx.Data,
			DataAtom: atom.Lookup([]byte(ctx.Data)),
		}
	}
	ns, err = html.ParseFragment(strings.NewReader(h), ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse fragment")
	}
	return
}

func (el *Element) Parent() *Element {
	return el.d.getEl(el.n.Parent)
}

func (el *Element) Children() (els []*Element) {
	for c := el.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			els = append(els, el.d.getEl(c))
		}
	}
	return
}

// Contains reports whether o is el or one of its descendants.
func (el *Element) Contains(o *Element) bool {
	if o == nil {
		return false
	}
	if el == o {
		return true
	}
	for n := o.n.Parent; n != nil; n = n.Parent {
		if n == el.n {
			return true
		}
	}
	return false
}

func (el *Element) Matches(s string) (bool, error) {
	c, err := sel.Compile(s)
	if err != nil {
		return false, errors.Wrapf(err, "matches")
	}
	return c.Match(el.n, nil), nil
}

// Closest returns el or its nearest ancestor element matching s, nil when
// there is none.
func (el *Element) Closest(s string) (*Element, error) {
	n, err := sel.Closest(s, el.n)
	if err != nil {
		return nil, errors.Wrapf(err, "closest")
	}
	return el.d.getEl(n), nil
}

func (el *Element) QuerySelector(s string) (*Element, error) {
	es, err := el.QuerySelectorAll(s)
	if err != nil || len(es) == 0 {
		return nil, err
	}
	return es[0], nil
}

func (el *Element) QuerySelectorAll(s string) (els []*Element, err error) {
	res, err := sel.Select(s, el.n)
	if err != nil {
		return nil, errors.Wrapf(err, "select")
	}
	els = make([]*Element, 0, len(res))
	for _, n := range res {
		els = append(els, el.d.getEl(n))
	}
	return
}

// AppendChild moves c to the end of el's children.
func (el *Element) AppendChild(c *Element) (*Element, error) {
	if err := el.checkInsert(c); err != nil {
		return nil, err
	}
	t := Insert
	if p := c.n.Parent; p != nil {
		p.RemoveChild(c.n)
		t = Mv
	}
	el.n.AppendChild(c.n)
	addMutation(el.d, t, c.n)
	return c, nil
}

func (el *Element) checkInsert(c *Element) error {
	if c == nil || c.win || el.win {
		return errors.Errorf("append %v to %v: not a node", c, el)
	}
	if c.n.Type == html.DocumentNode {
		return errors.Errorf("append document to %v", el)
	}
	if c.Contains(el) {
		return errors.Errorf("append %v to %v: hierarchy request", c, el)
	}
	return nil
}

func (el *Element) RemoveChild(c *Element) (*Element, error) {
	if c == nil || c.n.Parent != el.n {
		return nil, errors.Errorf("remove %v from %v: not a child", c, el)
	}
	el.n.RemoveChild(c.n)
	addMutation(el.d, Rm, el.n)
	return c, nil
}

// ReplaceChild puts nue in the place of old and returns old.
func (el *Element) ReplaceChild(nue, old *Element) (*Element, error) {
	if old == nil || old.n.Parent != el.n {
		return nil, errors.Errorf("replace %v in %v: not a child", old, el)
	}
	if nue == old {
		return old, nil
	}
	if err := el.checkInsert(nue); err != nil {
		return nil, err
	}
	if p := nue.n.Parent; p != nil {
		p.RemoveChild(nue.n)
	}
	nx := old.n.NextSibling
	el.n.RemoveChild(old.n)
	el.n.InsertBefore(nue.n, nx)
	addMutation(el.d, Insert, nue.n)
	return old, nil
}

// Remove detaches el from its parent. Its listeners stay attached.
func (el *Element) Remove() {
	if p := el.n.Parent; p != nil {
		p.RemoveChild(el.n)
		addMutation(el.d, Rm, p)
	}
}

// CloneNode copies el, with its subtree when deep is set. Event listeners
// are not copied.
func (el *Element) CloneNode(deep bool) *Element {
	return el.d.getEl(cloneNode(el.n, deep))
}

func cloneNode(n *html.Node, deep bool) *html.Node {
	cl := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute{}, n.Attr...),
	}
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cl.AppendChild(cloneNode(c, true))
		}
	}
	return cl
}

// Click simulates a user click: checkboxes toggle and radios get checked
// before dispatch. A canceled click reverts that. Disabled form controls
// ignore clicks.
func (el *Element) Click() bool {
	if el.isFormControl() && hasAttr(*el.n, "disabled") {
		return false
	}
	var revert func()
	if el.n.Data == "input" {
		switch attr(*el.n, "type") {
		case "checkbox":
			if hasAttr(*el.n, "checked") {
				rmAttr(el.n, "checked")
				revert = func() { setAttr(el.n, "checked", "") }
			} else {
				setAttr(el.n, "checked", "")
				revert = func() { rmAttr(el.n, "checked") }
			}
		case "radio":
			if !hasAttr(*el.n, "checked") {
				prev := el.checkRadio()
				revert = func() {
					rmAttr(el.n, "checked")
					if prev != nil {
						setAttr(prev, "checked", "")
					}
				}
			}
		}
	}
	e := NewEvent("click", EventInit{Bubbles: true, Cancelable: true})
	ok := el.DispatchEvent(e)
	if !ok && revert != nil {
		revert()
	}
	if revert != nil && ok {
		addMutation(el.d, Value, el.n)
	}
	return ok
}

func (el *Element) isFormControl() bool {
	switch el.n.Data {
	case "input", "button", "select", "textarea":
		return true
	}
	return false
}

// checkRadio checks el and unchecks the other radio of its group, which
// is returned.
func (el *Element) checkRadio() (prev *html.Node) {
	name := attr(*el.n, "name")
	root := el.n
	for root.Parent != nil && root.Data != "form" {
		root = root.Parent
	}
	if name != "" {
		for _, r := range grepByName(root, name) {
			if r != el.n && attr(*r, "type") == "radio" && hasAttr(*r, "checked") {
				rmAttr(r, "checked")
				prev = r
			}
		}
	}
	setAttr(el.n, "checked", "")
	return
}

func (el *Element) setAttr(key, val string) {
	setAttr(el.n, key, val)
	addMutation(el.d, ChAttr, el.n)
}

func (el *Element) rmAttr(key string) {
	if rmAttr(el.n, key) {
		addMutation(el.d, RmAttr, el.n)
	}
}

func grep(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := grep(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func grepAll(n *html.Node, tag string, skipRoot bool) (all []*html.Node) {
	if !skipRoot && n.Type == html.ElementNode && n.Data == tag {
		all = append(all, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		all = append(all, grepAll(c, tag, false)...)
	}
	return
}

func grepByName(n *html.Node, name string) (all []*html.Node) {
	if n.Type == html.ElementNode && attr(*n, "name") == name {
		all = append(all, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		all = append(all, grepByName(c, name)...)
	}
	return
}

func grepById(n *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	if n.Type == html.ElementNode && attr(*n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := grepById(c, id); res != nil {
			return res
		}
	}
	return nil
}

func classes(cls string) []string {
	return strings.Fields(cls)
}

func attr(n html.Node, key string) (val string) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return
}

func hasAttr(n html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	newAttr := html.Attribute{
		Key: key,
		Val: val,
	}
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i] = newAttr
			return
		}
	}
	n.Attr = append(n.Attr, newAttr)
}

func rmAttr(n *html.Node, key string) bool {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

func render(n *html.Node) string {
	buf := bytes.NewBufferString("")
	if err := html.Render(buf, n); err != nil {
		log.Errorf("render: %v", err)
		return ""
	}
	return buf.String()
}

func renderInner(n *html.Node) string {
	buf := bytes.NewBufferString("")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(buf, c); err != nil {
			log.Errorf("render inner: %v", err)
			return ""
		}
	}
	return buf.String()
}
