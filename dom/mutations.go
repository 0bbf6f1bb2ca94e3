package dom

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

type MutationType int

const (
	Value MutationType = iota + 1
	ChAttr
	RmAttr
	Rm
	Mv
	Insert
)

func (t MutationType) String() string {
	switch t {
	case Value:
		return "Value"
	case ChAttr:
		return "Attr"
	case RmAttr:
		return "RmAttr"
	case Rm:
		return "Rm"
	case Mv:
		return "Mv"
	case Insert:
		return "Insert"
	}
	return ""
}

// Mutation records a change of the node tree. Path locates the node
// below body as /0/i/j..., counting element and non-blank text
// children; it is empty for detached nodes.
type Mutation struct {
	Time time.Time
	Type MutationType
	Path string
	Tag  string
	Node map[string]string
}

func addMutation(d *Document, t MutationType, n *html.Node) {
	if d == nil {
		return
	}
	m := Mutation{
		Time: time.Now(),
		Type: t,
		Node: map[string]string{},
	}
	if n != nil {
		if n.Type == html.ElementNode {
			m.Tag = n.Data
		}
		for _, a := range n.Attr {
			m.Node[a.Key] = a.Val
		}
		if n.Data == "script" && n.Type == html.ElementNode {
			m.Node["innerHTML"] = renderInner(n)
		}
		m.Path, _ = path(n)
	}
	select {
	case d.mutations <- m:
	default:
	}
}

func path(n *html.Node) (pth string, ok bool) {
	if n == nil || n.Type != html.ElementNode && n.Type != html.TextNode {
		return
	}
	if n.Type == html.ElementNode && n.Data == "body" {
		return "/0", true
	}
	p := n.Parent
	if p == nil {
		return
	}
	i := 0
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			pre, ok := path(p)
			if ok {
				return pre + "/" + strconv.Itoa(i), true
			}
			return "", false
		}
		if c.Type == html.ElementNode || (c.Type == html.TextNode && strings.TrimSpace(c.Data) != "") {
			i++
		}
	}
	return
}
