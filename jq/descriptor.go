package jq

import (
	"fmt"
	"strings"

	"github.com/psilva261/minjq/dom"
)

// Descriptor is what a collection is built from. It is one of Selector,
// Fragment, Node(el), Nodes(els...) or a *Collection; nil stands for
// nothing and yields an empty collection.
type Descriptor interface {
	descriptor()
}

// Selector is a CSS selector group.
type Selector string

// Fragment is HTML markup.
type Fragment string

type node struct {
	el *dom.Element
}

type nodes []*dom.Element

type invalid struct {
	v any
}

func (Selector) descriptor()    {}
func (Fragment) descriptor()    {}
func (node) descriptor()        {}
func (nodes) descriptor()       {}
func (invalid) descriptor()     {}
func (*Collection) descriptor() {}

// Str classifies s: markup if it contains '<', a selector otherwise.
func Str(s string) Descriptor {
	if strings.Contains(s, "<") {
		return Fragment(s)
	}
	return Selector(s)
}

// Node describes a single element or the window.
func Node(el *dom.Element) Descriptor {
	if el == nil {
		return nil
	}
	return node{el: el}
}

// Nodes describes a list of elements in the given order. nil members
// are skipped.
func Nodes(els ...*dom.Element) Descriptor {
	return nodes(els)
}

// From converts loosely typed input. Values that are neither falsy nor
// convertible resolve to an error.
func From(v any) Descriptor {
	switch x := v.(type) {
	case nil:
		return nil
	case Descriptor:
		return x
	case string:
		if x == "" {
			return nil
		}
		return Str(x)
	case *dom.Element:
		return Node(x)
	case []*dom.Element:
		return Nodes(x...)
	case bool:
		if !x {
			return nil
		}
	case int:
		if x == 0 {
			return nil
		}
	case int64:
		if x == 0 {
			return nil
		}
	case float64:
		if x == 0 {
			return nil
		}
	}
	return invalid{v: v}
}

func describe(d Descriptor) string {
	switch x := d.(type) {
	case nil:
		return "nothing"
	case Selector:
		return fmt.Sprintf("selector %q", string(x))
	case Fragment:
		return fmt.Sprintf("fragment %q", string(x))
	case node:
		return x.el.String()
	case nodes:
		return fmt.Sprintf("%d nodes", len(x))
	case *Collection:
		return fmt.Sprintf("collection of %d", x.Len())
	case invalid:
		return fmt.Sprintf("%T", x.v)
	}
	return fmt.Sprintf("%T", d)
}

func falsy(d Descriptor) bool {
	switch x := d.(type) {
	case nil:
		return true
	case Selector:
		return x == ""
	case *Collection:
		return x == nil
	}
	return false
}
