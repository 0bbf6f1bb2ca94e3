package jq

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/psilva261/minjq/dom"
	"github.com/psilva261/minjq/logger"
)

// DefaultContainer is the tag of the element fragments are parsed in when
// no context is given. Context-sensitive markup like <tr> needs a matching
// container such as tbody.
const DefaultContainer = "div"

// ResolutionError is a failure to turn a descriptor into elements.
type ResolutionError struct {
	Desc Descriptor
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %v: %v", describe(e.Desc), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) Cause() error {
	return e.Err
}

// Select builds the collection described by desc, optionally scoped to
// ctx. Resolution errors are logged and yield an empty collection.
func (q *Query) Select(desc Descriptor, ctx ...Descriptor) *Collection {
	var c Descriptor
	if len(ctx) > 0 {
		c = ctx[0]
	}
	els, err := q.Resolve(desc, c)
	if err != nil {
		log.Errorf("selector error: %v", err)
	}
	return &Collection{q: q, els: els}
}

// One returns the first element Select would return.
func (q *Query) One(desc Descriptor, ctx ...Descriptor) (*dom.Element, bool) {
	return q.Select(desc, ctx...).First()
}

// Resolve is the error returning form of Select. Failures are of type
// *ResolutionError.
func (q *Query) Resolve(desc, ctx Descriptor) (els []*dom.Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			els = nil
			err = &ResolutionError{Desc: desc, Err: errors.Errorf("panic: %v", r)}
		}
	}()
	els, err = q.resolve(desc, ctx)
	if err != nil {
		return nil, &ResolutionError{Desc: desc, Err: err}
	}
	return
}

func (q *Query) resolve(desc, ctx Descriptor) ([]*dom.Element, error) {
	if falsy(desc) {
		return nil, nil
	}
	if falsy(ctx) {
		ctx = nil
	}
	switch d := desc.(type) {
	case node:
		return []*dom.Element{d.el}, nil
	case Fragment:
		return q.fragment(string(d), ctx)
	case Selector:
		return q.query(string(d), ctx)
	case nodes:
		els := make([]*dom.Element, 0, len(d))
		for _, el := range d {
			if el != nil {
				els = append(els, el)
			}
		}
		return els, nil
	case *Collection:
		return d.Elements(), nil
	case invalid:
		return nil, errors.Errorf("unsupported descriptor %T", d.v)
	}
	return nil, errors.Errorf("unsupported descriptor %T", desc)
}

// fragment parses h inside a detached container and returns the
// container's element children.
func (q *Query) fragment(h string, ctx Descriptor) ([]*dom.Element, error) {
	tag := DefaultContainer
	switch c := ctx.(type) {
	case nil:
	case Selector:
		tag = string(c)
	case node:
		tag = strings.ToLower(c.el.TagName())
	default:
		return nil, errors.Errorf("container for fragment must be a tag name, not %v", describe(ctx))
	}
	box, err := q.doc.CreateElement(tag)
	if err != nil {
		return nil, errors.Wrap(err, "create container")
	}
	if err := box.SetInnerHTML(h); err != nil {
		return nil, err
	}
	return box.Children(), nil
}

func (q *Query) query(s string, ctx Descriptor) ([]*dom.Element, error) {
	if ctx == nil {
		return q.doc.QuerySelectorAll(s)
	}
	roots, err := q.Resolve(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "context")
	}
	if len(roots) == 0 {
		return nil, nil
	}
	return roots[0].QuerySelectorAll(s)
}
