package sel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
)

// Selector is a compiled selector group.
type Selector struct {
	src  string
	alts []chain
}

// chain is one complex selector: compounds joined by combinators,
// combs[i] sits between parts[i] and parts[i+1].
type chain struct {
	parts []compound
	combs []byte
}

type compound struct {
	tag     string
	ids     []string
	classes []string
	attrs   []attrSel
	pseudos []pseudo
}

type attrSel struct {
	key string
	op  string
	val string
}

type pseudo struct {
	name string
	arg  *Selector
	a, b int
}

func (s *Selector) String() string {
	return s.src
}

// Compile parses a selector group.
func Compile(s string) (*Selector, error) {
	ts, err := tokenize(s)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", s, err)
	}
	p := &parser{ts: ts}
	alts, err := p.group(false)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	if t := p.peek(); t.tt != css.ErrorToken {
		return nil, fmt.Errorf("parse %q: unexpected %q", s, t.data)
	}
	return &Selector{src: s, alts: alts}, nil
}

// Select returns the element descendants of root matching sel in document
// order. root itself is never part of the result.
func Select(sel string, root *html.Node) (es []*html.Node, err error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	scope := root
	if root.Type == html.DocumentNode {
		scope = nil
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && s.Match(c, scope) {
				es = append(es, c)
			}
			walk(c)
		}
	}
	walk(root)
	return
}

// Matches reports whether n matches sel.
func Matches(sel string, n *html.Node) (bool, error) {
	s, err := Compile(sel)
	if err != nil {
		return false, err
	}
	return s.Match(n, nil), nil
}

// Closest returns n or its nearest ancestor element matching sel.
func Closest(sel string, n *html.Node) (*html.Node, error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if s.Match(n, nil) {
			return n, nil
		}
	}
	return nil, nil
}

// Match reports whether n matches any selector of the group. scope is the
// element :scope refers to; nil means the root element of n's tree.
func (s *Selector) Match(n, scope *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range s.alts {
		if c.matchAt(len(c.parts)-1, n, scope) {
			return true
		}
	}
	return false
}

func (c chain) matchAt(i int, n, scope *html.Node) bool {
	if !c.parts[i].match(n, scope) {
		return false
	}
	if i == 0 {
		return true
	}
	switch c.combs[i-1] {
	case '>':
		p := parentElement(n)
		return p != nil && c.matchAt(i-1, p, scope)
	case '+':
		p := prevElement(n)
		return p != nil && c.matchAt(i-1, p, scope)
	case '~':
		for p := prevElement(n); p != nil; p = prevElement(p) {
			if c.matchAt(i-1, p, scope) {
				return true
			}
		}
	default:
		for p := parentElement(n); p != nil; p = parentElement(p) {
			if c.matchAt(i-1, p, scope) {
				return true
			}
		}
	}
	return false
}

func (cp compound) match(n, scope *html.Node) bool {
	if cp.tag != "" && cp.tag != "*" && !strings.EqualFold(n.Data, cp.tag) {
		return false
	}
	for _, id := range cp.ids {
		if attr(*n, "id") != id {
			return false
		}
	}
	if len(cp.classes) > 0 && !matchesClasses(n, cp.classes) {
		return false
	}
	for _, a := range cp.attrs {
		if !a.match(n) {
			return false
		}
	}
	for _, ps := range cp.pseudos {
		if !ps.match(n, scope) {
			return false
		}
	}
	return true
}

func (a attrSel) match(n *html.Node) bool {
	if !hasAttr(*n, a.key) {
		return false
	}
	v := attr(*n, a.key)
	switch a.op {
	case "":
		return true
	case "=":
		return v == a.val
	case "~=":
		for _, w := range classes(v) {
			if w == a.val {
				return true
			}
		}
		return false
	case "|=":
		return v == a.val || strings.HasPrefix(v, a.val+"-")
	case "^=":
		return a.val != "" && strings.HasPrefix(v, a.val)
	case "$=":
		return a.val != "" && strings.HasSuffix(v, a.val)
	case "*=":
		return a.val != "" && strings.Contains(v, a.val)
	}
	return false
}

func (ps pseudo) match(n, scope *html.Node) bool {
	switch ps.name {
	case "scope":
		if scope == nil {
			return n.Parent != nil && n.Parent.Type == html.DocumentNode
		}
		return n == scope
	case "first-child":
		return prevElement(n) == nil
	case "last-child":
		return nextElement(n) == nil
	case "only-child":
		return prevElement(n) == nil && nextElement(n) == nil
	case "empty":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode || c.Type == html.TextNode {
				return false
			}
		}
		return true
	case "checked":
		return hasAttr(*n, "checked") || (n.Data == "option" && hasAttr(*n, "selected"))
	case "disabled":
		return hasAttr(*n, "disabled")
	case "not":
		return !ps.arg.Match(n, scope)
	case "has":
		found := false
		var walk func(c *html.Node)
		walk = func(c *html.Node) {
			for ; c != nil && !found; c = c.NextSibling {
				if ps.arg.Match(c, n) {
					found = true
					return
				}
				walk(c.FirstChild)
			}
		}
		walk(n.FirstChild)
		return found
	case "nth-child":
		k := 1
		for p := prevElement(n); p != nil; p = prevElement(p) {
			k++
		}
		if ps.a == 0 {
			return k == ps.b
		}
		d := k - ps.b
		return d/ps.a >= 0 && d%ps.a == 0
	}
	return false
}

func parentElement(n *html.Node) *html.Node {
	if p := n.Parent; p != nil && p.Type == html.ElementNode {
		return p
	}
	return nil
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

type token struct {
	tt   css.TokenType
	data string
}

func tokenize(s string) (ts []token, err error) {
	l := css.NewLexer(parse.NewInputString(s))
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, err
			}
			return ts, nil
		case css.CommentToken:
			continue
		case css.BadStringToken, css.BadURLToken:
			return nil, fmt.Errorf("bad token %q", data)
		}
		ts = append(ts, token{tt: tt, data: string(data)})
	}
}

type parser struct {
	ts []token
	i  int
}

func (p *parser) peek() token {
	if p.i >= len(p.ts) {
		return token{tt: css.ErrorToken}
	}
	return p.ts[p.i]
}

func (p *parser) next() token {
	t := p.peek()
	if p.i < len(p.ts) {
		p.i++
	}
	return t
}

func (p *parser) skipWS() (skipped bool) {
	for p.peek().tt == css.WhitespaceToken {
		p.i++
		skipped = true
	}
	return
}

func isDelim(t token, d string) bool {
	return t.tt == css.DelimToken && t.data == d
}

// group parses comma separated complex selectors up to the end of input
// or, inside a functional pseudo-class, up to the closing parenthesis.
// relative selectors get an implicit leading :scope.
func (p *parser) group(relative bool) (alts []chain, err error) {
	for {
		c, err := p.complex(relative)
		if err != nil {
			return nil, err
		}
		alts = append(alts, c)
		p.skipWS()
		if p.peek().tt != css.CommaToken {
			return alts, nil
		}
		p.next()
	}
}

func (p *parser) combinator() byte {
	t := p.peek()
	if t.tt != css.DelimToken {
		return 0
	}
	switch t.data {
	case ">", "+", "~":
		p.next()
		return t.data[0]
	}
	return 0
}

func (p *parser) startsCompound() bool {
	t := p.peek()
	switch t.tt {
	case css.IdentToken, css.HashToken, css.LeftBracketToken, css.ColonToken:
		return true
	}
	return isDelim(t, ".") || isDelim(t, "*")
}

func (p *parser) complex(relative bool) (c chain, err error) {
	p.skipWS()
	if relative {
		c.parts = append(c.parts, compound{pseudos: []pseudo{{name: "scope"}}})
		comb := p.combinator()
		if comb == 0 {
			comb = ' '
		}
		c.combs = append(c.combs, comb)
		p.skipWS()
	}
	for {
		cp, err := p.compound()
		if err != nil {
			return c, err
		}
		c.parts = append(c.parts, cp)
		ws := p.skipWS()
		if comb := p.combinator(); comb != 0 {
			c.combs = append(c.combs, comb)
			p.skipWS()
			continue
		}
		if ws && p.startsCompound() {
			c.combs = append(c.combs, ' ')
			continue
		}
		return c, nil
	}
}

func (p *parser) compound() (cp compound, err error) {
	n := 0
	if t := p.peek(); t.tt == css.IdentToken {
		cp.tag = strings.ToLower(unescape(t.data))
		p.next()
		n++
	} else if isDelim(t, "*") {
		cp.tag = "*"
		p.next()
		n++
	}
	for {
		t := p.peek()
		switch {
		case t.tt == css.HashToken:
			p.next()
			cp.ids = append(cp.ids, unescape(t.data[1:]))
		case isDelim(t, "."):
			p.next()
			id := p.next()
			if id.tt != css.IdentToken {
				return cp, fmt.Errorf("expected class name after '.'")
			}
			cp.classes = append(cp.classes, unescape(id.data))
		case t.tt == css.LeftBracketToken:
			p.next()
			a, err := p.attr()
			if err != nil {
				return cp, err
			}
			cp.attrs = append(cp.attrs, a)
		case t.tt == css.ColonToken:
			p.next()
			ps, err := p.pseudo()
			if err != nil {
				return cp, err
			}
			cp.pseudos = append(cp.pseudos, ps)
		default:
			if n == 0 {
				if t.tt == css.ErrorToken {
					return cp, fmt.Errorf("expected selector")
				}
				return cp, fmt.Errorf("unexpected %q", t.data)
			}
			return cp, nil
		}
		n++
	}
}

func (p *parser) attr() (a attrSel, err error) {
	p.skipWS()
	k := p.next()
	if k.tt != css.IdentToken {
		return a, fmt.Errorf("expected attribute name")
	}
	a.key = strings.ToLower(unescape(k.data))
	p.skipWS()
	t := p.next()
	switch {
	case t.tt == css.RightBracketToken:
		return a, nil
	case isDelim(t, "="):
		a.op = "="
	case t.tt == css.IncludeMatchToken:
		a.op = "~="
	case t.tt == css.DashMatchToken:
		a.op = "|="
	case t.tt == css.PrefixMatchToken:
		a.op = "^="
	case t.tt == css.SuffixMatchToken:
		a.op = "$="
	case t.tt == css.SubstringMatchToken:
		a.op = "*="
	default:
		return a, fmt.Errorf("unexpected %q in attribute selector", t.data)
	}
	p.skipWS()
	v := p.next()
	switch v.tt {
	case css.IdentToken, css.NumberToken:
		a.val = unescape(v.data)
	case css.StringToken:
		a.val = v.data[1 : len(v.data)-1]
	default:
		return a, fmt.Errorf("expected attribute value")
	}
	p.skipWS()
	if t := p.next(); t.tt != css.RightBracketToken {
		return a, fmt.Errorf("expected ']'")
	}
	return a, nil
}

func (p *parser) pseudo() (ps pseudo, err error) {
	t := p.next()
	switch t.tt {
	case css.IdentToken:
		ps.name = strings.ToLower(t.data)
		switch ps.name {
		case "scope", "first-child", "last-child", "only-child", "empty", "checked", "disabled":
			return ps, nil
		}
		return ps, fmt.Errorf("unknown pseudo-class :%v", t.data)
	case css.FunctionToken:
		ps.name = strings.ToLower(strings.TrimSuffix(t.data, "("))
	default:
		return ps, fmt.Errorf("expected pseudo-class name")
	}
	switch ps.name {
	case "not", "has":
		alts, err := p.group(ps.name == "has")
		if err != nil {
			return ps, fmt.Errorf(":%v: %w", ps.name, err)
		}
		ps.arg = &Selector{alts: alts}
	case "nth-child":
		p.skipWS()
		if ps.a, ps.b, err = p.nth(); err != nil {
			return ps, fmt.Errorf(":nth-child: %w", err)
		}
		p.skipWS()
	default:
		return ps, fmt.Errorf("unknown pseudo-class :%v()", ps.name)
	}
	if t := p.next(); t.tt != css.RightParenthesisToken {
		return ps, fmt.Errorf("expected ')' after :%v", ps.name)
	}
	return ps, nil
}

// nth parses the an+b argument. Supported forms are odd, even, b, and
// an+b with a or b omitted.
func (p *parser) nth() (a, b int, err error) {
	t := p.next()
	var d string
	switch t.tt {
	case css.NumberToken:
		b, err = strconv.Atoi(t.data)
		return
	case css.IdentToken, css.DimensionToken:
		d = strings.ToLower(t.data)
	default:
		return 0, 0, fmt.Errorf("unexpected %q", t.data)
	}
	switch d {
	case "odd":
		return 2, 1, nil
	case "even":
		return 2, 0, nil
	}
	i := strings.IndexByte(d, 'n')
	if i < 0 {
		return 0, 0, fmt.Errorf("unexpected %q", t.data)
	}
	switch coef := d[:i]; coef {
	case "", "+":
		a = 1
	case "-":
		a = -1
	default:
		if a, err = strconv.Atoi(coef); err != nil {
			return
		}
	}
	if rest := d[i+1:]; rest != "" {
		b, err = strconv.Atoi(rest)
		return
	}
	p.skipWS()
	switch t := p.peek(); {
	case t.tt == css.NumberToken && (t.data[0] == '+' || t.data[0] == '-'):
		p.next()
		b, err = strconv.Atoi(t.data)
	case isDelim(t, "+"), isDelim(t, "-"):
		p.next()
		p.skipWS()
		num := p.next()
		if num.tt != css.NumberToken {
			return 0, 0, fmt.Errorf("expected number")
		}
		if b, err = strconv.Atoi(num.data); err != nil {
			return
		}
		if t.data == "-" {
			b = -b
		}
	}
	return
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	esc := false
	for _, r := range s {
		if r == '\\' && !esc {
			esc = true
			continue
		}
		esc = false
		sb.WriteRune(r)
	}
	return sb.String()
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

func matchesClasses(n *html.Node, qs []string) bool {
	cls := classes(attr(*n, "class"))
	for _, q := range qs {
		found := false
		for _, cl := range cls {
			if cl == q {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func classes(cls string) []string {
	return strings.Fields(cls)
}
