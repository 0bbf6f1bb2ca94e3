package dom

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Style is the inline CSSStyleDeclaration backed by the style attribute.
// Property names may be given in kebab-case or camelCase.
type Style struct {
	el *Element
}

type decl struct {
	k string
	v string
}

func (s *Style) decls() []decl {
	return parseStyle(attr(*s.el.n, "style"))
}

func (s *Style) Get(k string) string {
	k = kebab(k)
	for _, d := range s.decls() {
		if d.k == k {
			return d.v
		}
	}
	return ""
}

// Set sets property k, an empty value removes it.
func (s *Style) Set(k, v string) {
	k = kebab(k)
	v = strings.TrimSpace(v)
	if v == "" {
		s.Remove(k)
		return
	}
	ds := s.decls()
	found := false
	for i, d := range ds {
		if d.k == k {
			ds[i].v = v
			found = true
		}
	}
	if !found {
		ds = append(ds, decl{k: k, v: v})
	}
	s.el.setAttr("style", cssText(ds))
}

func (s *Style) Remove(k string) {
	k = kebab(k)
	ds := s.decls()
	kept := ds[:0]
	for _, d := range ds {
		if d.k != k {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(ds) {
		return
	}
	if len(kept) == 0 {
		s.el.rmAttr("style")
		return
	}
	s.el.setAttr("style", cssText(kept))
}

func (s *Style) Len() int {
	return len(s.decls())
}

func (s *Style) CSSText() string {
	return cssText(s.decls())
}

func (s *Style) SetCSSText(t string) {
	s.el.setAttr("style", t)
}

func cssText(ds []decl) string {
	var sb strings.Builder
	for i, d := range ds {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(d.k + ": " + d.v + ";")
	}
	return sb.String()
}

func kebab(k string) string {
	if strings.HasPrefix(k, "--") {
		return k
	}
	var sb strings.Builder
	for _, r := range k {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + 'a' - 'A')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// parseStyle keeps the declarations in source order, a later duplicate
// overrides an earlier one.
func parseStyle(st string) (ds []decl) {
	p := css.NewParser(parse.NewInputString(st), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			break
		} else if gt != css.DeclarationGrammar && gt != css.CustomPropertyGrammar {
			continue
		}
		k := strings.ToLower(string(data))
		var sb strings.Builder
		for _, val := range p.Values() {
			if val.TokenType == css.WhitespaceToken {
				sb.WriteString(" ")
			} else {
				sb.WriteString(string(val.Data))
			}
		}
		v := strings.TrimSpace(sb.String())
		replaced := false
		for i := range ds {
			if ds[i].k == k {
				ds[i].v = v
				replaced = true
			}
		}
		if !replaced {
			ds = append(ds, decl{k: k, v: v})
		}
	}
	return
}
