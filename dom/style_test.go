package dom

import (
	"testing"
)

func TestKebab(t *testing.T) {
	for in, exp := range map[string]string{
		"backgroundColor":  "background-color",
		"display":          "display",
		"border-top-width": "border-top-width",
		"--mainColor":      "--mainColor",
	} {
		if res := kebab(in); res != exp {
			t.Fatalf("%v: %v", in, res)
		}
	}
}

func TestElementStyle(t *testing.T) {
	d := parseDoc(t)
	p := d.GetElementById("demo")
	s := p.Style()
	if v := s.Get("font-weight"); v != "bold" {
		t.Fatalf("%v", v)
	}
	if v := s.Get("fontWeight"); v != "bold" {
		t.Fatalf("%v", v)
	}
	s.Set("display", "none")
	s.Set("backgroundColor", "red")
	if v := s.CSSText(); v != "font-weight: bold; display: none; background-color: red;" {
		t.Fatalf("%v", v)
	}
	s.Set("display", "block")
	if s.Get("display") != "block" || s.Len() != 3 {
		t.Fatalf("%v", s.CSSText())
	}
	s.Remove("font-weight")
	s.Set("background-color", "")
	if v := p.GetAttribute("style"); v != "display: block;" {
		t.Fatalf("%v", v)
	}
	s.Remove("display")
	if p.HasAttribute("style") {
		t.Fatalf("%v", p.OuterHTML())
	}
}

func TestParseStyle(t *testing.T) {
	ds := parseStyle("color: red; border: 1px solid black; color: blue")
	if len(ds) != 2 {
		t.Fatalf("%v", ds)
	}
	if ds[0].k != "color" || ds[0].v != "blue" {
		t.Fatalf("%v", ds)
	}
	if ds[1].k != "border" || ds[1].v != "1px solid black" {
		t.Fatalf("%v", ds)
	}
}
