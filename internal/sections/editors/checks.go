package editors

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/language"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
	"github.com/almostacms/almostacms/internal/sections"
)

// Check inspects a whole document.
type Check func(doc content.Value) []sections.Problem

// Required reports each key of the object that is missing or blank.
func Required(keys ...string) Check {
	return func(doc content.Value) []sections.Problem {
		return requiredAt(doc, content.Root, keys)
	}
}

func requiredAt(obj content.Value, at content.Path, keys []string) []sections.Problem {
	var problems []sections.Problem
	for _, k := range keys {
		v, ok := obj.Get(k)
		if ok && v.Kind() != content.String && !v.IsNull() {
			continue
		}
		if ok && strings.TrimSpace(v.Str()) != "" {
			continue
		}
		problems = append(problems, sections.Problem{
			Path:    at.Child(content.Key(k)),
			Message: form.Label(k) + " is required",
		})
	}
	return problems
}

// EachItem runs inner against every object in the list stored under list,
// prefixing the problem paths. A missing list is not a problem.
func EachItem(list string, inner Check) Check {
	return func(doc content.Value) []sections.Problem {
		arr, ok := doc.Get(list)
		if !ok || arr.Kind() != content.Array {
			return nil
		}
		var problems []sections.Problem
		for i, item := range arr.Items() {
			if item.Kind() != content.Object {
				continue
			}
			at := content.P(list, i)
			for _, p := range inner(item) {
				p.Path = append(append(content.Path{}, at...), p.Path...)
				problems = append(problems, p)
			}
		}
		return problems
	}
}

// HexColors checks that each key, when set, holds a #rgb or #rrggbb color.
func HexColors(keys ...string) Check {
	return func(doc content.Value) []sections.Problem {
		var problems []sections.Problem
		for _, k := range keys {
			v, ok := doc.Get(k)
			if !ok || v.IsNull() || v.Str() == "" {
				continue
			}
			if !isHexColor(v.Str()) {
				problems = append(problems, sections.Problem{
					Path:    content.P(k),
					Message: fmt.Sprintf("%q is not a hex color", v.Str()),
				})
			}
		}
		return problems
	}
}

func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	if len(s) == 4 {
		// colorful.Hex wants six digits.
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	if len(s) != 7 {
		return false
	}
	_, err := colorful.Hex(s)
	return err == nil
}

// URLs checks every non-empty string the form renders as a URL field.
// Relative paths, fragments and mailto/tel links are accepted.
func URLs() Check {
	return func(doc content.Value) []sections.Problem {
		var problems []sections.Problem
		walkStrings(doc, content.Root, "", func(p content.Path, key string, v content.Value) {
			if form.InferKind(key, v) != form.KindURL || v.Str() == "" {
				return
			}
			if !isLink(v.Str()) {
				problems = append(problems, sections.Problem{
					Path:    p,
					Message: fmt.Sprintf("%q is not a valid URL", v.Str()),
				})
			}
		})
		return problems
	}
}

func isLink(s string) bool {
	for _, prefix := range []string{"/", "./", "../", "#"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto", "tel":
		return u.Opaque != ""
	}
	return false
}

// walkStrings visits each string leaf with the key that names it. List
// items inherit the key of their list.
func walkStrings(v content.Value, at content.Path, key string, visit func(content.Path, string, content.Value)) {
	switch v.Kind() {
	case content.String:
		visit(at, key, v)
	case content.Object:
		for _, m := range v.Members() {
			walkStrings(m.Value, at.Child(content.Key(m.Key)), m.Key, visit)
		}
	case content.Array:
		for i, it := range v.Items() {
			walkStrings(it, at.Child(content.Index(i)), key, visit)
		}
	}
}

// Language checks that key, when set, is a well-formed BCP 47 tag.
func Language(key string) Check {
	return func(doc content.Value) []sections.Problem {
		v, ok := doc.Get(key)
		if !ok || v.IsNull() || v.Str() == "" {
			return nil
		}
		if _, err := language.Parse(v.Str()); err != nil {
			return []sections.Problem{{
				Path:    content.P(key),
				Message: fmt.Sprintf("%q is not a language code", v.Str()),
			}}
		}
		return nil
	}
}
