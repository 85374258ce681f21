package form

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/almostacms/almostacms/internal/content"
)

// Kind is the editing control a field is rendered with.
type Kind int

const (
	KindText      Kind = iota // single-line text
	KindMultiline             // multi-line text area
	KindURL                   // text with URL semantics
	KindEmail                 // text with email semantics
	KindNumber                // numeric input, coerced on write
	KindToggle                // boolean switch
	KindGroup                 // nested object, collapsible
	KindList                  // array with add/remove/move
)

var kindNames = map[Kind]string{
	KindText:      "text",
	KindMultiline: "textarea",
	KindURL:       "url",
	KindEmail:     "email",
	KindNumber:    "number",
	KindToggle:    "boolean",
	KindGroup:     "group",
	KindList:      "list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsText reports whether the field is edited as free text.
func (k Kind) IsText() bool {
	switch k {
	case KindText, KindMultiline, KindURL, KindEmail, KindNumber:
		return true
	}
	return false
}

// rule maps a (key, value) pair to a Kind when it matches.
type rule struct {
	name  string
	match func(lowerKey string, v content.Value) bool
	kind  Kind
}

func keyContains(subs ...string) func(string, content.Value) bool {
	return func(lowerKey string, _ content.Value) bool {
		for _, s := range subs {
			if strings.Contains(lowerKey, s) {
				return true
			}
		}
		return false
	}
}

// inference is evaluated top to bottom; the first match wins. Value-type
// rules come before key-name rules so {"linkCount": 3} stays numeric.
var inference = []rule{
	{name: "boolean value", kind: KindToggle, match: func(_ string, v content.Value) bool { return v.Kind() == content.Bool }},
	{name: "number value", kind: KindNumber, match: func(_ string, v content.Value) bool { return v.Kind() == content.Number }},
	{name: "url key", kind: KindURL, match: keyContains("url", "link", "href")},
	{name: "email key", kind: KindEmail, match: keyContains("email")},
	{name: "long text key", kind: KindMultiline, match: keyContains("description", "text", "content")},
}

// InferKind picks the control for a primitive value stored under key.
// Objects and arrays map to KindGroup and KindList.
func InferKind(key string, v content.Value) Kind {
	switch v.Kind() {
	case content.Object:
		return KindGroup
	case content.Array:
		return KindList
	}
	lower := strings.ToLower(key)
	for _, r := range inference {
		if r.match(lower, v) {
			return r.kind
		}
	}
	return KindText
}

// Label turns a document key into UI text: "ogImage" becomes "Og Image" and
// "google_analytics_id" becomes "Google analytics id".
func Label(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteRune(r)
		case r == '_':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if r, size := utf8.DecodeRuneInString(s); size > 0 && r != utf8.RuneError {
		s = string(unicode.ToUpper(r)) + s[size:]
	}
	return strings.TrimSpace(s)
}

// singular drops the last character of a list label, so "Links" gives "Link".
func singular(label string) string {
	r := []rune(label)
	if len(r) == 0 {
		return ""
	}
	return string(r[:len(r)-1])
}
