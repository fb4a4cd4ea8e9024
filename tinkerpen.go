// Package tinkerpen provides the core of a live HTML/CSS/JavaScript preview:
// fragment buffers, document assembly, HTML reformatting and the per-session
// preview controller.
package tinkerpen

import "fmt"

// Kind identifies one of the three fragment buffers.
type Kind string

const (
	KindHTML Kind = "html"
	KindCSS  Kind = "css"
	KindJS   Kind = "js"
)

// Kinds lists the fragment kinds in tab order.
var Kinds = []Kind{KindHTML, KindCSS, KindJS}

// ParseKind converts a tab or route name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindHTML, KindCSS, KindJS:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown fragment kind %q (expected html, css or js)", s)
	}
}

// Fragments holds the three independently edited source buffers.
// Any of them may be empty.
type Fragments struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Get returns the buffer for kind. Unknown kinds return "".
func (f Fragments) Get(kind Kind) string {
	switch kind {
	case KindHTML:
		return f.HTML
	case KindCSS:
		return f.CSS
	case KindJS:
		return f.JS
	}
	return ""
}

// With returns a copy of f with the buffer for kind replaced.
func (f Fragments) With(kind Kind, text string) Fragments {
	switch kind {
	case KindHTML:
		f.HTML = text
	case KindCSS:
		f.CSS = text
	case KindJS:
		f.JS = text
	}
	return f
}
