package render

import (
	"math"
	"strings"

	"golang.org/x/net/html"
)

// FragmentKind records which renderer produced a fragment.
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentShape
	FragmentImage
	FragmentTable
)

// String returns the lower-case kind name.
func (k FragmentKind) String() string {
	switch k {
	case FragmentText:
		return "text"
	case FragmentShape:
		return "shape"
	case FragmentImage:
		return "image"
	case FragmentTable:
		return "table"
	}
	return "unknown"
}

// LinkPlaceholderAttr marks the container that wraps a linked fragment until
// the link is reconstructed downstream.
const LinkPlaceholderAttr = "data-link-placeholder-id"

// Link identifies the placeholder wrapping a linked fragment.
type Link struct {
	ID  string
	URL string
}

// Fragment is one positioned markup unit.
type Fragment struct {
	Kind FragmentKind
	Box  BoxStyle
	// Body is the table content inside the positioning table, starting
	// with <tr>.
	Body string
	Link *Link
	// Height is the vertical extent used for container sizing. It equals
	// Box.Height for declared heights and the expected height for
	// synthesized tables.
	Height int
}

// WithLink returns a copy of f wrapped in a link placeholder.
func (f Fragment) WithLink(l Link) Fragment {
	f.Link = &l
	return f
}

// Markup returns the absolutely positioned form, including the link
// placeholder when present.
func (f Fragment) Markup() string {
	t := presentationTable(f.Box.String(), f.Body)
	if f.Link != nil {
		return WrapLink(f.Link.ID, t)
	}
	return t
}

// StaticMarkup returns the table with its positioning declarations removed.
// The link placeholder is not included.
func (f Fragment) StaticMarkup() string {
	return presentationTable(f.Box.Static(), f.Body)
}

// WrapLink wraps markup in a link placeholder container.
func WrapLink(id, markup string) string {
	return `<div ` + LinkPlaceholderAttr + `="` + html.EscapeString(id) + `">` + markup + `</div>`
}

// presentationTable is the single-cell layout table every fragment uses.
func presentationTable(style, body string) string {
	var b strings.Builder
	b.WriteString(`<table role="presentation" border="0" cellpadding="0" cellspacing="0"`)
	if style != "" {
		b.WriteString(` style="`)
		b.WriteString(style)
		b.WriteString(`"`)
	}
	b.WriteString(`>`)
	b.WriteString(body)
	b.WriteString(`</table>`)
	return b.String()
}

// Round rounds half up, matching the coordinate rounding of the design tool.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
