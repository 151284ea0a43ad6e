package email

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matzehuels/mailframe/pkg/render"
)

// Convert compiles assembled absolute markup, such as the output of
// [Positioned], into a table-layout document of the given width.
//
// Only tables whose own style declares position:absolute are lifted; tables
// nested inside them are left alone. When no such table exists the input is
// returned unchanged.
func Convert(markup string, width int, bg Background) (string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return "", err
	}

	var tables []*html.Node
	for _, n := range nodes {
		tables = appendPositioned(tables, n)
	}
	if len(tables) == 0 {
		return markup, nil
	}

	units := make([]unit, 0, len(tables))
	for _, t := range tables {
		u, err := lift(t, width)
		if err != nil {
			return "", err
		}
		units = append(units, u)
	}
	return build(units, width, bg), nil
}

// appendPositioned collects absolutely positioned tables in document order
// without descending into them.
func appendPositioned(out []*html.Node, n *html.Node) []*html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		if v, ok := lookup(parseStyle(attr(n, "style")), "position"); ok && strings.EqualFold(v, "absolute") {
			return append(out, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = appendPositioned(out, c)
	}
	return out
}

// lift reads a positioned table's geometry, strips its positioning and
// serializes it, promoting a link wrapper when present.
func lift(t *html.Node, width int) (unit, error) {
	decls := parseStyle(attr(t, "style"))

	u := unit{width: width, textAlign: "left", verticalAlign: "top"}
	if v, ok := lookup(decls, "top"); ok {
		u.top = leadingInt(v)
	}
	if v, ok := lookup(decls, "left"); ok {
		u.left = leadingInt(v)
	}
	if v, ok := lookup(decls, "width"); ok {
		if n, ok := digits(v); ok {
			u.width = min(n, width)
		}
	}
	if v, ok := lookup(decls, "text-align"); ok && v != "" {
		u.textAlign = v
	} else if a := attr(t, "align"); a != "" {
		u.textAlign = a
	}
	if v, ok := lookup(decls, "vertical-align"); ok && v != "" {
		u.verticalAlign = v
	} else if a := attr(t, "valign"); a != "" {
		u.verticalAlign = a
	}
	u.height = heightOf(t, decls)

	setAttr(t, "style", formatStyle(without(decls, "position", "top", "left")))

	el := t
	if p := t.Parent; p != nil && p.Type == html.ElementNode {
		if (p.DataAtom == atom.A && attr(p, "href") != "") || hasAttr(p, render.LinkPlaceholderAttr) {
			el = p
			u.link = true
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, el); err != nil {
		return unit{}, err
	}
	u.markup = buf.String()
	return u, nil
}

// heightOf returns the declared height of a table (style, then attribute,
// then DefaultHeight) plus its vertical padding.
func heightOf(t *html.Node, decls []declaration) int {
	h := 0
	if v, ok := lookup(decls, "height"); ok {
		if n, ok := digits(v); ok {
			h = n
		}
	}
	if h == 0 {
		h = leadingInt(attr(t, "height"))
	}
	if h == 0 {
		h = DefaultHeight
	}
	if v, ok := lookup(decls, "padding-top"); ok {
		h += leadingInt(v)
	}
	if v, ok := lookup(decls, "padding-bottom"); ok {
		h += leadingInt(v)
	}
	return h
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
