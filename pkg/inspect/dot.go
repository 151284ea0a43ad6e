package inspect

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the node type and bounding box to labels.
	Detailed bool
	// Hidden includes invisible nodes.
	Hidden bool
}

// ToDOT converts the subtree rooted at root to DOT, top to bottom.
func ToDOT(root *design.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	var edges []string
	root.Walk(func(n *design.Node) bool {
		if !n.Visible && !opts.Hidden && n != root {
			return false
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, opts), ", "))
		for _, c := range n.Children {
			if c.Visible || opts.Hidden {
				edges = append(edges, fmt.Sprintf("  %q -> %q;\n", n.ID, c.ID))
			}
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *design.Node, detailed bool) string {
	label := n.Name
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}
	parts := []string{label, strings.ToLower(n.Type) + " · " + n.Kind().String()}
	if n.Box != nil {
		parts = append(parts, fmt.Sprintf("%d,%d %dx%d",
			render.Round(n.Box.X), render.Round(n.Box.Y), render.Round(n.Box.Width), render.Round(n.Box.Height)))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *design.Node, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	style := "rounded,filled"
	if n.Kind() != design.KindContainer {
		style = "filled"
	}
	if !n.Visible {
		style += ",dashed"
		attrs = append(attrs, "fontcolor=gray50")
	}
	switch d := design.ParseDirective(n.Name); {
	case design.IsTable(n):
		attrs = append(attrs, "fillcolor=lightblue")
	case d.Kind == design.DirectiveLink:
		attrs = append(attrs, "color=blue", "penwidth=2")
	case d.Kind == design.DirectiveGIF:
		attrs = append(attrs, "color=darkorange", "penwidth=2")
	case d.Kind == design.DirectiveTransparent:
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return append(attrs, fmt.Sprintf("style=%q", style))
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's pt-sized root element with a
// zero-origin viewBox sized in pixels.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
