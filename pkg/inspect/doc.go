// Package inspect explains how a frame will be exported.
//
// # Rows
//
// [Rows] runs the frame-level row analysis over the root's visible children
// (see [layout.Frame]) and reports each band with its members, so a designer
// can check which elements will share a table row.
//
// # Diagrams
//
// [ToDOT] converts a design tree into Graphviz DOT source: containers are
// rounded boxes, directives are highlighted ([table] regions filled, links
// and gifs outlined in color) and hidden nodes are dashed. [RenderSVG]
// renders the DOT in-process:
//
//	dot := inspect.ToDOT(root, inspect.Options{Detailed: true})
//	svg, err := inspect.RenderSVG(ctx, dot)
//
// This package uses [github.com/goccy/go-graphviz] for rendering.
package inspect
