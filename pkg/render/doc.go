// Package render converts design nodes into positioned markup fragments.
//
// # Overview
//
// A [Fragment] is the unit every later stage works with: one absolutely
// positioned single-cell table per rendered node, or per synthesized data
// table. Fragments are immutable once built; the email assembler only
// repositions them.
//
// # Renderers
//
//   - [Shape] renders primitive shapes without image fills as a styled cell
//   - [Styler.Text] renders text nodes as run-level spans
//   - [Styler.Cell] is the bare, wrapping text variant used in table cells
//   - [Image] places a rasterized node or an externally supplied asset
//
// # Styles
//
// Inline styles are typed records ([BoxStyle], [CellStyle], [ParagraphStyle],
// [SpanStyle]) that serialize their declarations in a fixed order, so the
// same node always yields the same markup:
//
//	frag := render.Shape(node, 20, 40)
//	fmt.Println(frag.Markup())
//
// The [datatable] subpackage builds data tables from [table]-marked
// containers on top of these primitives.
//
// [datatable]: github.com/matzehuels/mailframe/pkg/render/datatable
package render
