// Package datatable rebuilds a [table]-marked container as a bordered data
// table.
//
// Designers draw tables as loose groups of text layers over filled shapes.
// [Synthesize] recovers the grid from text positions alone: text leaves are
// bucketed into rows by their quantized top, each row is ordered left to
// right, and every cell takes its background from the filled shape found
// behind its center. Row 0 becomes the header.
//
// The rendered table is taller than the source group in most clients, so the
// result carries an estimated height ([RowHeight] per row plus
// [BorderOverhead]) that the caller uses to push later content down.
package datatable
