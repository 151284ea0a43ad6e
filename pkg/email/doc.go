// Package email assembles rendered fragments into a complete email document.
//
// # Modes
//
// [Absolute] places every fragment at its absolute offset inside a
// relatively positioned container. It is faithful in browsers and in most
// webmail clients.
//
// [Compile] produces the table-layout variant. Each fragment becomes its own
// small table: a three-cell row (left spacer, content, right spacer) emulates
// the left offset, while linked fragments get a single cell so the anchor
// keeps its block width. The top offset is only given to Outlook, through an
// mso conditional copy of the table's opening tag; other clients stack the
// tables in document order, which is sorted by top.
//
// [Convert] runs the same compiler over already assembled absolute markup,
// re-deriving geometry from inline styles. Markup without absolutely
// positioned tables is returned unchanged, so converting a compiled document
// again is a no-op.
//
// # Background
//
// The root's first fill becomes a [Background]. It is emitted redundantly as
// bgcolor/background attributes, inline CSS and a VML rect so that every
// client picks up at least one of them.
package email
