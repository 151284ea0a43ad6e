// Package export walks a design frame and produces an email payload.
//
// # Walk
//
// [Exporter.Export] validates the root, charges one credit per
// [table]-marked container, derives the background from the root's first
// fill and then visits the root's visible children top to bottom. Each child
// becomes at most one fragment:
//
//  1. [table] containers are synthesized into data tables
//  2. [gif] <id> nodes reference an external ./images/<id>.gif
//  3. text nodes are styled as spans
//  4. primitive shapes without image fills become styled cells
//  5. anything else is rasterized to image-<n>.png
//
// A [link] <url> node additionally gets a low-resolution preview and a
// placeholder wrapper so the link can be reconstructed downstream.
//
// # Offsets
//
// Synthesized tables usually render taller than the text cluster they
// replace. The walker threads an accumulator through the children and pushes
// every later sibling down by the rounded-up difference.
//
// # Failures
//
// Selection and quota errors abort the export before anything is rendered.
// A node whose rasterization fails is logged and omitted; the rest of the
// export continues.
package export
