// Package design models the visual design tree that mailframe compiles into
// email markup.
//
// # Overview
//
// A design is a tree of [Node] values exported from a design tool: frames
// and groups that own children, text nodes with styled runs, primitive shapes
// and everything else that can only be reproduced as a bitmap. Every node
// carries an absolute bounding box, a visibility flag, fills, strokes and a
// corner radius. The tree is read-only input; nothing in mailframe mutates
// it.
//
// # Node Kinds
//
// The host type string ("FRAME", "TEXT", "ELLIPSE", ...) is folded into a
// closed [Kind]:
//
//   - [KindContainer]: FRAME, GROUP, COMPONENT, INSTANCE, SECTION
//   - [KindText]: TEXT
//   - [KindShape]: RECTANGLE, ELLIPSE, LINE, POLYGON, STAR, VECTOR
//   - [KindImage]: anything else (boolean operations, slices, ...)
//
// # Directives
//
// Node names may start with a directive that changes how the node is
// exported. Directives are literal, case-sensitive prefixes:
//
//	[table]        re-synthesize the container's text as a data table
//	[link] <url>   wrap the fragment in a link placeholder
//	[gif] <id>     reference an externally supplied animated image
//	[transparent]  rasterize without the node's own fills
//
// Use [ParseDirective] to read them.
//
// # JSON Format
//
// Documents are read with [ReadJSON] or [ImportJSON]. The format follows the
// field names of the common design-tool REST exports:
//
//	{
//	  "name": "Newsletter",
//	  "nodes": [{
//	    "id": "1:2", "name": "Hero", "type": "FRAME",
//	    "absoluteBoundingBox": {"x": 0, "y": 0, "width": 600, "height": 400},
//	    "fills": [{"type": "SOLID", "color": {"r": 1, "g": 1, "b": 1}}],
//	    "children": [...]
//	  }],
//	  "images": {"<imageRef>": "<base64 bytes>"}
//	}
//
// Omitted "visible" flags default to true, omitted paint opacities to 1.
//
// # Collaborators
//
// Rendering needs three capabilities the tree cannot provide itself:
// [Rasterizer] (node to PNG bytes), [FontLoader] and [ImageSource]. They are
// interfaces so that the host environment, the reference implementations in
// pkg/raster and pkg/fonts, and test fakes can be swapped freely.
package design
