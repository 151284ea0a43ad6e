package design

// Kind is the closed set of node categories the compiler dispatches on.
type Kind int

const (
	// KindContainer owns child nodes.
	KindContainer Kind = iota
	// KindText carries characters and styled runs.
	KindText
	// KindShape is a primitive that can be drawn with a styled table cell.
	KindShape
	// KindImage can only be reproduced as a bitmap.
	KindImage
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindText:
		return "text"
	case KindShape:
		return "shape"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Host node types.
const (
	TypeFrame     = "FRAME"
	TypeGroup     = "GROUP"
	TypeComponent = "COMPONENT"
	TypeInstance  = "INSTANCE"
	TypeSection   = "SECTION"
	TypeText      = "TEXT"
	TypeRectangle = "RECTANGLE"
	TypeEllipse   = "ELLIPSE"
	TypeLine      = "LINE"
	TypePolygon   = "POLYGON"
	TypeStar      = "STAR"
	TypeVector    = "VECTOR"
)

// Box is an axis-aligned bounding box in design units.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of b.
func (b Box) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains reports whether (x, y) lies inside b grown by margin on every side.
// Edges are inclusive.
func (b Box) Contains(x, y, margin float64) bool {
	return x >= b.X-margin && x <= b.X+b.Width+margin &&
		y >= b.Y-margin && y <= b.Y+b.Height+margin
}

// Node is one element of the design tree.
type Node struct {
	ID   string
	Name string
	// Type is the host type string, e.g. "FRAME" or "ELLIPSE".
	Type string
	// Box is the absolute bounding box; nil when the host could not
	// resolve one.
	Box          *Box
	Visible      bool
	Fills        []Paint
	Strokes      []Paint
	StrokeWeight float64
	Corners      CornerRadius
	// Text is set for text nodes only.
	Text     *Text
	Children []*Node
}

// Kind folds the host type into the closed kind set.
func (n *Node) Kind() Kind {
	switch n.Type {
	case TypeFrame, TypeGroup, TypeComponent, TypeInstance, TypeSection:
		return KindContainer
	case TypeText:
		return KindText
	case TypeRectangle, TypeEllipse, TypeLine, TypePolygon, TypeStar, TypeVector:
		return KindShape
	}
	return KindImage
}

// FirstFill returns the first fill, if any.
func (n *Node) FirstFill() (Paint, bool) {
	if len(n.Fills) == 0 {
		return Paint{}, false
	}
	return n.Fills[0], true
}

// HasImageFill reports whether any fill references an image.
func (n *Node) HasImageFill() bool {
	for _, f := range n.Fills {
		if f.Type == PaintImage {
			return true
		}
	}
	return false
}

// Walk calls fn for n and every descendant in document order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ImageRefs returns the image references used by fills in the subtree, in
// document order and without duplicates.
func (n *Node) ImageRefs() []string {
	var refs []string
	seen := make(map[string]bool)
	n.Walk(func(c *Node) bool {
		for _, f := range c.Fills {
			if f.Type == PaintImage && f.ImageRef != "" && !seen[f.ImageRef] {
				seen[f.ImageRef] = true
				refs = append(refs, f.ImageRef)
			}
		}
		return true
	})
	return refs
}

// CornerKind distinguishes how a corner radius was specified.
type CornerKind int

const (
	CornerNone CornerKind = iota
	CornerUniform
	CornerMixed
)

// CornerRadius is either absent, one radius for all corners, or four
// individual radii.
type CornerRadius struct {
	Kind        CornerKind
	Radius      float64
	TopLeft     float64
	TopRight    float64
	BottomRight float64
	BottomLeft  float64
}

// Uniform returns a radius applied to every corner.
func Uniform(r float64) CornerRadius {
	return CornerRadius{Kind: CornerUniform, Radius: r}
}

// Mixed returns per-corner radii in clockwise order from the top-left.
func Mixed(tl, tr, br, bl float64) CornerRadius {
	return CornerRadius{Kind: CornerMixed, TopLeft: tl, TopRight: tr, BottomRight: br, BottomLeft: bl}
}
