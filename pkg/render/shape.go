package render

import "github.com/matzehuels/mailframe/pkg/design"

// Shape renders a primitive shape at (x, y) relative to the export root.
// Only the first fill and first stroke are honored, and only when solid.
// Stroke weights and corner radii are rounded to whole pixels.
func Shape(n *design.Node, x, y float64) Fragment {
	w, h := Round(n.Box.Width), Round(n.Box.Height)
	cell := CellStyle{
		Width:  w,
		Height: h,
		Radius: radius(n),
	}
	if p, ok := n.FirstFill(); ok && p.IsSolid() {
		if p.Opacity == 1 {
			cell.Background = p.Color.Hex()
		} else {
			cell.Background = p.Color.RGBA(p.Opacity)
		}
	}
	if len(n.Strokes) > 0 && n.Strokes[0].IsSolid() && n.StrokeWeight > 0 {
		s := n.Strokes[0]
		cell.Border = Px(Round(n.StrokeWeight)) + " solid " + s.Color.RGBA(s.Opacity)
	}

	return Fragment{
		Kind:   FragmentShape,
		Box:    BoxStyle{Left: Round(x), Top: Round(y), Width: w, Height: h, HasHeight: true},
		Body:   `<tr><td style="` + cell.String() + `">&nbsp;</td></tr>`,
		Height: h,
	}
}

// radius returns the border-radius value for n. Ellipses are always fully
// rounded, whatever corner radius they carry.
func radius(n *design.Node) string {
	if n.Type == design.TypeEllipse {
		return "50%"
	}
	c := n.Corners
	switch c.Kind {
	case design.CornerUniform:
		return Px(Round(c.Radius))
	case design.CornerMixed:
		return Px(Round(c.TopLeft)) + " " + Px(Round(c.TopRight)) + " " +
			Px(Round(c.BottomRight)) + " " + Px(Round(c.BottomLeft))
	}
	return ""
}
