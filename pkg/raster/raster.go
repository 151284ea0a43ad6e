// Package raster draws design subtrees to PNG with fogleman/gg.
//
// It is the reference [design.Rasterizer]: solid and image fills, uniform
// and per-corner radii, ellipses, strokes and text are drawn; effects,
// gradients and vector paths are approximated by their bounding shapes.
// The canvas is the node's bounding box multiplied by the scale.
package raster

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/fonts"
)

// MaxPixels bounds the canvas area.
const MaxPixels = 8192 * 8192

// Rasterizer renders nodes. Images and Fonts are optional; without Images
// image fills are skipped, without Fonts text uses the Go fonts.
type Rasterizer struct {
	Images design.ImageSource
	Fonts  *fonts.Loader
	Logger *log.Logger
}

// New returns a rasterizer.
func New(images design.ImageSource, loader *fonts.Loader, logger *log.Logger) *Rasterizer {
	return &Rasterizer{Images: images, Fonts: loader, Logger: logger}
}

// Rasterize draws n and its visible descendants and encodes the result as
// PNG. The node itself is drawn even when hidden.
func (r *Rasterizer) Rasterize(ctx context.Context, n *design.Node, scale float64) ([]byte, error) {
	if n == nil || n.Box == nil {
		return nil, errors.New(errors.ErrCodeResource, "node has no bounding box")
	}
	if scale <= 0 {
		scale = 1
	}
	w := max(1, int(math.Ceil(n.Box.Width*scale)))
	h := max(1, int(math.Ceil(n.Box.Height*scale)))
	if w*h > MaxPixels {
		return nil, errors.New(errors.ErrCodeResource, "node %q too large to rasterize (%dx%d)", n.Name, w, h)
	}

	dc := gg.NewContext(w, h)
	dc.Scale(scale, scale)
	dc.Translate(-n.Box.X, -n.Box.Y)

	p := &painter{r: r, dc: dc}
	if err := p.node(ctx, n); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeResource, err, "encode png")
	}
	return buf.Bytes(), nil
}

type painter struct {
	r  *Rasterizer
	dc *gg.Context
}

func (p *painter) node(ctx context.Context, n *design.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Box != nil {
		for _, f := range n.Fills {
			p.fill(ctx, n, f)
		}
		if n.Kind() == design.KindText {
			p.text(n)
		}
		p.stroke(n)
	}
	for _, c := range n.Children {
		if !c.Visible {
			continue
		}
		if err := p.node(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *painter) fill(ctx context.Context, n *design.Node, f design.Paint) {
	if n.Kind() == design.KindText {
		return
	}
	switch f.Type {
	case design.PaintSolid:
		p.outline(n)
		p.dc.SetRGBA(f.Color.R, f.Color.G, f.Color.B, f.Opacity)
		p.dc.Fill()
	case design.PaintImage:
		p.image(ctx, n, f)
	}
}

func (p *painter) image(ctx context.Context, n *design.Node, f design.Paint) {
	if p.r.Images == nil || f.ImageRef == "" {
		return
	}
	data, err := p.r.Images.ImageBytes(ctx, f.ImageRef)
	if err != nil {
		p.r.logger().Warn("image fill unavailable", "node", n.Name, "ref", f.ImageRef, "err", err)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		p.r.logger().Warn("image fill undecodable", "node", n.Name, "ref", f.ImageRef, "err", err)
		return
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}

	box := n.Box
	p.dc.Push()
	p.outline(n)
	p.dc.Clip()
	p.dc.Translate(box.X, box.Y)
	p.dc.Scale(box.Width/float64(b.Dx()), box.Height/float64(b.Dy()))
	p.dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	p.dc.ResetClip()
	p.dc.Pop()
}

func (p *painter) stroke(n *design.Node) {
	if len(n.Strokes) == 0 || n.StrokeWeight <= 0 || !n.Strokes[0].IsSolid() {
		return
	}
	s := n.Strokes[0]
	p.outline(n)
	p.dc.SetRGBA(s.Color.R, s.Color.G, s.Color.B, s.Opacity)
	p.dc.SetLineWidth(n.StrokeWeight)
	p.dc.Stroke()
}

// outline adds the node's shape to the current path.
func (p *painter) outline(n *design.Node) {
	b := n.Box
	if n.Type == design.TypeEllipse {
		p.dc.DrawEllipse(b.X+b.Width/2, b.Y+b.Height/2, b.Width/2, b.Height/2)
		return
	}
	c := n.Corners
	switch c.Kind {
	case design.CornerUniform:
		if c.Radius > 0 {
			p.dc.DrawRoundedRectangle(b.X, b.Y, b.Width, b.Height, c.Radius)
			return
		}
	case design.CornerMixed:
		p.mixed(*b, c)
		return
	}
	p.dc.DrawRectangle(b.X, b.Y, b.Width, b.Height)
}

// mixed traces a rectangle with independent corner radii clockwise from
// the top-left.
func (p *painter) mixed(b design.Box, c design.CornerRadius) {
	limit := math.Min(b.Width, b.Height) / 2
	tl, tr := math.Min(c.TopLeft, limit), math.Min(c.TopRight, limit)
	br, bl := math.Min(c.BottomRight, limit), math.Min(c.BottomLeft, limit)
	x0, y0, x1, y1 := b.X, b.Y, b.X+b.Width, b.Y+b.Height

	dc := p.dc
	dc.NewSubPath()
	dc.MoveTo(x0+tl, y0)
	dc.LineTo(x1-tr, y0)
	dc.DrawArc(x1-tr, y0+tr, tr, -math.Pi/2, 0)
	dc.LineTo(x1, y1-br)
	dc.DrawArc(x1-br, y1-br, br, 0, math.Pi/2)
	dc.LineTo(x0+bl, y1)
	dc.DrawArc(x0+bl, y1-bl, bl, math.Pi/2, math.Pi)
	dc.LineTo(x0, y0+tl)
	dc.DrawArc(x0+tl, y0+tl, tl, math.Pi, 3*math.Pi/2)
	dc.ClosePath()
}

// text draws each run as its own wrapped block, stacked vertically. Run
// styling within a line is not mixed.
func (p *painter) text(n *design.Node) {
	t := n.Text
	if t == nil {
		return
	}
	b := n.Box
	y := b.Y
	align := alignOf(t.Align)
	for _, run := range t.Segments() {
		s := t.Slice(run)
		if s == "" {
			continue
		}
		face := p.r.fonts().Face(run.Font, run.Size)
		p.dc.SetFontFace(face)
		color := design.Color{}
		alpha := 1.0
		if len(run.Fills) > 0 && run.Fills[0].IsSolid() {
			color, alpha = run.Fills[0].Color, run.Fills[0].Opacity
		}
		p.dc.SetRGBA(color.R, color.G, color.B, alpha)

		spacing := lineSpacing(run.LineHeight, run.Size, p.dc.FontHeight())
		lines := p.dc.WordWrap(s, b.Width)
		p.dc.DrawStringWrapped(s, b.X, y, 0, 0, b.Width, spacing, align)
		y += float64(len(lines)) * p.dc.FontHeight() * spacing
	}
}

func alignOf(a string) gg.Align {
	switch strings.ToUpper(a) {
	case "CENTER":
		return gg.AlignCenter
	case "RIGHT":
		return gg.AlignRight
	}
	return gg.AlignLeft
}

// lineSpacing converts a design line height to gg's multiple of the font
// height.
func lineSpacing(lh design.LineHeight, size, fontHeight float64) float64 {
	if fontHeight <= 0 {
		return 1
	}
	switch lh.Unit {
	case design.LineHeightPixels:
		return lh.Value / fontHeight
	case design.LineHeightPercent:
		return lh.Value / 100 * size / fontHeight
	}
	return 1.2
}

var (
	goFonts = fonts.NewLoader()
	discard = log.NewWithOptions(io.Discard, log.Options{})
)

func (r *Rasterizer) fonts() *fonts.Loader {
	if r.Fonts == nil {
		return goFonts
	}
	return r.Fonts
}

func (r *Rasterizer) logger() *log.Logger {
	if r.Logger == nil {
		return discard
	}
	return r.Logger
}

var _ design.Rasterizer = (*Rasterizer)(nil)
