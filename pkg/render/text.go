package render

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/matzehuels/mailframe/pkg/design"
)

// PointsPerPixel converts design pixel sizes to the point sizes email
// clients expect.
const PointsPerPixel = 0.75

// Styler renders text nodes. Fonts referenced by a node are requested from
// Fonts before its runs are styled; a failed load is logged and the text
// still renders with the fallback font stack.
type Styler struct {
	Fonts  design.FontLoader
	Logger *log.Logger
}

// NewStyler returns a Styler. Either argument may be nil.
func NewStyler(fonts design.FontLoader, logger *log.Logger) *Styler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Styler{Fonts: fonts, Logger: logger}
}

// Text renders a text node as a positioned, non-wrapping cell at (x, y).
func (s *Styler) Text(ctx context.Context, n *design.Node, x, y float64) Fragment {
	t := textOf(n)
	para := ParagraphStyle{
		Align:      textAlign(t.Align),
		LineHeight: t.LineHeight,
	}
	w, h := Round(n.Box.Width), Round(n.Box.Height)
	return Fragment{
		Kind:   FragmentText,
		Box:    BoxStyle{Left: Round(x), Top: Round(y), Width: w, Height: h, HasHeight: true},
		Body:   `<tr><td style="` + para.String() + `">` + s.Spans(ctx, n) + `</td></tr>`,
		Height: h,
	}
}

// Cell renders a text node without positioning, wrapping inside its
// container. It is used for data table cells.
func (s *Styler) Cell(ctx context.Context, n *design.Node) string {
	t := textOf(n)
	para := ParagraphStyle{
		Align:      textAlign(t.Align),
		LineHeight: t.LineHeight,
		Wrap:       true,
	}
	return `<div style="` + para.String() + `">` + s.Spans(ctx, n) + `</div>`
}

// Spans returns one styled span per non-empty run of n.
func (s *Styler) Spans(ctx context.Context, n *design.Node) string {
	t := n.Text
	if t == nil {
		return ""
	}
	s.loadFonts(ctx, n)

	var b strings.Builder
	for _, run := range t.Segments() {
		chars := t.Slice(run)
		if chars == "" {
			continue
		}
		b.WriteString(`<span style="`)
		b.WriteString(spanStyle(run.TextStyle).String())
		b.WriteString(`">`)
		b.WriteString(strings.ReplaceAll(html.EscapeString(chars), "\n", "<br>"))
		b.WriteString(`</span>`)
	}
	return b.String()
}

func (s *Styler) loadFonts(ctx context.Context, n *design.Node) {
	if s.Fonts == nil {
		return
	}
	var failed []string
	var lastErr error
	for _, f := range n.Text.Fonts() {
		if err := s.Fonts.LoadFont(ctx, f); err != nil {
			failed = append(failed, f.Key())
			lastErr = err
		}
	}
	if len(failed) > 0 {
		s.Logger.Warn("could not load some fonts, using fallbacks",
			"node", n.ID, "fonts", strings.Join(failed, ","), "err", lastErr)
	}
}

func spanStyle(ts design.TextStyle) SpanStyle {
	st := SpanStyle{
		Family:     ts.Font.Family,
		SizePt:     ts.Size * PointsPerPixel,
		Weight:     ts.Weight,
		LineHeight: ts.LineHeight,
	}
	if len(ts.Fills) > 0 && ts.Fills[0].IsSolid() {
		st.Color = ts.Fills[0].Color.Hex()
	}
	switch ts.Decoration {
	case design.DecorationUnderline:
		st.Decoration = "underline"
	case design.DecorationStrikethrough:
		st.Decoration = "line-through"
	}
	return st
}

func textOf(n *design.Node) *design.Text {
	if n.Text == nil {
		return &design.Text{}
	}
	return n.Text
}

// textAlign maps a horizontal alignment to its CSS value.
func textAlign(align string) string {
	switch a := strings.ToLower(align); a {
	case "":
		return "left"
	case "justified":
		return "justify"
	default:
		return a
	}
}
