package render

import (
	"strconv"
	"strings"

	"github.com/matzehuels/mailframe/pkg/design"
)

// Declarations accumulates inline CSS in insertion order and serializes it
// as "prop:value;" pairs separated by single spaces.
type Declarations struct {
	parts []string
}

// Add appends one declaration.
func (d *Declarations) Add(prop, value string) {
	d.parts = append(d.parts, prop+":"+value+";")
}

func (d *Declarations) String() string {
	return strings.Join(d.parts, " ")
}

// Px formats a whole pixel length.
func Px(v int) string { return strconv.Itoa(v) + "px" }

// BoxStyle positions a fragment's outer table relative to the export root.
type BoxStyle struct {
	Left, Top, Width, Height int
	// HasHeight is false for fragments whose height is left to content.
	HasHeight bool
}

// String returns the absolutely positioned declarations.
func (s BoxStyle) String() string {
	var d Declarations
	d.Add("position", "absolute")
	d.Add("left", Px(s.Left))
	d.Add("top", Px(s.Top))
	s.size(&d)
	return d.String()
}

// Static returns the declarations without position, top and left.
func (s BoxStyle) Static() string {
	var d Declarations
	s.size(&d)
	return d.String()
}

func (s BoxStyle) size(d *Declarations) {
	d.Add("width", Px(s.Width))
	if s.HasHeight {
		d.Add("height", Px(s.Height))
	}
}

// CellStyle styles the single cell of a shape fragment.
type CellStyle struct {
	Width, Height int
	Background    string
	Border        string
	Radius        string
}

// String returns the cell declarations.
func (s CellStyle) String() string {
	var d Declarations
	d.Add("width", Px(s.Width))
	d.Add("height", Px(s.Height))
	d.Add("box-sizing", "border-box")
	if s.Background != "" {
		d.Add("background-color", s.Background)
	}
	if s.Border != "" {
		d.Add("border", s.Border)
	}
	if s.Radius != "" {
		d.Add("border-radius", s.Radius)
	}
	return d.String()
}

// ParagraphStyle carries the paragraph-level text rules.
type ParagraphStyle struct {
	// Align is the CSS text-align value.
	Align      string
	LineHeight design.LineHeight
	// Wrap selects the inline-block wrapping variant used in table cells.
	// Positioned text does not wrap.
	Wrap bool
}

// String returns the paragraph declarations.
func (s ParagraphStyle) String() string {
	var d Declarations
	d.Add("padding", "0")
	d.Add("margin", "0")
	d.Add("text-align", s.Align)
	if s.Wrap {
		d.Add("white-space", "normal")
		d.Add("word-wrap", "break-word")
		d.Add("display", "inline-block")
	} else {
		d.Add("white-space", "nowrap")
	}
	switch s.LineHeight.Unit {
	case design.LineHeightPixels:
		d.Add("line-height", Px(Round(s.LineHeight.Value)))
		d.Add("mso-line-height-rule", "exactly")
	case design.LineHeightPercent:
		d.Add("line-height", design.FormatNumber(s.LineHeight.Value)+"%")
	}
	return d.String()
}

// SpanStyle styles one text run.
type SpanStyle struct {
	Family     string
	SizePt     float64
	Weight     float64
	Color      string
	LineHeight design.LineHeight
	Decoration string
}

// String returns the span declarations.
func (s SpanStyle) String() string {
	var d Declarations
	d.Add("font-family", "'"+s.Family+"', Arial, Verdana, sans-serif")
	d.Add("font-size", design.FormatNumber(s.SizePt)+"pt")
	d.Add("font-weight", design.FormatNumber(s.Weight))
	if s.Color != "" {
		d.Add("color", s.Color)
	}
	switch s.LineHeight.Unit {
	case design.LineHeightPixels:
		d.Add("line-height", Px(Round(s.LineHeight.Value)))
	case design.LineHeightPercent:
		d.Add("line-height", design.FormatNumber(s.LineHeight.Value)+"%")
	}
	if s.Decoration != "" {
		d.Add("text-decoration", s.Decoration)
	}
	return d.String()
}
