package design

import "unicode/utf8"

// LineHeightUnit is the unit of a line height value.
type LineHeightUnit string

const (
	LineHeightAuto    LineHeightUnit = "AUTO"
	LineHeightPixels  LineHeightUnit = "PIXELS"
	LineHeightPercent LineHeightUnit = "PERCENT"
)

// LineHeight is a line height with its unit. The zero value means auto.
type LineHeight struct {
	Unit  LineHeightUnit
	Value float64
}

// Decoration is a text decoration.
type Decoration string

const (
	DecorationNone          Decoration = "NONE"
	DecorationUnderline     Decoration = "UNDERLINE"
	DecorationStrikethrough Decoration = "STRIKETHROUGH"
)

// FontName identifies a font by family and style.
type FontName struct {
	Family string
	Style  string
}

// Key returns the deduplication key "family-style".
func (f FontName) Key() string {
	return f.Family + "-" + f.Style
}

// TextStyle is the per-run styling of text.
type TextStyle struct {
	Font       FontName
	Weight     float64
	Size       float64
	Fills      []Paint
	LineHeight LineHeight
	Decoration Decoration
}

// TextRun is a styled slice of the characters, as rune offsets [Start, End).
type TextRun struct {
	Start int
	End   int
	TextStyle
}

// Text is the textual content of a text node.
type Text struct {
	Characters string
	// Align is the horizontal alignment: LEFT, CENTER, RIGHT or JUSTIFIED.
	Align      string
	LineHeight LineHeight
	// Style applies to the whole text when Runs is empty.
	Style TextStyle
	Runs  []TextRun
}

// Segments returns the styled runs, or a single run spanning all characters
// when none were given.
func (t *Text) Segments() []TextRun {
	if len(t.Runs) > 0 {
		return t.Runs
	}
	return []TextRun{{
		Start:     0,
		End:       utf8.RuneCountInString(t.Characters),
		TextStyle: t.Style,
	}}
}

// Slice returns the characters of run r, clamped to the text bounds.
func (t *Text) Slice(r TextRun) string {
	runes := []rune(t.Characters)
	start, end := r.Start, r.End
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// Fonts returns the distinct fonts used by the segments, in first-use order.
func (t *Text) Fonts() []FontName {
	var fonts []FontName
	seen := make(map[string]bool)
	for _, s := range t.Segments() {
		if k := s.Font.Key(); !seen[k] {
			seen[k] = true
			fonts = append(fonts, s.Font)
		}
	}
	return fonts
}
