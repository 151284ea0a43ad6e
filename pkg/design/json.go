package design

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/matzehuels/mailframe/pkg/errors"
)

type document struct {
	Name   string            `json:"name"`
	Nodes  []node            `json:"nodes"`
	Images map[string][]byte `json:"images,omitempty"`
}

type node struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Visible      *bool       `json:"visible,omitempty"`
	Box          *Box        `json:"absoluteBoundingBox,omitempty"`
	Fills        []paint     `json:"fills,omitempty"`
	Strokes      []paint     `json:"strokes,omitempty"`
	StrokeWeight float64     `json:"strokeWeight,omitempty"`
	CornerRadius *float64    `json:"cornerRadius,omitempty"`
	CornerRadii  []float64   `json:"rectangleCornerRadii,omitempty"`
	Characters   string      `json:"characters,omitempty"`
	TextAlign    string      `json:"textAlignHorizontal,omitempty"`
	LineHeight   *lineHeight `json:"lineHeight,omitempty"`
	Style        *textStyle  `json:"style,omitempty"`
	Segments     []segment   `json:"styledTextSegments,omitempty"`
	Children     []node      `json:"children,omitempty"`
}

type paint struct {
	Type     string   `json:"type"`
	Color    *Color   `json:"color,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	ImageRef string   `json:"imageRef,omitempty"`
}

type lineHeight struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value,omitempty"`
}

type fontName struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}

type textStyle struct {
	FontName       fontName    `json:"fontName"`
	FontWeight     float64     `json:"fontWeight,omitempty"`
	FontSize       float64     `json:"fontSize,omitempty"`
	Fills          []paint     `json:"fills,omitempty"`
	LineHeight     *lineHeight `json:"lineHeight,omitempty"`
	TextDecoration string      `json:"textDecoration,omitempty"`
}

type segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
	textStyle
}

// ReadJSON decodes a design document from r.
//
// ReadJSON returns an INVALID_DOCUMENT error if:
//   - The JSON is malformed
//   - A node has no id or a duplicate id
//   - A text segment lies outside its characters
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Document, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode design document")
	}

	doc := &Document{Name: data.Name, Images: data.Images}
	seen := make(map[string]bool)
	for _, raw := range data.Nodes {
		n, err := fromRaw(raw, seen)
		if err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	return doc, nil
}

// ImportJSON reads the design document at path.
func ImportJSON(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "design file %s not found", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes a document in the format read by [ReadJSON].
func WriteJSON(d *Document, w io.Writer) error {
	out := document{Name: d.Name, Images: d.Images}
	for _, n := range d.Nodes {
		out.Nodes = append(out.Nodes, toRaw(n))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalNode encodes a single subtree. The encoding is deterministic and is
// used to derive content hashes.
func MarshalNode(n *Node) ([]byte, error) {
	return json.Marshal(toRaw(n))
}

func fromRaw(raw node, seen map[string]bool) (*Node, error) {
	if raw.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "node %q has no id", raw.Name)
	}
	if seen[raw.ID] {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "duplicate node id %q", raw.ID)
	}
	seen[raw.ID] = true

	n := &Node{
		ID:           raw.ID,
		Name:         raw.Name,
		Type:         raw.Type,
		Box:          raw.Box,
		Visible:      raw.Visible == nil || *raw.Visible,
		Fills:        paintsFromRaw(raw.Fills),
		Strokes:      paintsFromRaw(raw.Strokes),
		StrokeWeight: raw.StrokeWeight,
		Corners:      cornersFromRaw(raw.CornerRadius, raw.CornerRadii),
	}

	if raw.Type == TypeText {
		t := &Text{
			Characters: raw.Characters,
			Align:      raw.TextAlign,
			LineHeight: lineHeightFromRaw(raw.LineHeight),
		}
		if t.Align == "" {
			t.Align = "LEFT"
		}
		style := textStyle{Fills: raw.Fills}
		if raw.Style != nil {
			style = *raw.Style
		}
		t.Style = styleFromRaw(style)
		length := utf8.RuneCountInString(raw.Characters)
		for _, s := range raw.Segments {
			if s.Start < 0 || s.End < s.Start || s.End > length {
				return nil, errors.New(errors.ErrCodeInvalidDocument,
					"node %q: segment [%d,%d) outside text of length %d", raw.ID, s.Start, s.End, length)
			}
			t.Runs = append(t.Runs, TextRun{Start: s.Start, End: s.End, TextStyle: styleFromRaw(s.textStyle)})
		}
		n.Text = t
	}

	for _, c := range raw.Children {
		child, err := fromRaw(c, seen)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func paintsFromRaw(raw []paint) []Paint {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Paint, len(raw))
	for i, p := range raw {
		out[i] = Paint{Type: PaintType(p.Type), ImageRef: p.ImageRef, Opacity: 1}
		if p.Color != nil {
			out[i].Color = *p.Color
		}
		if p.Opacity != nil {
			out[i].Opacity = *p.Opacity
		}
	}
	return out
}

func cornersFromRaw(radius *float64, radii []float64) CornerRadius {
	if len(radii) == 4 {
		if radii[0] == radii[1] && radii[1] == radii[2] && radii[2] == radii[3] {
			return Uniform(radii[0])
		}
		return Mixed(radii[0], radii[1], radii[2], radii[3])
	}
	if radius != nil {
		return Uniform(*radius)
	}
	return CornerRadius{}
}

func lineHeightFromRaw(raw *lineHeight) LineHeight {
	if raw == nil {
		return LineHeight{Unit: LineHeightAuto}
	}
	return LineHeight{Unit: LineHeightUnit(raw.Unit), Value: raw.Value}
}

func styleFromRaw(raw textStyle) TextStyle {
	s := TextStyle{
		Font:       FontName{Family: raw.FontName.Family, Style: raw.FontName.Style},
		Weight:     raw.FontWeight,
		Size:       raw.FontSize,
		Fills:      paintsFromRaw(raw.Fills),
		LineHeight: lineHeightFromRaw(raw.LineHeight),
		Decoration: Decoration(raw.TextDecoration),
	}
	if s.Decoration == "" {
		s.Decoration = DecorationNone
	}
	return s
}

func toRaw(n *Node) node {
	raw := node{
		ID:           n.ID,
		Name:         n.Name,
		Type:         n.Type,
		Box:          n.Box,
		Fills:        paintsToRaw(n.Fills),
		Strokes:      paintsToRaw(n.Strokes),
		StrokeWeight: n.StrokeWeight,
	}
	if !n.Visible {
		v := false
		raw.Visible = &v
	}
	switch n.Corners.Kind {
	case CornerUniform:
		r := n.Corners.Radius
		raw.CornerRadius = &r
	case CornerMixed:
		c := n.Corners
		raw.CornerRadii = []float64{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
	}
	if t := n.Text; t != nil {
		raw.Characters = t.Characters
		raw.TextAlign = t.Align
		raw.LineHeight = lineHeightToRaw(t.LineHeight)
		style := styleToRaw(t.Style)
		raw.Style = &style
		for _, r := range t.Runs {
			raw.Segments = append(raw.Segments, segment{Start: r.Start, End: r.End, textStyle: styleToRaw(r.TextStyle)})
		}
	}
	for _, c := range n.Children {
		raw.Children = append(raw.Children, toRaw(c))
	}
	return raw
}

func paintsToRaw(ps []Paint) []paint {
	if len(ps) == 0 {
		return nil
	}
	out := make([]paint, len(ps))
	for i, p := range ps {
		color := p.Color
		opacity := p.Opacity
		out[i] = paint{Type: string(p.Type), Opacity: &opacity, ImageRef: p.ImageRef}
		if p.Type != PaintImage {
			out[i].Color = &color
		}
	}
	return out
}

func lineHeightToRaw(lh LineHeight) *lineHeight {
	if lh.Unit == "" || lh.Unit == LineHeightAuto {
		return nil
	}
	return &lineHeight{Unit: string(lh.Unit), Value: lh.Value}
}

func styleToRaw(s TextStyle) textStyle {
	return textStyle{
		FontName:       fontName{Family: s.Font.Family, Style: s.Font.Style},
		FontWeight:     s.Weight,
		FontSize:       s.Size,
		Fills:          paintsToRaw(s.Fills),
		LineHeight:     lineHeightToRaw(s.LineHeight),
		TextDecoration: string(s.Decoration),
	}
}
