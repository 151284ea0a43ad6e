package design

import (
	"fmt"
	"math"
)

// PaintType is the host paint type string.
type PaintType string

const (
	PaintSolid PaintType = "SOLID"
	PaintImage PaintType = "IMAGE"
)

// Color is an RGB color with channels in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// White is pure white.
var White = Color{R: 1, G: 1, B: 1}

// Hex returns the color as a lower-case #rrggbb string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

// RGBA returns the color as an rgba() expression with the given alpha.
func (c Color) RGBA(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", channel(c.R), channel(c.G), channel(c.B), FormatNumber(alpha))
}

// Brightness returns the perceived brightness on a 0..255 scale using the
// ITU-R 601 luma weights.
func (c Color) Brightness() float64 {
	return (c.R*299 + c.G*587 + c.B*114) * 255 / 1000
}

// NearWhite reports whether every channel is above 0.95.
func (c Color) NearWhite() bool {
	return c.R > 0.95 && c.G > 0.95 && c.B > 0.95
}

func channel(v float64) int {
	n := int(math.Floor(v*255 + 0.5))
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}
	return n
}

// Paint is one fill or stroke layer.
type Paint struct {
	Type     PaintType
	Color    Color
	Opacity  float64
	ImageRef string
}

// Solid returns an opaque solid paint.
func Solid(c Color) Paint {
	return Paint{Type: PaintSolid, Color: c, Opacity: 1}
}

// ImageFill returns an opaque image paint.
func ImageFill(ref string) Paint {
	return Paint{Type: PaintImage, ImageRef: ref, Opacity: 1}
}

// IsSolid reports whether p is a solid color paint.
func (p Paint) IsSolid() bool { return p.Type == PaintSolid }

// FormatNumber formats v the shortest way that round-trips, so 12 prints as
// "12" and 9.75 as "9.75".
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%v", v)
}
