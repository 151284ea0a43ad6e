package email

import (
	"strings"

	"github.com/matzehuels/mailframe/pkg/design"
)

// BackgroundKind distinguishes background specs.
type BackgroundKind int

const (
	BackgroundNone BackgroundKind = iota
	BackgroundColor
	BackgroundImage
)

// DefaultColor is the container color used when no solid background is set.
const DefaultColor = "#ffffff"

// Background is the root container's background.
type Background struct {
	Kind BackgroundKind
	// Value is a hex color or an asset path, depending on Kind.
	Value string
}

// ColorBackground returns a solid background.
func ColorBackground(hex string) Background {
	return Background{Kind: BackgroundColor, Value: hex}
}

// ImageBackground returns an image background referencing path.
func ImageBackground(path string) Background {
	return Background{Kind: BackgroundImage, Value: path}
}

// ParseBackground reads a background flag or request field: "#rrggbb" is a
// color, anything else an image path, and "" no background.
func ParseBackground(v string) Background {
	switch {
	case v == "":
		return Background{}
	case strings.HasPrefix(v, "#"):
		return ColorBackground(v)
	}
	return ImageBackground(v)
}

// SolidBackground derives a background from a solid paint.
func SolidBackground(p design.Paint) Background {
	return ColorBackground(p.Color.Hex())
}

// Color returns the solid color, or DefaultColor.
func (b Background) Color() string {
	if b.Kind == BackgroundColor {
		return b.Value
	}
	return DefaultColor
}

// Image returns the image path, or "".
func (b Background) Image() string {
	if b.Kind == BackgroundImage {
		return b.Value
	}
	return ""
}
