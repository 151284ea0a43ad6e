package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func rgba(c color.Color) (uint8, uint8, uint8, uint8) {
	r, g, b, a := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)
}

func TestRasterizeSolid(t *testing.T) {
	n := &design.Node{
		Name:    "red box",
		Type:    design.TypeRectangle,
		Visible: true,
		Box:     &design.Box{X: 100, Y: 50, Width: 20, Height: 10},
		Fills:   []design.Paint{design.Solid(design.Color{R: 1})},
	}
	tests := []struct {
		scale float64
		w, h  int
	}{
		{1, 20, 10},
		{2, 40, 20},
	}
	for _, tt := range tests {
		data, err := New(nil, nil, nil).Rasterize(context.Background(), n, tt.scale)
		if err != nil {
			t.Fatal(err)
		}
		img := decode(t, data)
		if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("scale %v: size %dx%d, want %dx%d", tt.scale, b.Dx(), b.Dy(), tt.w, tt.h)
		}
		r, g, b, a := rgba(img.At(tt.w/2, tt.h/2))
		if r != 255 || g != 0 || b != 0 || a != 255 {
			t.Errorf("scale %v: center = (%d,%d,%d,%d), want opaque red", tt.scale, r, g, b, a)
		}
	}
}

func TestRasterizeSkipsHiddenChildren(t *testing.T) {
	root := &design.Node{
		Type: design.TypeFrame, Visible: true,
		Box: &design.Box{Width: 10, Height: 10},
		Children: []*design.Node{{
			Type: design.TypeRectangle, Visible: false,
			Box:   &design.Box{Width: 10, Height: 10},
			Fills: []design.Paint{design.Solid(design.Color{B: 1})},
		}},
	}
	data, err := New(nil, nil, nil).Rasterize(context.Background(), root, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := rgba(decode(t, data).At(5, 5)); a != 0 {
		t.Errorf("hidden child was drawn (alpha %d)", a)
	}
}

func TestRasterizeImageFill(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			src.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	doc := &design.Document{Images: map[string][]byte{"img": buf.Bytes()}}

	n := &design.Node{
		Type: design.TypeRectangle, Visible: true,
		Box:   &design.Box{Width: 8, Height: 8},
		Fills: []design.Paint{design.ImageFill("img")},
	}
	data, err := New(doc, nil, nil).Rasterize(context.Background(), n, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, g, _, _ := rgba(decode(t, data).At(4, 4)); g < 200 {
		t.Errorf("image fill not drawn, green = %d", g)
	}
}

func TestRasterizeText(t *testing.T) {
	n := &design.Node{
		Type: design.TypeText, Visible: true,
		Box: &design.Box{Width: 120, Height: 30},
		Text: &design.Text{
			Characters: "Hello",
			Style: design.TextStyle{
				Font:  design.FontName{Family: "Nowhere", Style: "Bold"},
				Size:  20,
				Fills: []design.Paint{design.Solid(design.Color{})},
			},
		},
	}
	data, err := New(nil, nil, nil).Rasterize(context.Background(), n, 1)
	if err != nil {
		t.Fatal(err)
	}
	img := decode(t, data)
	inked := false
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X && !inked; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if _, _, _, a := rgba(img.At(x, y)); a > 0 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Error("text produced no pixels")
	}
}

func TestRasterizeErrors(t *testing.T) {
	r := New(nil, nil, nil)
	if _, err := r.Rasterize(context.Background(), &design.Node{}, 1); !errors.Is(err, errors.ErrCodeResource) {
		t.Errorf("missing box error = %v", err)
	}

	huge := &design.Node{Box: &design.Box{Width: 100000, Height: 100000}}
	if _, err := r.Rasterize(context.Background(), huge, 1); !errors.Is(err, errors.ErrCodeResource) {
		t.Errorf("oversized error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Rasterize(ctx, &design.Node{Box: &design.Box{Width: 1, Height: 1}}, 1); err != context.Canceled {
		t.Errorf("canceled error = %v", err)
	}
}

func TestLineSpacing(t *testing.T) {
	tests := []struct {
		lh   design.LineHeight
		want float64
	}{
		{design.LineHeight{}, 1.2},
		{design.LineHeight{Unit: design.LineHeightPixels, Value: 30}, 1.5},
		{design.LineHeight{Unit: design.LineHeightPercent, Value: 150}, 1.5},
	}
	for _, tt := range tests {
		if got := lineSpacing(tt.lh, 20, 20); got != tt.want {
			t.Errorf("lineSpacing(%+v) = %v, want %v", tt.lh, got, tt.want)
		}
	}
}
