package design

import "context"

// Rasterizer turns a node subtree into PNG bytes at the given scale.
type Rasterizer interface {
	Rasterize(ctx context.Context, n *Node, scale float64) ([]byte, error)
}

// FontLoader makes a font available before its metrics are read.
type FontLoader interface {
	LoadFont(ctx context.Context, f FontName) error
}

// ImageSource resolves an image fill reference to its encoded bytes.
type ImageSource interface {
	ImageBytes(ctx context.Context, ref string) ([]byte, error)
}

// RasterizerFunc adapts a function to [Rasterizer].
type RasterizerFunc func(ctx context.Context, n *Node, scale float64) ([]byte, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, n *Node, scale float64) ([]byte, error) {
	return f(ctx, n, scale)
}

// FontLoaderFunc adapts a function to [FontLoader].
type FontLoaderFunc func(ctx context.Context, f FontName) error

// LoadFont calls fn.
func (fn FontLoaderFunc) LoadFont(ctx context.Context, f FontName) error {
	return fn(ctx, f)
}
