package fonts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/mailframe/pkg/design"
)

func writeFont(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFont(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "roboto")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	writeFont(t, sub, "Roboto-Bold.ttf", gobold.TTF)
	writeFont(t, dir, "OpenSans.otf", goregular.TTF)
	writeFont(t, dir, "Broken-Regular.ttf", []byte("not a font"))
	writeFont(t, dir, "notes.txt", []byte("x"))

	l := NewLoader(dir, filepath.Join(dir, "missing"))
	ctx := context.Background()

	tests := []struct {
		name    string
		font    design.FontName
		wantErr bool
	}{
		{"exact match in subdirectory", design.FontName{Family: "Roboto", Style: "Bold"}, false},
		{"regular falls back to family file", design.FontName{Family: "Open Sans", Style: "Regular"}, false},
		{"unknown style", design.FontName{Family: "Roboto", Style: "Thin"}, true},
		{"unknown family", design.FontName{Family: "Inter", Style: "Regular"}, true},
		{"unparsable file", design.FontName{Family: "Broken", Style: "Regular"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.LoadFont(ctx, tt.font)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFont(%v) error = %v, wantErr %v", tt.font, err, tt.wantErr)
			}
		})
	}
}

func TestFaceFallback(t *testing.T) {
	l := NewLoader()
	for _, style := range []string{"Regular", "Bold", "Italic", "Bold Italic", "Black"} {
		face := l.Face(design.FontName{Family: "Nowhere", Style: style}, 16)
		if face == nil {
			t.Fatalf("Face(%q) = nil", style)
		}
		if h := face.Metrics().Height; h <= 0 {
			t.Errorf("Face(%q) height = %v", style, h)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Open Sans-Semi Bold": "opensanssemibold",
		"OpenSans_SemiBold":   "opensanssemibold",
		"Ünïcode 2":           "ünïcode2",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
