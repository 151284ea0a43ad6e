// Package fonts resolves design font names to OpenType faces.
//
// A [Loader] indexes font files (.ttf, .otf) in a set of directories by a
// normalized "family style" name, so "Open Sans"/"Semi Bold" matches
// OpenSans-SemiBold.ttf. [Loader.LoadFont] implements [design.FontLoader]:
// it fails for fonts it cannot find, which the text styler reports once and
// then ignores. [Loader.Face] never fails; unknown fonts fall back to the Go
// fonts in the matching weight and slant.
package fonts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/matzehuels/mailframe/pkg/design"
)

// DPI is the resolution faces are built at; sizes are in pixels at 72 DPI.
const DPI = 72

// Loader finds and parses fonts from directories. It is safe for concurrent
// use.
type Loader struct {
	dirs []string

	once  sync.Once
	index map[string]string

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewLoader returns a loader over dirs. Directories are searched
// recursively on first use; missing ones are skipped.
func NewLoader(dirs ...string) *Loader {
	return &Loader{dirs: dirs, parsed: make(map[string]*opentype.Font)}
}

// Dirs returns the searched directories.
func (l *Loader) Dirs() []string { return l.dirs }

// LoadFont parses the font file for f.
func (l *Loader) LoadFont(ctx context.Context, f design.FontName) error {
	_, err := l.load(f)
	return err
}

// Face returns a face for f at sizePx, falling back to a Go font.
func (l *Loader) Face(f design.FontName, sizePx float64) font.Face {
	if sizePx <= 0 {
		sizePx = 12
	}
	ft, err := l.load(f)
	if err != nil {
		ft = fallback(f.Style)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{Size: sizePx, DPI: DPI, Hinting: font.HintingFull})
	if err != nil {
		face, _ = opentype.NewFace(fallback(""), &opentype.FaceOptions{Size: sizePx, DPI: DPI})
	}
	return face
}

func (l *Loader) load(f design.FontName) (*opentype.Font, error) {
	l.once.Do(l.scan)

	key := normalize(f.Family + f.Style)
	l.mu.Lock()
	defer l.mu.Unlock()
	if ft, ok := l.parsed[key]; ok {
		return ft, nil
	}

	path, ok := l.index[key]
	if !ok && isRegular(f.Style) {
		path, ok = l.index[normalize(f.Family)]
	}
	if !ok {
		return nil, fmt.Errorf("font %q not found", f.Key())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	l.parsed[key] = ft
	return ft, nil
}

func (l *Loader) scan() {
	l.index = make(map[string]string)
	for _, dir := range l.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".ttf" && ext != ".otf" {
				return nil
			}
			key := normalize(strings.TrimSuffix(d.Name(), filepath.Ext(path)))
			if _, dup := l.index[key]; !dup {
				l.index[key] = path
			}
			return nil
		})
	}
}

// normalize lower-cases s and drops everything but letters and digits.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isRegular(style string) bool {
	switch normalize(style) {
	case "", "regular", "normal", "book", "roman":
		return true
	}
	return false
}

var (
	goOnce  sync.Once
	goFonts map[string]*opentype.Font
)

// fallback picks the Go font closest to style.
func fallback(style string) *opentype.Font {
	goOnce.Do(func() {
		goFonts = make(map[string]*opentype.Font)
		for name, data := range map[string][]byte{
			"regular":    goregular.TTF,
			"bold":       gobold.TTF,
			"italic":     goitalic.TTF,
			"bolditalic": gobolditalic.TTF,
		} {
			ft, err := opentype.Parse(data)
			if err != nil {
				panic(fmt.Sprintf("fonts: embedded Go font %s: %v", name, err))
			}
			goFonts[name] = ft
		}
	})

	s := normalize(style)
	bold := strings.Contains(s, "bold") || strings.Contains(s, "black") || strings.Contains(s, "heavy")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	switch {
	case bold && italic:
		return goFonts["bolditalic"]
	case bold:
		return goFonts["bold"]
	case italic:
		return goFonts["italic"]
	}
	return goFonts["regular"]
}

var _ design.FontLoader = (*Loader)(nil)
