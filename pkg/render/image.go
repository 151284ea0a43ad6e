package render

import (
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DefaultAlt is the alt text used when the source has no usable base name.
const DefaultAlt = "export image"

// Image places the image at src in a positioned cell of the given size.
func Image(src string, x, y, w, h float64) Fragment {
	width, height := Round(w), Round(h)
	var b strings.Builder
	b.WriteString(`<tr><td><img src="`)
	b.WriteString(html.EscapeString(src))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(Alt(src)))
	b.WriteString(`" width="`)
	b.WriteString(strconv.Itoa(width))
	b.WriteString(`" height="`)
	b.WriteString(strconv.Itoa(height))
	b.WriteString(`" style="display: block; border: 0; width: 100%; height: auto;"></td></tr>`)

	return Fragment{
		Kind:   FragmentImage,
		Box:    BoxStyle{Left: Round(x), Top: Round(y), Width: width, Height: height, HasHeight: true},
		Body:   b.String(),
		Height: height,
	}
}

// Alt derives alt text from the base name of src without its extension.
func Alt(src string) string {
	base := path.Base(src)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return DefaultAlt
	}
	return base
}
