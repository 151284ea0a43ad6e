package export

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultFilename is used when a name slugifies to nothing.
const DefaultFilename = "export"

var (
	spaceRun = regexp.MustCompile(`\s+`)
	nonWord  = regexp.MustCompile(`[^\w-]+`)
	dashRun  = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a frame name into a file name: lower case, trimmed,
// whitespace runs replaced by "-", non-word characters removed and repeated
// dashes collapsed.
func Slugify(name string) string {
	s := strings.TrimSpace(cases.Lower(language.Und).String(name))
	s = spaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	if s == "" {
		return DefaultFilename
	}
	return s
}
