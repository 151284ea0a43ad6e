package email

import (
	"strconv"
	"strings"
)

// declaration is one inline CSS property.
type declaration struct {
	prop  string
	value string
}

// parseStyle splits an inline style attribute into declarations. Entries
// without a colon are dropped.
func parseStyle(s string) []declaration {
	var out []declaration
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, value: strings.TrimSpace(value)})
	}
	return out
}

// lookup returns the value of the first declaration named prop, compared
// case-insensitively and exactly, so "top" never matches "padding-top".
func lookup(decls []declaration, prop string) (string, bool) {
	for _, d := range decls {
		if strings.EqualFold(d.prop, prop) {
			return d.value, true
		}
	}
	return "", false
}

// without returns decls minus the named properties.
func without(decls []declaration, props ...string) []declaration {
	out := decls[:0:0]
	for _, d := range decls {
		drop := false
		for _, p := range props {
			if strings.EqualFold(d.prop, p) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, d)
		}
	}
	return out
}

// formatStyle serializes declarations the way the renderers emit them.
func formatStyle(decls []declaration) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ":" + d.value + ";"
	}
	return strings.Join(parts, " ")
}

// leadingInt parses an optional sign and the leading digits of s, ignoring
// whatever follows ("12.7px" is 12). It returns 0 when there are none.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// digits parses every decimal digit in s as one number, the way lengths such
// as "300px" are read. ok is false when s holds no digit.
func digits(s string) (n int, ok bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	return n, err == nil
}
