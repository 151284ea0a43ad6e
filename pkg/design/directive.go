package design

import "strings"

// DirectiveKind names a directive recognized in a node name.
type DirectiveKind int

const (
	DirectiveNone DirectiveKind = iota
	DirectiveTable
	DirectiveLink
	DirectiveGIF
	DirectiveTransparent
)

// Directive prefixes, matched literally and case-sensitively.
const (
	PrefixTable       = "[table]"
	PrefixLink        = "[link]"
	PrefixGIF         = "[gif]"
	PrefixTransparent = "[transparent]"
)

// DefaultLinkURL is used when a link directive names no target.
const DefaultLinkURL = "#"

// Directive is the out-of-band instruction carried by a node name.
type Directive struct {
	Kind DirectiveKind
	// Arg is the URL of a link directive or the asset id of a gif directive.
	Arg string
}

// ParseDirective reads the directive at the start of name. A name carries at
// most one directive.
func ParseDirective(name string) Directive {
	switch {
	case strings.HasPrefix(name, PrefixTable):
		return Directive{Kind: DirectiveTable}
	case strings.HasPrefix(name, PrefixLink):
		url := strings.TrimSpace(name[len(PrefixLink):])
		if url == "" {
			url = DefaultLinkURL
		}
		return Directive{Kind: DirectiveLink, Arg: url}
	case strings.HasPrefix(name, PrefixGIF):
		return Directive{Kind: DirectiveGIF, Arg: strings.TrimSpace(name[len(PrefixGIF):])}
	case strings.HasPrefix(name, PrefixTransparent):
		return Directive{Kind: DirectiveTransparent}
	}
	return Directive{}
}

// IsTable reports whether n is a table-marked container.
func IsTable(n *Node) bool {
	return n.Kind() == KindContainer && ParseDirective(n.Name).Kind == DirectiveTable
}

// CountTables counts table-marked containers in the subtree rooted at n,
// including n itself.
func CountTables(n *Node) int {
	count := 0
	n.Walk(func(c *Node) bool {
		if IsTable(c) {
			count++
		}
		return true
	})
	return count
}
