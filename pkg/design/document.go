package design

import (
	"context"
	"fmt"

	"github.com/matzehuels/mailframe/pkg/errors"
)

// Document is a decoded design file: top-level nodes plus the image data
// their fills reference.
type Document struct {
	Name   string
	Nodes  []*Node
	Images map[string][]byte
}

// ImageBytes implements [ImageSource].
func (d *Document) ImageBytes(ctx context.Context, ref string) ([]byte, error) {
	data, ok := d.Images[ref]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "image %q not found", ref)
	}
	return data, nil
}

// Find returns the node with the given id anywhere in the document.
func (d *Document) Find(id string) *Node {
	var found *Node
	for _, n := range d.Nodes {
		n.Walk(func(c *Node) bool {
			if found == nil && c.ID == id {
				found = c
			}
			return found == nil
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// Candidates returns the top-level nodes that can be exported, descending
// into sections.
func (d *Document) Candidates() []*Node {
	var out []*Node
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			switch {
			case IsExportable(n):
				out = append(out, n)
			case n.Type == TypeSection:
				visit(n.Children)
			}
		}
	}
	visit(d.Nodes)
	return out
}

// IsExportable reports whether n may be an export root.
func IsExportable(n *Node) bool {
	switch n.Type {
	case TypeFrame, TypeComponent, TypeInstance:
		return true
	}
	return false
}

// Selection error messages shown to the user.
const (
	msgSelectFrame = "Please select a single Frame to export."
	msgNoBounds    = "Could not determine bounds of the selected frame."
)

// SelectRoot validates a selection and returns its export root.
// Exactly one FRAME, COMPONENT or INSTANCE with a bounding box is accepted.
func SelectRoot(selection []*Node) (*Node, error) {
	if len(selection) != 1 || selection[0] == nil {
		return nil, errors.New(errors.ErrCodeSelection, msgSelectFrame)
	}
	root := selection[0]
	if !IsExportable(root) {
		return nil, errors.New(errors.ErrCodeSelection, msgSelectFrame)
	}
	if root.Box == nil {
		return nil, errors.New(errors.ErrCodeSelection, msgNoBounds)
	}
	return root, nil
}

// SelectByID selects the node with the given id, or the only candidate when
// id is empty.
func (d *Document) SelectByID(id string) (*Node, error) {
	if id == "" {
		return SelectRoot(d.Candidates())
	}
	n := d.Find(id)
	if n == nil {
		return nil, errors.Wrap(errors.ErrCodeSelection, fmt.Errorf("node %q not found", id), msgSelectFrame)
	}
	return SelectRoot([]*Node{n})
}
