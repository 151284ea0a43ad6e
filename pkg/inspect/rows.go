package inspect

import (
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/layout"
)

// Band is one row of the frame-level analysis.
type Band struct {
	Y       float64  `json:"y"`
	Height  float64  `json:"height"`
	Members []Member `json:"members"`
}

// Member is a node placed in a band.
type Member struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Kind string     `json:"kind"`
	Box  design.Box `json:"box"`
}

// Report summarizes a frame.
type Report struct {
	Root   string `json:"root"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tables int    `json:"tables"`
	Images int    `json:"images"`
	Bands  []Band `json:"bands"`
}

// Rows clusters the root's visible children into bands using tolerance.
// A non-positive tolerance uses [layout.FrameTolerance].
func Rows(root *design.Node, tolerance float64) []Band {
	if tolerance <= 0 {
		tolerance = layout.FrameTolerance
	}
	rows := layout.Frame(root, tolerance)
	bands := make([]Band, len(rows))
	for i, r := range rows {
		bands[i] = Band{Y: r.Y, Height: r.Height}
		for _, n := range r.Items {
			bands[i].Members = append(bands[i].Members, Member{
				ID:   n.ID,
				Name: n.Name,
				Kind: n.Kind().String(),
				Box:  *n.Box,
			})
		}
	}
	return bands
}

// Inspect builds the report for an export root.
func Inspect(root *design.Node, tolerance float64) Report {
	r := Report{
		Root:   root.Name,
		Tables: design.CountTables(root),
		Images: len(root.ImageRefs()),
		Bands:  Rows(root, tolerance),
	}
	if root.Box != nil {
		r.Width = int(root.Box.Width + 0.5)
		r.Height = int(root.Box.Height + 0.5)
	}
	return r
}
