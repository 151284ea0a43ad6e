// Package layout groups positioned items into horizontal rows.
//
// Two strategies are provided and they are deliberately not unified:
//
//   - [Cluster] walks items top to bottom and grows each row's height
//     envelope, so a tall item can pull later items into its row. This is
//     the frame-level analysis (default tolerance [FrameTolerance]).
//   - [Bucket] quantizes each item's top to a fixed grid and groups equal
//     keys. Two items a hair apart can land in different buckets. This is
//     what table synthesis uses (default granularity [TableGranularity]).
//
// In both, members of a row are ordered left to right.
package layout

import (
	"math"
	"slices"

	"github.com/matzehuels/mailframe/pkg/design"
)

const (
	// FrameTolerance is the vertical slack for frame-level clustering.
	FrameTolerance = 10.0

	// TableGranularity is the quantization step for table rows.
	TableGranularity = 5.0
)

// Row is a band of items sharing a vertical position.
type Row[T any] struct {
	// Y is the top of the row.
	Y float64
	// Height is the row's envelope. For bucketed rows it is the tallest
	// member's height.
	Height float64
	Items  []T
}

// Cluster groups items into rows. An item joins the current row when its top
// is above rowY + rowHeight + tolerance; the row then grows to cover it.
// Otherwise it starts a new row.
func Cluster[T any](items []T, boxOf func(T) design.Box, tolerance float64) []Row[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return compare(boxOf(a).Y, boxOf(b).Y)
	})

	var rows []Row[T]
	for _, it := range sorted {
		b := boxOf(it)
		if n := len(rows); n > 0 {
			cur := &rows[n-1]
			if b.Y < cur.Y+cur.Height+tolerance {
				cur.Items = append(cur.Items, it)
				cur.Height = math.Max(cur.Height, (b.Y-cur.Y)+b.Height)
				continue
			}
		}
		rows = append(rows, Row[T]{Y: b.Y, Height: b.Height, Items: []T{it}})
	}

	for i := range rows {
		sortByX(rows[i].Items, boxOf)
	}
	return rows
}

// Bucket groups items whose tops round to the same multiple of granularity.
// Buckets are ordered by the top of their first member.
func Bucket[T any](items []T, boxOf func(T) design.Box, granularity float64) []Row[T] {
	index := make(map[float64]int)
	var rows []Row[T]
	for _, it := range items {
		b := boxOf(it)
		key := Quantize(b.Y, granularity)
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, Row[T]{Y: b.Y})
		}
		rows[i].Items = append(rows[i].Items, it)
		rows[i].Height = math.Max(rows[i].Height, b.Height)
	}

	slices.SortStableFunc(rows, func(a, b Row[T]) int {
		return compare(a.Y, b.Y)
	})
	for i := range rows {
		sortByX(rows[i].Items, boxOf)
	}
	return rows
}

// Quantize rounds v to the nearest multiple of step, rounding halves up.
func Quantize(v, step float64) float64 {
	return math.Floor(v/step+0.5) * step
}

// Frame clusters the visible children of n that have a bounding box.
func Frame(n *design.Node, tolerance float64) []Row[*design.Node] {
	var items []*design.Node
	for _, c := range n.Children {
		if c.Visible && c.Box != nil {
			items = append(items, c)
		}
	}
	return Cluster(items, BoxOf, tolerance)
}

// BoxOf returns the bounding box of a node that is known to have one.
func BoxOf(n *design.Node) design.Box {
	return *n.Box
}

func sortByX[T any](items []T, boxOf func(T) design.Box) {
	slices.SortStableFunc(items, func(a, b T) int {
		return compare(boxOf(a).X, boxOf(b).X)
	})
}

func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
