package datatable

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/layout"
	"github.com/matzehuels/mailframe/pkg/render"
)

const (
	// RowHeight is the estimated rendered height of one row: an 18px line
	// plus 16px of vertical padding.
	RowHeight = 34
	// BorderOverhead approximates the outer borders and rounding.
	BorderOverhead = 14
	// CornerRadius rounds the four outer corners.
	CornerRadius = 7

	// AccentColor is the border color and the default header background.
	AccentColor = "#f06522"

	// DonorMargin expands donor boxes when matching a cell center.
	DonorMargin = 5
	// BackgroundCutoff excludes white and near-white donors.
	BackgroundCutoff = 240
	// ContrastCutoff is the brightness below which a color counts as dark.
	ContrastCutoff = 128
)

// CellRenderer renders a text leaf as bare cell content.
type CellRenderer interface {
	Cell(ctx context.Context, n *design.Node) string
}

// Result is a synthesized table.
type Result struct {
	Fragment render.Fragment
	// ExpectedHeight is the estimated rendered height.
	ExpectedHeight int
	Rows           int
	// Columns is the widest row's cell count.
	Columns int
}

// ExpectedHeight estimates the rendered height of a table with the given
// number of rows.
func ExpectedHeight(rows int) int {
	return rows*RowHeight + BorderOverhead
}

// Synthesize builds a data table from the text leaves below n, positioned at
// (x, y). It reports false when n has no bounding box or no visible text
// leaf.
func Synthesize(ctx context.Context, n *design.Node, x, y float64, cells CellRenderer) (Result, bool) {
	if n.Box == nil {
		return Result{}, false
	}
	leaves := textLeaves(n)
	if len(leaves) == 0 {
		return Result{}, false
	}
	donors := donorsBelow(n)
	rows := layout.Bucket(leaves, layout.BoxOf, layout.TableGranularity)

	var head, body strings.Builder
	columns := 0
	for i, row := range rows {
		columns = max(columns, len(row.Items))
		header := i == 0
		widths := cellWidths(row.Items)

		out := &body
		if header {
			out = &head
		}
		out.WriteString("<tr>")
		for j, leaf := range row.Items {
			c := cell{
				Radius:     corners(i, j, len(rows), len(row.Items)),
				Background: background(leaf, donors, header),
				Header:     header,
			}
			fmt.Fprintf(out, `<td align="left" valign="middle" width="%s%%" style="%s">`, widths[j], c)
			out.WriteString(cells.Cell(ctx, leaf))
			out.WriteString("</td>")
		}
		out.WriteString("</tr>")
	}

	expected := ExpectedHeight(len(rows))
	var inner render.Declarations
	inner.Add("width", "100%")
	inner.Add("border-collapse", "separate")
	inner.Add("border-spacing", "0")
	inner.Add("border-radius", render.Px(CornerRadius))
	inner.Add("overflow", "hidden")

	markup := `<tr><td><table role="presentation" width="100%" border="0" cellpadding="5" cellspacing="0" style="` +
		inner.String() + `"><thead>` + head.String() + `</thead><tbody>` + body.String() + `</tbody></table></td></tr>`

	return Result{
		Fragment: render.Fragment{
			Kind: render.FragmentTable,
			Box: render.BoxStyle{
				Left:  render.Round(x),
				Top:   render.Round(y),
				Width: render.Round(n.Box.Width),
			},
			Body:   markup,
			Height: expected,
		},
		ExpectedHeight: expected,
		Rows:           len(rows),
		Columns:        columns,
	}, true
}

// textLeaves collects visible text nodes with a bounding box. Invisible
// subtrees are skipped.
func textLeaves(n *design.Node) []*design.Node {
	var out []*design.Node
	n.Walk(func(c *design.Node) bool {
		if !c.Visible {
			return false
		}
		if c.Kind() == design.KindText {
			if c.Box != nil {
				out = append(out, c)
			}
			return false
		}
		return true
	})
	return out
}

// donorsBelow collects visible non-text descendants that carry fills, in
// document order.
func donorsBelow(n *design.Node) []*design.Node {
	var out []*design.Node
	n.Walk(func(c *design.Node) bool {
		if !c.Visible {
			return false
		}
		if c != n && c.Kind() != design.KindText && c.Box != nil && len(c.Fills) > 0 {
			out = append(out, c)
		}
		return true
	})
	return out
}

// background infers the cell background for leaf.
func background(leaf *design.Node, donors []*design.Node, header bool) string {
	cx, cy := leaf.Box.Center()
	for _, d := range donors {
		if !d.Box.Contains(cx, cy, DonorMargin) {
			continue
		}
		p := d.Fills[0]
		if !p.IsSolid() || p.Color.Brightness() >= BackgroundCutoff {
			continue
		}
		if p.Color.Brightness() < ContrastCutoff && textBrightness(leaf) < ContrastCutoff {
			return design.White.Hex()
		}
		return p.Color.Hex()
	}
	if header {
		return AccentColor
	}
	return design.White.Hex()
}

// textBrightness treats text without a solid fill as dark.
func textBrightness(n *design.Node) float64 {
	if p, ok := n.FirstFill(); ok && p.IsSolid() {
		return p.Color.Brightness()
	}
	return 0
}

// corners returns the border-radius value for cell (i, j), or "" for inner
// cells.
func corners(i, j, rows, cols int) string {
	first, lastRow := i == 0, i == rows-1
	left, right := j == 0, j == cols-1
	tl, tr := first && left, first && right
	br, bl := lastRow && right, lastRow && left
	if !tl && !tr && !br && !bl {
		return ""
	}
	return radius(tl) + " " + radius(tr) + " " + radius(br) + " " + radius(bl)
}

func radius(on bool) string {
	if on {
		return render.Px(CornerRadius)
	}
	return "0"
}

// cellWidths distributes 100% across a row in proportion to the cells'
// widths, with two decimals. The last cell takes the remainder.
func cellWidths(row []*design.Node) []string {
	var total float64
	for _, n := range row {
		total += n.Box.Width
	}
	hundredths := make([]int, len(row))
	used := 0
	for j := range row[:len(row)-1] {
		if total > 0 {
			hundredths[j] = render.Round(row[j].Box.Width / total * 10000)
		} else {
			hundredths[j] = 10000 / len(row)
		}
		used += hundredths[j]
	}
	hundredths[len(row)-1] = max(0, 10000-used)

	out := make([]string, len(row))
	for j, h := range hundredths {
		out[j] = fmt.Sprintf("%d.%02d", h/100, h%100)
	}
	return out
}

// cell is the inline style of one table cell.
type cell struct {
	Radius     string
	Background string
	Header     bool
}

func (c cell) String() string {
	var d render.Declarations
	if c.Radius != "" {
		d.Add("border-radius", c.Radius)
	}
	d.Add("background", c.Background)
	if c.Header {
		d.Add("color", "#ffffff")
		d.Add("font-weight", "bold")
	} else {
		d.Add("color", "#000000")
		d.Add("font-weight", "normal")
	}
	d.Add("border", "2px solid "+AccentColor)
	d.Add("padding", "8px 10px")
	d.Add("font-family", "'Roboto', Arial, Helvetica, sans-serif")
	d.Add("font-size", "13px")
	d.Add("line-height", "18px")
	d.Add("box-sizing", "border-box")
	return d.String()
}
