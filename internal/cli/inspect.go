package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/inspect"
	"github.com/matzehuels/mailframe/pkg/layout"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	root      string
	tolerance float64
	asJSON    bool   // print the report as JSON
	dot       bool   // print the node tree as DOT
	svg       string // render the node tree to this SVG file
	detailed  bool   // add type and bounds to diagram labels
	hidden    bool   // include invisible nodes in diagrams
}

// inspectCommand creates the inspect command, which shows how a frame will
// be split into rows without exporting it or charging credits.
func (c *CLI) inspectCommand() *cobra.Command {
	opts := inspectOpts{tolerance: layout.FrameTolerance}

	cmd := &cobra.Command{
		Use:   "inspect [design.json]",
		Short: "Show the row structure of a frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "id of the frame to inspect")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", opts.tolerance, "vertical slack when grouping rows")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&opts.dot, "dot", false, "print the node tree in DOT format")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render the node tree to an SVG file")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show type and bounds in diagram labels")
	cmd.Flags().BoolVar(&opts.hidden, "hidden", false, "include hidden nodes in diagrams")

	return cmd
}

func runInspect(ctx context.Context, w io.Writer, path string, opts inspectOpts) error {
	doc, err := design.ImportJSON(path)
	if err != nil {
		return err
	}
	root, err := selectRoot(doc, opts.root)
	if err != nil {
		return err
	}

	diagram := inspect.Options{Detailed: opts.detailed, Hidden: opts.hidden}
	switch {
	case opts.dot:
		_, err := io.WriteString(w, inspect.ToDOT(root, diagram))
		return err
	case opts.svg != "":
		svg, err := inspect.RenderSVG(ctx, inspect.ToDOT(root, diagram))
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.svg, svg, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.svg, err)
		}
		printSuccess("Rendered %s", root.Name)
		printFile(opts.svg)
		return nil
	}

	report := inspect.Inspect(root, opts.tolerance)
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(w, report)
	return nil
}

// printReport renders the bands as a table.
func printReport(w io.Writer, r inspect.Report) {
	fmt.Fprintln(w, StyleTitle.Render(r.Root))
	fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("%d×%d · %d tables · %d images · %d rows",
		r.Width, r.Height, r.Tables, r.Images, len(r.Bands))))

	rows := make([][]string, len(r.Bands))
	for i, b := range r.Bands {
		names := make([]string, len(b.Members))
		for j, m := range b.Members {
			names[j] = m.Name + StyleDim.Render(" ("+m.Kind+")")
		}
		rows[i] = []string{
			fmt.Sprint(i + 1),
			design.FormatNumber(b.Y),
			design.FormatNumber(b.Height),
			strings.Join(names, ", "),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Row", "Top", "Height", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			}
			if col < 3 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(w, t.Render())
}
