package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/email"
	"github.com/matzehuels/mailframe/pkg/errors"
)

// convertCommand creates the convert command, which rewrites absolutely
// positioned markup into table layout.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		width      int
		background string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "convert [in.html]",
		Short: "Convert absolutely positioned HTML to table layout",
		Long: `Convert lifts every table positioned with position:absolute out of its
container and rebuilds the document as nested layout tables of the given
width. Input without positioned tables is written unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "--width must be positive")
			}
			in, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			out, err := email.Convert(string(in), width, email.ParseBackground(background))
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "could not parse %s", args[0])
			}

			if output == "" || output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Converted %s", args[0])
			printFile(output)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 600, "container width in pixels")
	cmd.Flags().StringVar(&background, "background", "", `background: "#rrggbb" or an image path`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

