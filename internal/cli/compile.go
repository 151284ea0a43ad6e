package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/bundle"
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/pipeline"
	"github.com/matzehuels/mailframe/pkg/raster"
)

// compileOpts holds the command-line flags for the compile command.
type compileOpts struct {
	root     string   // export root node id
	output   string   // output directory, or archive path with --archive
	archive  bool     // write a .tar.xz bundle instead of a directory
	absolute bool     // absolute layout instead of table layout
	scale    float64  // raster scale override
	fontDirs []string // extra font directories
	noCache  bool     // disable the payload cache
	refresh  bool     // bypass cached payloads but store the fresh one
}

// compileCommand creates the compile command.
func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile [design.json]",
		Short: "Compile a frame into an email HTML bundle",
		Long: `Compile exports one frame of a design document as email HTML.

The bundle holds the HTML, the rasterized images it references, link
previews and a manifest:

  spring-sale/
    spring-sale.html
    images/
    previews/
    manifest.json

Each [table] region costs one credit from the local ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompile(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", "", "id of the frame to export (default: the only frame, or pick)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory or archive path (default: frame name)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "write a "+bundle.ArchiveExt+" archive")
	cmd.Flags().BoolVar(&opts.absolute, "absolute", false, "use absolute positioning instead of tables")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "raster scale (default from config)")
	cmd.Flags().StringSliceVar(&opts.fontDirs, "font-dir", nil, "additional font directory (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the payload cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-export even when a cached payload exists")

	return cmd
}

func (c *CLI) runCompile(ctx context.Context, path string, opts compileOpts) error {
	prog := newProgress(c.Logger)

	doc, err := design.ImportJSON(path)
	if err != nil {
		return err
	}
	root, err := selectRoot(doc, opts.root)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	led, store, err := c.openLedger(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := c.fontLoader(expandAll(opts.fontDirs)...)

	exportOpts := c.exportDefaults()
	exportOpts.RootID = root.ID
	exportOpts.Refresh = opts.refresh
	exportOpts.FontDirs = loader.Dirs()
	exportOpts.Fonts = loader
	exportOpts.Rasterizer = raster.New(doc, loader, c.Logger)
	exportOpts.Quota = led
	exportOpts.Logger = c.Logger
	if opts.absolute {
		exportOpts.TableLayout = false
	}
	if opts.scale != 0 {
		exportOpts.Scale = opts.scale
	}

	spinner := newSpinnerWithContext(ctx, "Processing selection...")
	exportOpts.Progress = spinner.SetMessage
	spinner.Start()
	res, err := runner.Execute(ctx, doc, exportOpts)
	spinner.Stop()
	if err != nil {
		return err
	}

	out, err := writeBundle(res, opts)
	if err != nil {
		return err
	}
	prog.done("Exported " + root.Name)

	balance, err := led.Balance(ctx)
	if err != nil {
		return err
	}

	printSuccess("Compiled %s", StyleHighlight.Render(root.Name))
	printStats(res.Stats, res.CacheHit)
	printFile(out)
	printBalance(balance)
	if balance == 0 {
		printWarning("No credits left. Redeem a promo code with: %s credits redeem CODE", appName)
	}
	if !opts.archive {
		printNewline()
		printNextStep("Inspect the row structure", appName+" inspect "+path+" --root "+root.ID)
	}
	return nil
}

// writeBundle writes the payload as a directory or an archive and returns
// the path to show the user.
func writeBundle(res *pipeline.Result, opts compileOpts) (string, error) {
	name := res.Payload.Filename
	if opts.archive {
		path := opts.output
		if path == "" {
			path = name + bundle.ArchiveExt
		}
		return path, bundle.CreateArchive(path, res.Payload)
	}
	dir := opts.output
	if dir == "" {
		dir = name
	}
	return bundle.WriteDir(filepath.Clean(dir), res.Payload)
}
