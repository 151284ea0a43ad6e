package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/email"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/observability"
	"github.com/matzehuels/mailframe/pkg/render"
)

const (
	// ImageDir is the relative directory assets are referenced from.
	ImageDir = "./images/"

	// RasterScale is the scale for rasterized nodes.
	RasterScale = 2.0
	// PreviewScale is the scale for link previews.
	PreviewScale = 1.0
)

// Quota gates table-marked regions. Charge deducts n credits and returns the
// remaining balance, or an error without deducting anything.
type Quota interface {
	Charge(ctx context.Context, n int) (int, error)
}

// Asset is a named binary output.
type Asset struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// LinkPlaceholder records a linked fragment for downstream reconstruction.
type LinkPlaceholder struct {
	ID               string `json:"id"`
	OriginalURL      string `json:"originalUrl"`
	PreviewAssetName string `json:"previewAssetName"`
}

// GIFPlaceholder records an externally supplied animated asset.
type GIFPlaceholder struct {
	ID string `json:"id"`
}

// Payload is the result of one export.
type Payload struct {
	HTML             string            `json:"html"`
	Assets           []Asset           `json:"assets"`
	PreviewAssets    []Asset           `json:"previewAssets"`
	GIFPlaceholders  []GIFPlaceholder  `json:"gifPlaceholders"`
	LinkPlaceholders []LinkPlaceholder `json:"linkPlaceholders"`
	Filename         string            `json:"filename"`

	Width      int              `json:"width"`
	Height     int              `json:"height"`
	TableMode  bool             `json:"tableLayout"`
	Tables     int              `json:"tables"`
	Fragments  int              `json:"fragments"`
	Background email.Background `json:"-"`
}

// Exporter converts a frame into an email payload. All collaborators are
// optional: without a Rasterizer every rasterized node is omitted, without a
// Quota tables are free.
type Exporter struct {
	Rasterizer design.Rasterizer
	Fonts      design.FontLoader
	Images     design.ImageSource
	Quota      Quota
	Logger     *log.Logger

	// Scale overrides RasterScale for rasterized nodes when positive.
	Scale float64

	// Progress receives human-readable status lines.
	Progress func(message string)
}

// Export renders root in table layout when useTableLayout is set and in
// absolute layout otherwise.
func (e *Exporter) Export(ctx context.Context, root *design.Node, useTableLayout bool) (payload *Payload, err error) {
	start := time.Now()
	logger := e.logger()

	root, err = design.SelectRoot([]*design.Node{root})
	if err != nil {
		return nil, err
	}
	e.progress("Processing selection...")

	tables := design.CountTables(root)
	if tables > 0 && e.Quota != nil {
		remaining, err := e.Quota.Charge(ctx, tables)
		if err != nil {
			return nil, err
		}
		logger.Debug("charged table credits", "tables", tables, "remaining", remaining)
	}

	hooks := observability.Export()
	hooks.OnExportStart(ctx, root.Name, tables)
	var st walkState
	defer func() {
		hooks.OnExportComplete(ctx, root.Name, len(st.frags), time.Since(start), err)
	}()

	w := &walker{
		e:      e,
		logger: logger,
		styler: render.NewStyler(e.Fonts, logger),
		hooks:  hooks,
	}

	var bg email.Background
	bg, st = w.background(ctx, root, st)
	for _, c := range children(root) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBackdrop(root, c) {
			logger.Debug("skipping full-frame backdrop", "node", c.node.Name)
			continue
		}
		e.progress("Processing: " + c.node.Name)
		st = w.step(ctx, st, c)
	}

	width, height := render.Round(root.Box.Width), render.Round(root.Box.Height)
	return &Payload{
		HTML:             email.Assemble(st.frags, width, height, bg, useTableLayout),
		Assets:           st.assets,
		PreviewAssets:    st.previews,
		GIFPlaceholders:  st.gifs,
		LinkPlaceholders: st.links,
		Filename:         Slugify(root.Name),
		Width:            width,
		Height:           height,
		TableMode:        useTableLayout,
		Tables:           tables,
		Fragments:        len(st.frags),
		Background:       bg,
	}, nil
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}

func (e *Exporter) scale() float64 {
	if e.Scale > 0 {
		return e.Scale
	}
	return RasterScale
}

func (e *Exporter) progress(msg string) {
	if e.Progress != nil {
		e.Progress(msg)
	}
}

func (e *Exporter) rasterize(ctx context.Context, n *design.Node, scale float64) ([]byte, error) {
	if e.Rasterizer == nil {
		return nil, errors.New(errors.ErrCodeResource, "no rasterizer configured")
	}
	data, err := e.Rasterizer.Rasterize(ctx, n, scale)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResource, err, "rasterize %q", n.Name)
	}
	return data, nil
}

func (e *Exporter) imageBytes(ctx context.Context, ref string) ([]byte, error) {
	if e.Images == nil {
		return nil, errors.New(errors.ErrCodeResource, "no image source configured")
	}
	data, err := e.Images.ImageBytes(ctx, ref)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResource, err, "image %s", ref)
	}
	return data, nil
}

func assetName(prefix string, n int) string {
	return fmt.Sprintf("%s-%d.png", prefix, n)
}
