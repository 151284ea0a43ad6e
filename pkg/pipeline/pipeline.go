// Package pipeline runs exports with payload caching.
//
// It is the single entry point the CLI, the HTTP API and the websocket shell
// share, so selection rules, quota charging and caching behave identically
// everywhere.
//
// # Stages
//
//  1. Select: resolve the export root from the document ([design.Document.SelectByID]).
//  2. Charge: deduct one credit per [table] region from the quota.
//  3. Export: walk the root into an [export.Payload].
//  4. Cache: store the payload under a key derived from the root subtree,
//     the image data it references and the options that affect output.
//
// Credits are charged on cache hits as well; the cache saves work, not
// credits.
//
// # Usage
//
//	runner := pipeline.NewRunner(store, nil, logger)
//	res, err := runner.Execute(ctx, doc, pipeline.Options{
//	    TableLayout: true,
//	    Quota:       ledger,
//	    Rasterizer:  raster.New(doc, fonts, logger),
//	})
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/export"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultScale is the raster scale when none is configured.
	DefaultScale = export.RasterScale

	// MaxScale bounds the raster scale.
	MaxScale = 4.0

	// DefaultTTL is how long cached payloads live.
	DefaultTTL = 24 * time.Hour
)

// =============================================================================
// Options
// =============================================================================

// Options configures one export. The JSON fields are accepted by the HTTP
// API; collaborators are runtime-only.
type Options struct {
	// RootID selects the export root. Empty selects the document's only
	// candidate frame.
	RootID      string  `json:"root_id,omitempty"`
	TableLayout bool    `json:"use_table_layout"`
	Scale       float64 `json:"scale,omitempty"`
	// Refresh bypasses the payload cache.
	Refresh bool `json:"refresh,omitempty"`

	CacheTTL time.Duration `json:"-"`
	// FontDirs only feeds the cache key; fonts are loaded by Fonts.
	FontDirs []string `json:"-"`

	Rasterizer design.Rasterizer `json:"-"`
	Fonts      design.FontLoader `json:"-"`
	Quota      export.Quota      `json:"-"`
	Logger     *log.Logger       `json:"-"`
	Progress   func(string)      `json:"-"`

	validated bool
}

// Result is the outcome of [Runner.Execute].
type Result struct {
	Payload *export.Payload
	Root    *design.Node
	// RootHash is the content hash of the exported subtree.
	RootHash string
	CacheHit bool
	Stats    Stats
}

// Stats summarizes an export.
type Stats struct {
	Tables     int
	Fragments  int
	Assets     int
	Previews   int
	ExportTime time.Duration
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if err := ValidateScale(o.Scale); err != nil {
		return err
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateScale checks a raster scale.
func ValidateScale(scale float64) error {
	if scale <= 0 || scale > MaxScale {
		return fmt.Errorf("invalid scale: %v (must be in (0, %v])", scale, MaxScale)
	}
	return nil
}

// ExportKeyOpts returns the cache key options.
func (o *Options) ExportKeyOpts() cache.ExportKeyOpts {
	return cache.ExportKeyOpts{
		TableLayout: o.TableLayout,
		Scale:       o.Scale,
		FontDirs:    strings.Join(o.FontDirs, "\n"),
	}
}
