package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/export"
)

// Runner executes exports against a payload cache. It holds no per-export
// state, so one Runner may serve concurrent callers; the exports themselves
// must be serialized by the caller when they share a quota.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer
// uses the default layout.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute selects the root, charges the quota and exports, serving the
// payload from cache when possible.
func (r *Runner) Execute(ctx context.Context, doc *design.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no document")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid options: %v", err)
	}

	root, err := doc.SelectByID(opts.RootID)
	if err != nil {
		return nil, err
	}
	hash, err := RootHash(ctx, doc, root)
	if err != nil {
		return nil, err
	}
	key := r.Keyer.ExportKey(hash, opts.ExportKeyOpts())
	res := &Result{Root: root, RootHash: hash}

	if !opts.Refresh {
		if p, ok := r.cached(ctx, key); ok {
			if err := r.charge(ctx, opts, root); err != nil {
				return nil, err
			}
			res.Payload, res.CacheHit = p, true
			res.Stats = statsOf(p, 0)
			opts.Logger.Info("export served from cache", "root", root.Name, "fragments", p.Fragments)
			return res, nil
		}
	}

	exp := &export.Exporter{
		Rasterizer: opts.Rasterizer,
		Fonts:      opts.Fonts,
		Images:     doc,
		Quota:      opts.Quota,
		Logger:     opts.Logger,
		Progress:   opts.Progress,
		Scale:      opts.Scale,
	}
	start := time.Now()
	p, err := exp.Export(ctx, root, opts.TableLayout)
	if err != nil {
		return nil, err
	}
	res.Payload = p
	res.Stats = statsOf(p, time.Since(start))

	opts.Logger.Info("exported frame",
		"root", root.Name,
		"fragments", p.Fragments,
		"assets", len(p.Assets),
		"duration", res.Stats.ExportTime)

	if data, err := json.Marshal(p); err == nil {
		if err := r.Cache.Set(ctx, key, data, opts.CacheTTL); err != nil {
			opts.Logger.Warn("could not cache payload", "err", err)
		}
	}
	return res, nil
}

// cached returns a decodable cached payload. Backend failures count as
// misses.
func (r *Runner) cached(ctx context.Context, key string) (*export.Payload, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var p export.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// charge applies the quota for a payload that skips the exporter.
func (r *Runner) charge(ctx context.Context, opts Options, root *design.Node) error {
	tables := design.CountTables(root)
	if tables == 0 || opts.Quota == nil {
		return nil
	}
	remaining, err := opts.Quota.Charge(ctx, tables)
	if err != nil {
		return err
	}
	opts.Logger.Debug("charged table credits", "tables", tables, "remaining", remaining)
	return nil
}

// RootHash hashes the subtree encoding of root together with the bytes of
// every image it references.
func RootHash(ctx context.Context, images design.ImageSource, root *design.Node) (string, error) {
	data, err := design.MarshalNode(root)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode root")
	}
	var buf bytes.Buffer
	buf.Write(data)
	for _, ref := range root.ImageRefs() {
		buf.WriteString("\n" + ref + "=")
		if img, err := images.ImageBytes(ctx, ref); err == nil {
			buf.WriteString(cache.Hash(img))
		}
	}
	return cache.Hash(buf.Bytes()), nil
}

// Close closes the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func statsOf(p *export.Payload, d time.Duration) Stats {
	return Stats{
		Tables:     p.Tables,
		Fragments:  p.Fragments,
		Assets:     len(p.Assets),
		Previews:   len(p.PreviewAssets),
		ExportTime: d,
	}
}
