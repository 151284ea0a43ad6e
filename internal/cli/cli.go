// Package cli implements the mailframe command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/buildinfo"
	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/fonts"
	"github.com/matzehuels/mailframe/pkg/ledger"
	"github.com/matzehuels/mailframe/pkg/pipeline"
	"github.com/matzehuels/mailframe/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "mailframe"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config

	configPath string
}

// New creates a CLI with a timestamped logger and default configuration.
// The configuration file is read before each command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Mailframe compiles design frames into email HTML",
		Long: `Mailframe turns a frame from a design document into email-safe HTML:
table-based layout, inline styles, rasterized assets and Outlook fallbacks.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			registerHooks(c.Logger)
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+displayConfigPath()+")")

	root.AddCommand(c.compileCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.creditsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs root. A panic in any command is logged and returned as an
// INTERNAL error with a generic message.
func (c *CLI) Execute(ctx context.Context, root *cobra.Command) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.Logger.Debug("recovered panic", "panic", rec, "stack", string(debug.Stack()))
			err = errors.Wrap(errors.ErrCodeInternal, fmt.Errorf("panic: %v", rec), "Something went wrong. Run with --verbose for details.")
		}
	}()
	return root.ExecuteContext(ctx)
}

// ErrorMessage returns the text shown to the user for err.
func ErrorMessage(err error) string {
	return errors.UserMessage(err)
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner over the configured payload cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	if noCache {
		return pipeline.NewRunner(cache.NewNullCache(), nil, c.Logger), nil
	}
	store, err := cache.Open(ctx, c.Config.Cache.Config)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		return pipeline.NewRunner(cache.NewNullCache(), nil, c.Logger), nil
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

// openLedger opens the local credit ledger. The caller closes the store.
func (c *CLI) openLedger(ctx context.Context) (*ledger.Ledger, cache.Cache, error) {
	store, err := cache.Open(ctx, c.Config.Ledger.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	keys := cache.NewScopedKeyer(nil, session.Local().Scope())
	return ledger.New(store, keys, c.Config.Ledger.options(c.Logger)), store, nil
}

// fontLoader returns a loader over the configured font directories plus
// extra.
func (c *CLI) fontLoader(extra ...string) *fonts.Loader {
	dirs := append(append([]string(nil), c.Config.Fonts.Dirs...), extra...)
	return fonts.NewLoader(dirs...)
}

// exportDefaults returns pipeline options seeded from the configuration.
func (c *CLI) exportDefaults() pipeline.Options {
	return pipeline.Options{
		TableLayout: c.Config.Export.TableLayout,
		Scale:       c.Config.Export.Scale,
		CacheTTL:    c.Config.Cache.TTL.Duration,
		FontDirs:    c.Config.Fonts.Dirs,
	}
}
