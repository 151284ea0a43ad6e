package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/errors"
)

// clearer is implemented by backends that can drop every entry.
type clearer interface {
	Clear() (int, error)
}

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the export payload cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached export payloads",
		Long: `Remove all cached export payloads. Credits live in the ledger and are
not affected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.clearCache(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", n)
			if c.Config.Cache.Dir != "" {
				printDetail("Directory: %s", c.Config.Cache.Dir)
			}
			return nil
		},
	}
}

func (c *CLI) clearCache(ctx context.Context) (int, error) {
	store, err := cache.Open(ctx, c.Config.Cache.Config)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	cl, ok := cache.Unwrap(store).(clearer)
	if !ok {
		return 0, errors.New(errors.ErrCodeUnsupported,
			"the %s backend cannot be cleared from here; entries expire after %s",
			c.Config.Cache.Backend, c.Config.Cache.TTL.Duration)
	}
	return cl.Clear()
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Cache
			if cfg.Backend != "" && cfg.Backend != cache.BackendFile {
				return errors.New(errors.ErrCodeUnsupported, "the %s backend has no directory", cfg.Backend)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Dir)
			return nil
		},
	}
}
