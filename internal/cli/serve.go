package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/internal/server"
	"github.com/matzehuels/mailframe/pkg/cache"
)

// serveCommand creates the serve command, which runs the HTTP API and the
// websocket shell used by design tool plugins.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the export API and plugin websocket",
		Long: `Serve exposes exports, conversion and credits over HTTP under /api/v1 and
as a message protocol on /ws. Every client gets its own session and credit
ledger; sessions, ledgers and payloads live in the [ledger] store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}
			if len(origins) > 0 {
				cfg.AllowedOrigins = origins
			}

			ctx := cmd.Context()
			store, err := cache.Open(ctx, c.Config.Ledger.Config)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			srv := server.New(cfg, server.Deps{
				Store:  store,
				Fonts:  c.fontLoader(),
				Ledger: c.Config.Ledger.options(c.Logger),
				Export: c.exportDefaults(),
				Logger: c.Logger,
			})

			printInfo("Serving on %s", StyleLink.Render("http://"+cfg.Addr))
			printDetail("Websocket: ws://%s/ws", cfg.Addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+server.DefaultAddr+")")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "websocket origin to accept, e.g. https://*.figma.com (repeatable)")

	return cmd
}
