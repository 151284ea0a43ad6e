package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/ledger"
)

// creditsCommand creates the credits command for the local ledger.
func (c *CLI) creditsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show and manage table credits",
		Long: `Each [table] region in an exported frame costs one credit. Credits are
kept in a local ledger configured under [ledger] in the config file.`,
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, _ []string) error {
			return showBalance(ctx, led)
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "redeem [code]",
		Short: "Redeem a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, args []string) error {
			r, err := led.Redeem(ctx, args[0])
			if err != nil {
				return err
			}
			if r.Admin {
				if r.AdminMode {
					printSuccess("Admin mode enabled")
				} else {
					printInfo("Admin mode disabled")
				}
				return nil
			}
			printSuccess("Redeemed %s credits", StyleNumber.Render(strconv.Itoa(r.Credits)))
			printBalance(r.Balance)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [code]",
		Short: "Restore the initial balance",
		Args:  cobra.ExactArgs(1),
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, args []string) error {
			bal, err := led.Reset(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess("Credits reset")
			printBalance(bal)
			return nil
		}),
	})

	cmd.AddCommand(c.creditsAdminCommand())
	return cmd
}

// creditsAdminCommand groups the promo code management commands. They
// require admin mode, toggled by redeeming the admin secret.
func (c *CLI) creditsAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage promo codes (admin mode)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate [credits]",
		Short: "Generate a random promo code",
		Args:  cobra.ExactArgs(1),
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, args []string) error {
			n, err := parseCredits(args[0])
			if err != nil {
				return err
			}
			code, err := led.Generate(ctx, n)
			if err != nil {
				return err
			}
			printSuccess("Generated code worth %s credits", StyleNumber.Render(strconv.Itoa(n)))
			printKeyValue("Code", StyleHighlight.Render(code))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [code] [credits]",
		Short: "Register a promo code",
		Args:  cobra.ExactArgs(2),
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, args []string) error {
			n, err := parseCredits(args[1])
			if err != nil {
				return err
			}
			if err := led.AddCode(ctx, args[0], n); err != nil {
				return err
			}
			printSuccess("Added code %s worth %d credits", StyleHighlight.Render(args[0]), n)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unredeemed promo codes",
		Args:  cobra.NoArgs,
		RunE: c.withLedger(func(ctx context.Context, led *ledger.Ledger, _ []string) error {
			codes, err := led.Codes(ctx)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				printInfo("No codes available")
				return nil
			}
			for _, pc := range codes {
				printKeyValue(pc.Code, fmt.Sprintf("%d credits", pc.Credits))
			}
			return nil
		}),
	})

	return cmd
}

// withLedger opens the ledger around fn.
func (c *CLI) withLedger(fn func(context.Context, *ledger.Ledger, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		led, store, err := c.openLedger(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(ctx, led, args)
	}
}

func showBalance(ctx context.Context, led *ledger.Ledger) error {
	bal, err := led.Balance(ctx)
	if err != nil {
		return err
	}
	admin, err := led.IsAdmin(ctx)
	if err != nil {
		return err
	}
	printBalance(bal)
	if admin {
		printKeyValue("Mode", StyleWarning.Render("admin"))
	}
	return nil
}

func parseCredits(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "Invalid credits amount.")
	}
	return n, nil
}
