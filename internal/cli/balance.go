package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	Owner string
	Asset string
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a custodial balance",
		Long: `Show the custodial balance for an (owner, asset) pair.

Examples:
  vaultd balance --owner 0xabc... --asset cUSD`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "balance owner address (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&opts.Asset, "asset", "", "asset symbol (required)")
	_ = cmd.MarkFlagRequired("asset")

	return cmd
}

func runBalance(opts *BalanceOptions, cmd *cobra.Command) error {
	owner, err := parseAddr(opts.Owner)
	if err != nil {
		return err
	}
	asset, err := parseAsset(opts.Asset)
	if err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	balance := sess.vault.UserBalance(owner, asset)
	if opts.Format == "json" {
		return outputJSON(cmd, map[string]any{
			"owner":   owner.String(),
			"asset":   string(asset),
			"balance": balance,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s holds %d %s\n", owner, balance, asset)
	return nil
}
