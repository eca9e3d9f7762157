package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DepositOptions holds flags for the deposit command.
type DepositOptions struct {
	*RootOptions
	From   string
	Asset  string
	Amount uint64
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DepositOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit funds into custody",
		Long: `Credit the depositor's custodial balance. Deposits of the
configured native symbol carry the value with the call itself; any other
asset is pulled in through its transfer primitive first.

Examples:
  vaultd deposit --from 0xabc... --asset cUSD --amount 1000
  vaultd deposit --from 0xabc... --asset CELO --amount 500`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeposit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "depositor address (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&opts.Asset, "asset", "", "asset symbol (required)")
	_ = cmd.MarkFlagRequired("asset")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "amount in base units (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runDeposit(opts *DepositOptions, cmd *cobra.Command) error {
	from, err := parseAddr(opts.From)
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

	if asset == sess.cfg.NativeSymbol {
		err = sess.vault.DepositNative(from, opts.Amount)
	} else {
		// The simulated world has no pre-existing external funds, so the
		// depositor is funded right before the pull.
		sess.world.Mint(asset, from, opts.Amount)
		err = sess.vault.Deposit(from, asset, opts.Amount)
	}
	if err != nil {
		return failure(cmd, opts.RootOptions, err)
	}

	balance := sess.vault.UserBalance(from, asset)
	if opts.Format == "json" {
		return outputJSON(cmd, map[string]any{
			"owner":   from.String(),
			"asset":   string(asset),
			"amount":  opts.Amount,
			"balance": balance,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deposited %d %s for %s (balance now %d)\n", opts.Amount, asset, from, balance)
	return nil
}
