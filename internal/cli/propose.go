package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// ProposeOptions holds flags for the propose command.
type ProposeOptions struct {
	*RootOptions
	As        string
	User      string
	Kind      string
	AssetIn   string
	AssetOut  string
	Amount    uint64
	MinOut    uint64
	Recipient string
}

// NewProposeCommand creates the propose command.
func NewProposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose an action on behalf of a user",
		Long: `Store a new pending action and print its id. Operator-only.
The action must be approved and then executed before its validity window
closes.

Kinds: withdraw, swap, remove_liquidity, emergency_withdraw.

Examples:
  vaultd propose --as 0xop... --user 0xabc... --kind withdraw \
      --asset-in cUSD --amount 400 --recipient 0xabc...
  vaultd propose --as 0xop... --user 0xabc... --kind swap \
      --asset-in CELO --asset-out cUSD --amount 100 --min-out 95`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropose(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling operator address (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.User, "user", "", "user the action is for (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "action kind (required)")
	_ = cmd.MarkFlagRequired("kind")
	cmd.Flags().StringVar(&opts.AssetIn, "asset-in", "", "asset debited from the user (required)")
	_ = cmd.MarkFlagRequired("asset-in")
	cmd.Flags().StringVar(&opts.AssetOut, "asset-out", "", "asset received (swap only)")
	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "amount in base units (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().Uint64Var(&opts.MinOut, "min-out", 0, "minimum acceptable output (swap only)")
	cmd.Flags().StringVar(&opts.Recipient, "recipient", "", "payout recipient (withdraw only)")

	return cmd
}

func runPropose(opts *ProposeOptions, cmd *cobra.Command) error {
	caller, err := parseAddr(opts.As)
	if err != nil {
		return err
	}
	user, err := parseAddr(opts.User)
	if err != nil {
		return err
	}
	kind, err := vault.ParseKind(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad kind", err)
	}
	assetIn, err := parseAsset(opts.AssetIn)
	if err != nil {
		return err
	}
	var assetOut identity.Asset
	if opts.AssetOut != "" {
		if assetOut, err = parseAsset(opts.AssetOut); err != nil {
			return err
		}
	}
	var recipient identity.Address
	if opts.Recipient != "" {
		if recipient, err = parseAddr(opts.Recipient); err != nil {
			return err
		}
	}

	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	id, err := sess.vault.ProposeAction(caller, vault.Proposal{
		User:         user,
		Kind:         kind,
		AssetIn:      assetIn,
		AssetOut:     assetOut,
		AmountIn:     opts.Amount,
		MinAmountOut: opts.MinOut,
		Recipient:    recipient,
	})
	if err != nil {
		return failure(cmd, opts.RootOptions, err)
	}

	a, aerr := sess.vault.Action(id)
	if aerr != nil {
		return WrapExitError(ExitCommandError, "read back action", aerr)
	}
	if opts.Format == "json" {
		return outputJSON(cmd, actionView(a, false))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "action %d proposed (%s, expires %s)\n", id, kind, a.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
