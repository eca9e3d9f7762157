package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// ActionView is the JSON shape of an action record.
type ActionView struct {
	ID           uint64 `json:"id"`
	User         string `json:"user"`
	Kind         string `json:"kind"`
	AssetIn      string `json:"asset_in"`
	AssetOut     string `json:"asset_out,omitempty"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Approved     bool   `json:"approved"`
	Executed     bool   `json:"executed"`
	Expired      bool   `json:"expired"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
}

func actionView(a vault.Action, expired bool) ActionView {
	view := ActionView{
		ID:           a.ID,
		User:         a.User.String(),
		Kind:         a.Kind.String(),
		AssetIn:      string(a.AssetIn),
		AssetOut:     string(a.AssetOut),
		AmountIn:     a.AmountIn,
		MinAmountOut: a.MinAmountOut,
		Approved:     a.Approved,
		Executed:     a.Executed,
		Expired:      expired,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:    a.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if !a.Recipient.IsZero() {
		view.Recipient = a.Recipient.String()
	}
	return view
}

// NewActionCommand creates the action command.
func NewActionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "action [action-id]",
		Short: "Show action records",
		Long: `Show one action record, or all of them in id order when no id
is given.

Examples:
  vaultd action 3
  vaultd action --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if len(args) == 1 {
				id, perr := strconv.ParseUint(args[0], 10, 64)
				if perr != nil {
					return WrapExitError(ExitCommandError, "bad action id", perr)
				}
				a, aerr := sess.vault.Action(id)
				if aerr != nil {
					return failure(cmd, rootOpts, aerr)
				}
				expired, _ := sess.vault.IsActionExpired(id)
				if rootOpts.Format == "json" {
					return outputJSON(cmd, actionView(a, expired))
				}
				printActionText(cmd, actionView(a, expired))
				return nil
			}

			actions := sess.vault.Actions()
			views := make([]ActionView, len(actions))
			for i, a := range actions {
				expired, _ := sess.vault.IsActionExpired(a.ID)
				views[i] = actionView(a, expired)
			}
			if rootOpts.Format == "json" {
				return outputJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no actions")
				return nil
			}
			for _, view := range views {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s %d %s for %s (%s)\n",
					view.ID, view.Kind, view.AmountIn, view.AssetIn, view.User, actionStatus(view))
			}
			return nil
		},
	}
}

func printActionText(cmd *cobra.Command, view ActionView) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Action %d: %s\n", view.ID, view.Kind)
	fmt.Fprintf(w, "  User:      %s\n", view.User)
	fmt.Fprintf(w, "  Asset in:  %d %s\n", view.AmountIn, view.AssetIn)
	if view.AssetOut != "" {
		fmt.Fprintf(w, "  Asset out: %s (min %d)\n", view.AssetOut, view.MinAmountOut)
	}
	if view.Recipient != "" {
		fmt.Fprintf(w, "  Recipient: %s\n", view.Recipient)
	}
	fmt.Fprintf(w, "  Status:    %s\n", actionStatus(view))
	fmt.Fprintf(w, "  Created:   %s\n", view.CreatedAt)
	fmt.Fprintf(w, "  Expires:   %s\n", view.ExpiresAt)
}

func actionStatus(view ActionView) string {
	switch {
	case view.Executed:
		return "executed"
	case view.Expired:
		return "expired"
	case view.Approved:
		return "approved"
	default:
		return "pending"
	}
}
