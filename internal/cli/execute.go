package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// ExecuteOptions holds flags for the execute command.
type ExecuteOptions struct {
	*RootOptions
	As string
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecuteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "execute <action-id>",
		Short: "Execute an approved action",
		Long: `Run an approved action exactly once. Operator-only. A failed
execution leaves the action approved and executable for a retry; the
attempt is still recorded in the audit trail.

Examples:
  vaultd execute 3 --as 0xop...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "calling operator address (required)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runExecute(opts *ExecuteOptions, cmd *cobra.Command, arg string) error {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad action id", err)
	}
	caller, err := parseAddr(opts.As)
	if err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.vault.ExecuteAction(caller, id); err != nil {
		return failure(cmd, opts.RootOptions, err)
	}

	a, aerr := sess.vault.Action(id)
	if aerr != nil {
		return WrapExitError(ExitCommandError, "read back action", aerr)
	}
	if opts.Format == "json" {
		return outputJSON(cmd, actionView(a, false))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "action %d executed (%s %d %s for %s)\n", a.ID, a.Kind, a.AmountIn, a.AssetIn, a.User)
	return nil
}
