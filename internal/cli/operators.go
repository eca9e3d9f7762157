package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// OperatorsOptions holds flags for the operators subcommands.
type OperatorsOptions struct {
	*RootOptions
	As string
}

// NewOperatorsCommand creates the operators command group.
func NewOperatorsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperatorsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "operators",
		Short: "Manage the operator set",
		Long: `List, add, or remove operators. Changes are owner-only; the
owner starts as an operator.

Examples:
  vaultd operators list
  vaultd operators add 0xdef... --as 0xowner...
  vaultd operators remove 0xdef... --as 0xowner...`,
	}

	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "caller address (required for add/remove)")

	cmd.AddCommand(newOperatorsListCommand(opts))
	cmd.AddCommand(newOperatorsAddCommand(opts))
	cmd.AddCommand(newOperatorsRemoveCommand(opts))

	return cmd
}

func newOperatorsListCommand(opts *OperatorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List operators",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(opts.RootOptions)
			if err != nil {
				return err
			}
			defer sess.Close()

			operators := sess.vault.Operators()
			if opts.Format == "json" {
				ops := make([]string, len(operators))
				for i, op := range operators {
					ops[i] = op.String()
				}
				return outputJSON(cmd, map[string]any{
					"owner":     sess.vault.Owner().String(),
					"operators": ops,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "owner: %s\n", sess.vault.Owner())
			for _, op := range operators {
				fmt.Fprintf(w, "  %s\n", op)
			}
			return nil
		},
	}
}

func newOperatorsAddCommand(opts *OperatorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <address>",
		Short:         "Authorize an operator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorChange(opts, cmd, args[0], true)
		},
	}
}

func newOperatorsRemoveCommand(opts *OperatorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <address>",
		Short:         "Revoke an operator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorChange(opts, cmd, args[0], false)
		},
	}
}

func runOperatorChange(opts *OperatorsOptions, cmd *cobra.Command, arg string, add bool) error {
	if opts.As == "" {
		return WrapExitError(ExitCommandError, "--as is required", nil)
	}
	caller, err := parseAddr(opts.As)
	if err != nil {
		return err
	}
	operator, err := parseAddr(arg)
	if err != nil {
		return err
	}

	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	verb := "removed"
	if add {
		verb = "added"
		err = sess.vault.AddOperator(caller, operator)
	} else {
		err = sess.vault.RemoveOperator(caller, operator)
	}
	if err != nil {
		return failure(cmd, opts.RootOptions, err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, map[string]any{"operator": operator.String(), "change": verb})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "operator %s %s\n", operator, verb)
	return nil
}
