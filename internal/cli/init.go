package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the journal and seed the operator set",
		Long: `Create (or open) the journal named by the configuration and
persist the configured operator set so later commands rehydrate it.

Examples:
  vaultd init --config vault.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			operators := sess.vault.Operators()
			if err := sess.jrnl.SaveOperators(operators); err != nil {
				return WrapExitError(ExitCommandError, "persist operators", err)
			}

			if rootOpts.Format == "json" {
				ops := make([]string, len(operators))
				for i, op := range operators {
					ops[i] = op.String()
				}
				return outputJSON(cmd, map[string]any{
					"journal":   sess.cfg.JournalPath,
					"owner":     sess.vault.Owner().String(),
					"operators": ops,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journal %s ready, owner %s, %d operator(s)\n",
				sess.cfg.JournalPath, sess.vault.Owner(), len(operators))
			return nil
		},
	}
}
