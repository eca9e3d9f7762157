package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ApproveOptions holds flags for the approve command.
type ApproveOptions struct {
	*RootOptions
	As        string
	Signature string
	Direct    bool
}

// NewApproveCommand creates the approve command.
func NewApproveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApproveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "approve <action-id>",
		Short: "Approve a pending action",
		Long: `Mark a pending action approved. The default path is signed:
an operator relays the user's compact signature over the approval
message, and the recovered signer must be the action's user. With
--direct the caller approves as the user themselves; that path carries
no cryptographic proof and works only when enabled in the
configuration.

Examples:
  vaultd approve 3 --as 0xop... --signature 0x1b2f...
  vaultd approve 3 --as 0xabc... --direct`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprove(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "caller address (required)")
	_ = cmd.MarkFlagRequired("as")
	cmd.Flags().StringVar(&opts.Signature, "signature", "", "hex compact signature from the user")
	cmd.Flags().BoolVar(&opts.Direct, "direct", false, "approve as the action user, without a signature")

	return cmd
}

func runApprove(opts *ApproveOptions, cmd *cobra.Command, arg string) error {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad action id", err)
	}
	caller, err := parseAddr(opts.As)
	if err != nil {
		return err
	}
	if opts.Direct == (opts.Signature != "") {
		return WrapExitError(ExitCommandError, "exactly one of --signature or --direct is required", nil)
	}

	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := "direct"
	if opts.Direct {
		err = sess.vault.ApproveActionDirect(caller, id)
	} else {
		sig, derr := hex.DecodeString(strings.TrimPrefix(opts.Signature, "0x"))
		if derr != nil {
			return WrapExitError(ExitCommandError, "bad signature hex", derr)
		}
		path = "signed"
		err = sess.vault.ApproveAction(caller, id, sig)
	}
	if err != nil {
		return failure(cmd, opts.RootOptions, err)
	}

	if opts.Format == "json" {
		return outputJSON(cmd, map[string]any{"action_id": id, "approved": true, "path": path})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "action %d approved (%s)\n", id, path)
	return nil
}
