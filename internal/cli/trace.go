package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	After    int64
	ActionID uint64
	Type     string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the audit event stream",
		Long: `Read the audit trail in seq order. This is the same stream the
external notification service consumes; --after resumes past a cursor.

Examples:
  vaultd trace
  vaultd trace --after 42
  vaultd trace --action 3 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().Uint64Var(&opts.ActionID, "action", 0, "filter to one action id")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one event type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	events, err := sess.jrnl.ReadEvents(context.Background(), opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "read events", err)
	}

	filtered := events[:0]
	for _, ev := range events {
		if opts.ActionID != 0 && ev.ActionID != opts.ActionID {
			continue
		}
		if opts.Type != "" && string(ev.Type) != opts.Type {
			continue
		}
		filtered = append(filtered, ev)
	}

	if opts.Format == "json" {
		if filtered == nil {
			filtered = []vault.Event{}
		}
		return outputJSON(cmd, filtered)
	}

	w := cmd.OutOrStdout()
	if len(filtered) == 0 {
		fmt.Fprintln(w, "no events")
		return nil
	}
	for _, ev := range filtered {
		line := fmt.Sprintf("[%d] %s actor=%s", ev.Seq, ev.Type, ev.Actor)
		if ev.ActionID != 0 {
			line += fmt.Sprintf(" action=%d", ev.ActionID)
		}
		fmt.Fprintln(w, line)
		if opts.Verbose && len(ev.Payload) > 0 {
			fmt.Fprintf(w, "     %s\n", formatPayload(ev.Payload))
		}
	}
	return nil
}

// formatPayload renders a payload with sorted keys so output is stable.
func formatPayload(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, payload[k])
	}
	return strings.Join(parts, " ")
}
