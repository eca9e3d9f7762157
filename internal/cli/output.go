package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/vault"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // vault refused the operation (unauthorized, expired, etc.)
	ExitCommandError = 2 // command error (bad flags, missing config, journal unreachable)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without a code
// map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON envelope for command output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of the envelope. Code carries the vault error
// taxonomy code when the vault refused the operation.
type CLIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// outputJSON writes the success envelope, indented.
func outputJSON(cmd *cobra.Command, data any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}

// failure converts a vault refusal into command output plus an ExitError.
// In JSON mode the refusal is reported in the envelope so scripted callers
// never have to parse stderr.
func failure(cmd *cobra.Command, opts *RootOptions, err error) error {
	code := string(vault.CodeOf(err))
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: err.Error()}})
	} else if code != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "refused [%s]: %v\n", code, err)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "refused: %v\n", err)
	}
	return &ExitError{Code: ExitFailure, Message: "operation refused", Err: err}
}
