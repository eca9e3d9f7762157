package vault

import (
	"errors"
	"fmt"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// Code categorizes vault errors. Every failed operation returns an *Error
// carrying exactly one code; callers branch on codes, not message text.
type Code string

const (
	// CodeUnauthorized: caller lacks the operator or owner role required
	// by the operation.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeInvalidAmount: zero amount where a positive one is required.
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// CodeInsufficientBalance: a ledger debit (or the advisory check at
	// proposal time) exceeds the current balance.
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// CodeSignatureInvalid: the approval signature is malformed or was not
	// produced by the action's user.
	CodeSignatureInvalid Code = "SIGNATURE_INVALID"

	// CodeAlreadyExecuted: the action has already executed.
	CodeAlreadyExecuted Code = "ALREADY_EXECUTED"

	// CodeNotApproved: execution attempted before approval.
	CodeNotApproved Code = "NOT_APPROVED"

	// CodeActionExpired: the action's validity window has closed.
	CodeActionExpired Code = "ACTION_EXPIRED"

	// CodeActionNotFound: no action with the given id.
	CodeActionNotFound Code = "ACTION_NOT_FOUND"

	// CodeTransferFailed: an external collaborator (transfer primitive,
	// swap venue, liquidity pool) reported failure.
	CodeTransferFailed Code = "TRANSFER_FAILED"

	// CodeReentrantCall: a guarded operation was entered while another
	// guarded operation was in flight.
	CodeReentrantCall Code = "REENTRANT_CALL"
)

// Error is a vault operation failure.
type Error struct {
	Code     Code
	Message  string
	ActionID uint64           // 0 when not action-scoped
	Actor    identity.Address // zero when not caller-scoped
	Err      error            // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ActionID != 0 && !e.Actor.IsZero():
		return fmt.Sprintf("%s: %s (action=%d, actor=%s)", e.Code, e.Message, e.ActionID, e.Actor)
	case e.ActionID != 0:
		return fmt.Sprintf("%s: %s (action=%d)", e.Code, e.Message, e.ActionID)
	case !e.Actor.IsZero():
		return fmt.Sprintf("%s: %s (actor=%s)", e.Code, e.Message, e.Actor)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the vault error code from err, unwrapping as needed.
// Returns "" for non-vault errors.
func CodeOf(err error) Code {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsCode reports whether err carries the given vault error code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func errUnauthorized(actor identity.Address, need string) *Error {
	return &Error{Code: CodeUnauthorized, Message: "caller is not " + need, Actor: actor}
}

func errActionNotFound(id uint64) *Error {
	return &Error{Code: CodeActionNotFound, Message: "no such action", ActionID: id}
}

func errReentrant(op string) *Error {
	return &Error{Code: CodeReentrantCall, Message: op + " while another guarded operation is in flight"}
}
