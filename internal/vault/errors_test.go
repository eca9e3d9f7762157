package vault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Formatting(t *testing.T) {
	e := &Error{Code: CodeActionExpired, Message: "window closed", ActionID: 7}
	assert.Equal(t, "ACTION_EXPIRED: window closed (action=7)", e.Error())

	bare := &Error{Code: CodeUnauthorized, Message: "nope"}
	assert.Equal(t, "UNAUTHORIZED: nope", bare.Error())
}

func TestCodeOf_Unwraps(t *testing.T) {
	inner := &Error{Code: CodeTransferFailed, Message: "boom"}
	wrapped := fmt.Errorf("executing: %w", inner)

	assert.Equal(t, CodeTransferFailed, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeTransferFailed))
	assert.False(t, IsCode(wrapped, CodeUnauthorized))
}

func TestCodeOf_NonVaultError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestError_UnwrapCause(t *testing.T) {
	cause := errors.New("io broke")
	e := &Error{Code: CodeTransferFailed, Message: "outbound", Err: cause}
	assert.ErrorIs(t, e, cause)
}
