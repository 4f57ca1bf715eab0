package tsubakuro

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindPredicates(t *testing.T) {
	var tg TgError = ClientError("bad request")
	_, ok := AsClientError(tg)
	assert.True(t, ok)

	_, ok = AsServerError(tg)
	assert.False(t, ok)
}

func TestErrorsAsUnwrapsWrappedCause(t *testing.T) {
	cause := errors.New("socket reset")
	err := IoError("write frame", cause)
	wrapped := fmt.Errorf("sendFrame: %w", err)

	ioErr, ok := AsIoError(wrapped)
	assert.True(t, ok)
	assert.Same(t, cause, errors.Unwrap(ioErr))
}

func TestCoreServiceDiagnosticCodeKnownName(t *testing.T) {
	code := CoreServiceDiagnosticCode("SESSION_CLOSED")
	assert.Equal(t, int32(301), code.Number)
	assert.Equal(t, "SESSION_CLOSED", code.SymbolicName)
}

func TestCoreServiceDiagnosticCodeUnknownNameFallsBack(t *testing.T) {
	code := CoreServiceDiagnosticCode("NOT_A_REAL_CODE")
	assert.Equal(t, int32(0), code.Number)
	assert.Contains(t, code.SymbolicName, "UnknownCoreError")
}

func TestErrClosedIsIoError(t *testing.T) {
	_, ok := AsIoError(ErrClosed)
	assert.True(t, ok)
}
