package tsubakuro

import (
	"errors"
	"fmt"
)

// TgError is the taxonomy every layer of the core threads errors through:
// ClientError, TimeoutError, IoError and ServerError. Higher layers (ODBC,
// FFI) translate these into their own vocabulary (e.g. SQLSTATE); this
// package never does that translation itself.
type TgError interface {
	error
	tgError()
}

// ClientErr is a caller-side precondition violation or parse failure.
type ClientErr struct {
	Msg   string
	Cause error
}

func (e *ClientErr) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("client error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("client error: %s", e.Msg)
}

func (e *ClientErr) Unwrap() error { return e.Cause }
func (*ClientErr) tgError()        {}

// ClientError builds a ClientErr, optionally wrapping a cause.
func ClientError(msg string, cause ...error) *ClientErr {
	e := &ClientErr{Msg: msg}
	if len(cause) > 0 {
		e.Cause = cause[0]
	}
	return e
}

// TimeoutErr reports that a deadline expired before an operation completed.
// The underlying slot/request is not touched and remains valid on retry.
type TimeoutErr struct {
	FunctionName string
}

func (e *TimeoutErr) Error() string { return fmt.Sprintf("%s: timeout", e.FunctionName) }
func (*TimeoutErr) tgError()        {}

// TimeoutError builds a TimeoutErr tagged with the function that timed out.
func TimeoutError(functionName string) *TimeoutErr {
	return &TimeoutErr{FunctionName: functionName}
}

// IoErr is a transport failure; it subsumes EOF/short-read during framing.
type IoErr struct {
	Msg   string
	Cause error
}

func (e *IoErr) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("io error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("io error: %s", e.Msg)
}

func (e *IoErr) Unwrap() error { return e.Cause }
func (*IoErr) tgError()        {}

// IoError builds an IoErr, optionally wrapping a cause.
func IoError(msg string, cause ...error) *IoErr {
	e := &IoErr{Msg: msg}
	if len(cause) > 0 {
		e.Cause = cause[0]
	}
	return e
}

// ErrClosed is the IoErr returned once the owning Link/Wire/Session has
// transitioned to the closed state; every still-pending slot fails with it.
var ErrClosed = IoError("session closed")

// DiagnosticCode is the structured server-side error identifier:
// (service_id, category, numeric_code, symbolic_name).
type DiagnosticCode struct {
	ServiceID    int32
	Category     string
	Number       int32
	SymbolicName string
}

func (d DiagnosticCode) String() string {
	return fmt.Sprintf("%s-%05d(%s)", d.Category, d.Number, d.SymbolicName)
}

// ServerErr is a diagnostic record returned by the server.
type ServerErr struct {
	FunctionName string
	Message      string
	Code         DiagnosticCode
	ServerMsg    string
}

func (e *ServerErr) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", e.FunctionName, e.Message, e.Code, e.ServerMsg)
}
func (*ServerErr) tgError() {}

// ServerError builds a ServerErr.
func ServerError(functionName, message string, code DiagnosticCode, serverMsg string) *ServerErr {
	return &ServerErr{FunctionName: functionName, Message: message, Code: code, ServerMsg: serverMsg}
}

// AsClientError reports whether err is (or wraps) a *ClientErr.
func AsClientError(err error) (*ClientErr, bool) {
	var ce *ClientErr
	return ce, errors.As(err, &ce)
}

// AsServerError reports whether err is (or wraps) a *ServerErr.
func AsServerError(err error) (*ServerErr, bool) {
	var se *ServerErr
	return se, errors.As(err, &se)
}

// AsIoError reports whether err is (or wraps) an *IoErr.
func AsIoError(err error) (*IoErr, bool) {
	var ie *IoErr
	return ie, errors.As(err, &ie)
}

// AsTimeoutError reports whether err is (or wraps) a *TimeoutErr.
func AsTimeoutError(err error) (*TimeoutErr, bool) {
	var te *TimeoutErr
	return te, errors.As(err, &te)
}

// coreServiceDiagnosticCodeNumbers maps each core (session) service
// diagnostic symbolic name to its numeric code. Kept as a static table
// since diagnostic-code numbering is data, not code.
var coreServiceDiagnosticCodeNumbers = map[string]int32{
	"UNKNOWN":               0,
	"SYSTEM_ERROR":          100,
	"UNSUPPORTED_OPERATION": 101,
	"ILLEGAL_STATE":         102,
	"IO_ERROR":              103,
	"OUT_OF_MEMORY":         104,
	"RESOURCE_LIMIT_REACHED": 105,
	"AUTHENTICATION_ERROR":  201,
	"PERMISSION_ERROR":      202,
	"ACCESS_EXPIRED":        203,
	"REFRESH_EXPIRED":       204,
	"BROKEN_CREDENTIAL":     205,
	"SESSION_CLOSED":        301,
	"SESSION_EXPIRED":       302,
	"SERVICE_NOT_FOUND":     401,
	"SERVICE_UNAVAILABLE":   402,
	"OPERATION_CANCELED":    403,
	"INVALID_REQUEST":       501,
}

// CoreServiceDiagnosticCode builds a DiagnosticCode for a core-service
// symbolic name, looking up its numeric code in the static table above.
// Unknown names fall back to code 0 with the symbolic name
// "UnknownCoreError<name>" (category stays "SCD"), mirroring
// original_source's "UnknownCoreError{n}" fallback naming.
func CoreServiceDiagnosticCode(symbolicName string) DiagnosticCode {
	number, ok := coreServiceDiagnosticCodeNumbers[symbolicName]
	if !ok {
		number = 0
		symbolicName = fmt.Sprintf("UnknownCoreError%s", symbolicName)
	}
	return DiagnosticCode{ServiceID: 0, Category: "SCD", Number: number, SymbolicName: symbolicName}
}
