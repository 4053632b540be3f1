package engine

import "fmt"

// Code identifies a class of engine failure. The tool-dispatch layer maps
// these onto its own error envelope; the engine never returns anything else.
type Code string

const (
	// CodeConnection covers a port that won't open, disappeared, or was
	// already closed when an operation required it open.
	CodeConnection Code = "CONNECTION_ERROR"
	// CodeData covers malformed payload encoding: bad HEX, unknown
	// encoding selector, or an empty payload where the policy requires one.
	CodeData Code = "DATA_ERROR"
	// CodeTimeout is reserved for the outer tool layer; the engine itself
	// never returns it (KEYWORD timeout is a successful, non-error result).
	CodeTimeout Code = "TIMEOUT_ERROR"
	// CodeInvalidInput covers a missing required argument for the chosen
	// wait policy (e.g. KEYWORD without a stop pattern).
	CodeInvalidInput Code = "INVALID_INPUT_ERROR"
	// CodeSystem covers unexpected internal state: queue overflow, an
	// invariant violation, anything that should not happen.
	CodeSystem Code = "SYSTEM_ERROR"
)

// Error is the engine's single error type. It wraps an underlying cause
// where one exists and always carries a taxonomy Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func errConnection(msg string, err error) *Error { return newError(CodeConnection, msg, err) }
func errData(msg string, err error) *Error       { return newError(CodeData, msg, err) }
func errInvalidInput(msg string) *Error          { return newError(CodeInvalidInput, msg, nil) }
func errSystem(msg string, err error) *Error     { return newError(CodeSystem, msg, err) }
