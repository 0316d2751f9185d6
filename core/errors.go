package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/defiweb/go-eth/types"
)

// Exit codes per error category. 1 is left to cobra for usage errors.
const (
	ExitOK                  = 0
	ExitValidation          = 2
	ExitResolution          = 3
	ExitSigning             = 4
	ExitTransport           = 5
	ExitRPC                 = 6
	ExitConfirmationTimeout = 7
)

// ValidationError reports bad, missing or conflicting arguments. It is always
// raised before any network call is attempted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError builds a validation error from a plain message. Used by
// the CLI layer for flag-level failures.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// ResolutionError reports a failed ENS name resolution.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to resolve ENS name %q", e.Name)
	}
	return fmt.Sprintf("failed to resolve ENS name %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TransportError reports a connection, timeout or malformed-response failure.
// The node was never reached or never produced a well-formed JSON-RPC reply.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure calling %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RPCError is a well-formed JSON-RPC error response from the node.
type RPCError struct {
	Method  string
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error from %s: %s (code %d)", e.Method, e.Message, e.Code)
}

// SigningError reports missing or invalid key material.
type SigningError struct {
	Msg string
}

func (e *SigningError) Error() string {
	return e.Msg
}

func signingErrorf(format string, args ...any) error {
	return &SigningError{Msg: fmt.Sprintf(format, args...)}
}

// ConfirmationTimeoutError means receipt polling exceeded its bound. The
// transaction itself may still be pending, so the hash is preserved for the
// renderer.
type ConfirmationTimeoutError struct {
	TxHash  types.Hash
	Timeout time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("no receipt for transaction %s after %s, transaction may still be pending", e.TxHash, e.Timeout)
}

// ExitCode maps an error to the process exit code for its category.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		validation   *ValidationError
		resolution   *ResolutionError
		transport    *TransportError
		rpcErr       *RPCError
		signing      *SigningError
		confirmation *ConfirmationTimeoutError
	)
	switch {
	case errors.As(err, &validation):
		return ExitValidation
	case errors.As(err, &resolution):
		return ExitResolution
	case errors.As(err, &signing):
		return ExitSigning
	case errors.As(err, &confirmation):
		return ExitConfirmationTimeout
	case errors.As(err, &rpcErr):
		return ExitRPC
	case errors.As(err, &transport):
		return ExitTransport
	}
	return 1
}

// ErrorCategory returns the metrics/render label for an error.
func ErrorCategory(err error) string {
	switch ExitCode(err) {
	case ExitValidation:
		return "validation"
	case ExitResolution:
		return "resolution"
	case ExitSigning:
		return "signing"
	case ExitConfirmationTimeout:
		return "confirmation_timeout"
	case ExitRPC:
		return "rpc"
	case ExitTransport:
		return "transport"
	default:
		return "error"
	}
}
