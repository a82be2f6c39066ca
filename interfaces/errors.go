package interfaces

import (
	"context"
	"errors"
	"fmt"
)

// ErrBindingNotFound is returned by ledger lookups for pairs that were never
// bound.
var ErrBindingNotFound = errors.New("binding not found")

// ErrAlreadyBound is returned when recording a binding for a pair that is
// already bound.
var ErrAlreadyBound = errors.New("order/product pair already bound")

// ErrContentNotFound is returned by storage backends for missing blobs.
var ErrContentNotFound = errors.New("content not found")

// ErrBackendUnavailable is returned by storage backends that cannot reach
// their underlying store.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// ErrorKind classifies every failure the activation core can surface.
// Each internal error is mapped to exactly one kind before reaching the
// caller; no raw transport or parsing error crosses the core boundary.
type ErrorKind int

const (
	// KindFormat marks a malformed or foreign file. Not retryable; the user
	// must pick a different file.
	KindFormat ErrorKind = iota

	// KindActivationNetwork marks a transport failure reaching the activation
	// service. Retryable by re-running the pipeline.
	KindActivationNetwork

	// KindActivationRejected marks an explicit denial by the activation
	// service, e.g. a hardware mismatch or unknown order. Not retryable; the
	// service's message is shown verbatim.
	KindActivationRejected

	// KindActivationServer marks a server-side failure (5xx-equivalent).
	// Retryable by re-running the pipeline.
	KindActivationServer

	// KindIntegrity marks tampered or wrong-key content. Never retried
	// automatically.
	KindIntegrity

	// KindCancelled marks a user-initiated cancellation. Not an error
	// condition in itself.
	KindCancelled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindActivationNetwork:
		return "activation-network"
	case KindActivationRejected:
		return "activation-rejected"
	case KindActivationServer:
		return "activation-server"
	case KindIntegrity:
		return "integrity"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether re-running the whole pipeline may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindActivationNetwork || k == KindActivationServer
}

// CoreError is the only error type the activation core surfaces to callers.
// It pairs a classification with a human-readable message suitable for
// direct display.
type CoreError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewCoreError builds a classified error. The message is what the user sees;
// cause, if any, is preserved for errors.Is/As inspection.
func NewCoreError(kind ErrorKind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *CoreError) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification from any error returned by the core.
// Plain context cancellations map to KindCancelled; anything else unclassified
// maps to KindActivationNetwork as the safest retryable default.
func KindOf(err error) ErrorKind {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindActivationNetwork
}
