package providers

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds the scan executor branches on
var (
	// ErrTimeout means the provider call exceeded its deadline; retryable
	ErrTimeout = errors.New("provider timeout")
	// ErrQuotaExceeded means the upstream rejected us for rate/quota; retryable
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrUpstream means the call failed in transit or the upstream returned
	// a server error; retryable
	ErrUpstream = errors.New("upstream provider failure")
	// ErrMalformedResponse means the upstream answered with something
	// unusable; not retryable, the same request would fail again
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrUnknownEngine means no adapter is registered for the identifier
	ErrUnknownEngine = errors.New("unknown engine")
)

// ProviderError wraps an upstream failure with the engine it came from
// and a kind the executor can test with errors.Is.
type ProviderError struct {
	Engine string
	Kind   error
	Cause  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Engine, e.Kind, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// Retryable reports whether re-enqueueing the same probe could succeed
func (e *ProviderError) Retryable() bool {
	return errors.Is(e.Kind, ErrTimeout) || errors.Is(e.Kind, ErrQuotaExceeded) || errors.Is(e.Kind, ErrUpstream)
}

// classify maps a raw SDK call error to a ProviderError. Deadline expiry is
// a timeout; everything else that failed in transit (resets, EOF, 5xx) is a
// transient upstream failure. The non-retryable malformed kind is reserved
// for payloads the adapters inspect and reject themselves.
func classify(engine string, err error) *ProviderError {
	kind := ErrUpstream
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrTimeout
	}
	return &ProviderError{Engine: engine, Kind: kind, Cause: err}
}

func quotaError(engine string, err error) *ProviderError {
	return &ProviderError{Engine: engine, Kind: ErrQuotaExceeded, Cause: err}
}

func malformedError(engine string, err error) *ProviderError {
	return &ProviderError{Engine: engine, Kind: ErrMalformedResponse, Cause: err}
}
