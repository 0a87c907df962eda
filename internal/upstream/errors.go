package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ValidationError marks a malformed or unsupported (method, chain, params)
// combination. The request never reaches the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a failed symbol or address resolution.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %q", e.Identifier)
}

// ProviderError carries an upstream HTTP failure. Timeout is set when the
// call exceeded its deadline, which callers treat as a transient variant.
type ProviderError struct {
	API     string
	Status  int
	Message string
	Timeout bool
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out", e.API)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.API, e.Status, e.Message)
}

// WrapTransport converts a transport-level error from http.Client.Do into a
// ProviderError, flagging deadline expiry as a timeout.
func WrapTransport(api string, err error) *ProviderError {
	pe := &ProviderError{API: api, Message: err.Error()}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		pe.Timeout = true
	}
	return pe
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
