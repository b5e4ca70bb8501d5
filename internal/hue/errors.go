package hue

import "errors"

// Domain-specific errors for bridge operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRequestFailed is returned when an HTTP request to the bridge fails
	// at the transport level.
	ErrRequestFailed = errors.New("hue: request failed")

	// ErrStatus is returned when the bridge answers with a non-2xx status.
	ErrStatus = errors.New("hue: unexpected response status")

	// ErrDecode is returned when a response body cannot be decoded.
	ErrDecode = errors.New("hue: decoding response failed")

	// ErrRetriesExhausted wraps the last error after the Gateway has used
	// up its retry budget.
	ErrRetriesExhausted = errors.New("hue: retries exhausted")
)
