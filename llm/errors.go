/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError wraps a provider failure with its classification. Transient errors
// (rate limits, overload, 5xx, timeouts) are worth retrying; everything else
// (bad credentials, malformed requests) is fatal and must surface immediately.
type APIError struct {
	// Provider names the backend that produced the error.
	Provider string
	// StatusCode is the HTTP status, when the provider returned one.
	StatusCode int
	// Transient reports whether retrying can reasonably succeed.
	Transient bool
	// Err is the underlying provider error.
	Err error
}

func (e *APIError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s API error (%s, status %d): %v", e.Provider, kind, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable remote failure. Network
// timeouts count as transient even without an APIError classification.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// retryableStatus reports whether an HTTP status from a completion endpoint
// indicates a transient condition. 529 is Anthropic's overloaded status.
func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// IsCancelled reports whether err is a caller-requested cancellation or
// deadline rather than a remote failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
