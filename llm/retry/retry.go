/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry implements bounded exponential backoff for remote completion
// calls. The state of a retry loop (attempt count, last error, next delay) is
// explicit so the policy can be tested without network calls.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retry behavior for completion API calls.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be at least 1.
	MaxAttempts int
	// BaseBackoff is the delay after the first failed attempt; it doubles
	// after each subsequent failure.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff.
	MaxJitter time.Duration
}

// Validate checks that the configuration has usable values.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultConfig returns a policy matched to rate-limited completion
// endpoints: a handful of attempts with seconds-scale backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Do executes fn with exponential backoff, retrying only errors the
// isRetryable classifier accepts. It returns the successful value and the
// number of attempts consumed. A non-retryable error aborts immediately with
// no backoff delay; exhausting all attempts returns the last error wrapped
// with the operation name.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, int, error) {
	var result T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, attempt, nil
		}

		if !isRetryable(lastErr) {
			return result, attempt, lastErr
		}

		if attempt == cfg.MaxAttempts {
			return result, attempt, fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxAttempts, lastErr)
		}

		backoff := min(cfg.BaseBackoff<<(attempt-1), cfg.MaxBackoff)

		// Random jitter avoids synchronized retries against the same quota.
		var jitter time.Duration
		if cfg.MaxJitter > 0 {
			if n, err := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter))); err == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt).
			With("max_attempts", cfg.MaxAttempts).
			With("backoff", backoff+jitter).
			With("error", lastErr.Error()).
			Warn("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return result, attempt, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}

	// Unreachable: the loop always returns.
	return result, cfg.MaxAttempts, lastErr
}
