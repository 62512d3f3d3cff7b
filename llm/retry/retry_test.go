/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/prdigest/llm/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		MaxAttempts: 4,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

// alwaysRetryable is a test helper that considers all errors retryable.
func alwaysRetryable(err error) bool {
	return err != nil
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	result, n, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected result %q, got %q", "ok", result)
	}
	if n != 1 {
		t.Fatalf("expected 1 attempt consumed, got %d", n)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	retryableErr := errors.New("429 rate limit exceeded")

	result, n, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func() (string, error) {
		if attempts.Add(1) < 3 {
			return "", retryableErr
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("expected result %q, got %q", "recovered", result)
	}
	if n != 3 {
		t.Fatalf("expected 3 attempts consumed, got %d", n)
	}
}

func TestDo_ExhaustedAttempts(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	retryableErr := errors.New("503 service unavailable")

	var attempts atomic.Int32
	_, n, err := retry.Do(context.Background(), cfg, "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "", retryableErr
	})
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if got := attempts.Load(); got != int32(cfg.MaxAttempts) {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxAttempts, got)
	}
	if n != cfg.MaxAttempts {
		t.Fatalf("expected %d attempts consumed, got %d", cfg.MaxAttempts, n)
	}
	if !errors.Is(err, retryableErr) {
		t.Fatalf("expected wrapped error to contain original, got: %v", err)
	}
	expected := fmt.Sprintf("test_op failed after %d attempts", cfg.MaxAttempts)
	if got := err.Error(); got[:len(expected)] != expected {
		t.Fatalf("expected error to start with %q, got %q", expected, got)
	}
}

func TestDo_NonRetryableError(t *testing.T) {
	t.Parallel()
	permErr := errors.New("401 invalid api key")

	var attempts atomic.Int32
	_, n, err := retry.Do(context.Background(), testConfig(), "test_op", func(error) bool { return false }, func() (string, error) {
		attempts.Add(1)
		return "", permErr
	})
	if err == nil {
		t.Fatal("expected error for non-retryable failure")
	}
	if !errors.Is(err, permErr) {
		t.Fatalf("expected original error, got: %v", err)
	}
	// A fatal error aborts without consuming further attempts.
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
	if n != 1 {
		t.Fatalf("expected 1 attempt consumed, got %d", n)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	retryableErr := errors.New("429 rate limit exceeded")

	var attempts atomic.Int32
	// Cancel after the first failure so the backoff sleep is interrupted.
	_, _, err := retry.Do(ctx, testConfig(), "test_op", alwaysRetryable, func() (string, error) {
		if attempts.Add(1) == 1 {
			cancel()
		}
		return "", retryableErr
	})
	if err == nil {
		t.Fatal("expected error on context cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", got)
	}
}

func TestDo_SingleAttempt(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxAttempts = 1
	retryableErr := errors.New("429 rate limit exceeded")

	var attempts atomic.Int32
	_, _, err := retry.Do(context.Background(), cfg, "test_op", alwaysRetryable, func() (string, error) {
		attempts.Add(1)
		return "", retryableErr
	})
	if err == nil {
		t.Fatal("expected error with a single attempt")
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     retry.Config
		wantErr bool
	}{
		{name: "valid", cfg: testConfig()},
		{name: "default", cfg: retry.DefaultConfig()},
		{name: "zero attempts", cfg: retry.Config{MaxAttempts: 0}, wantErr: true},
		{name: "negative base backoff", cfg: retry.Config{MaxAttempts: 1, BaseBackoff: -time.Second}, wantErr: true},
		{name: "negative max backoff", cfg: retry.Config{MaxAttempts: 1, MaxBackoff: -time.Second}, wantErr: true},
		{name: "negative jitter", cfg: retry.Config{MaxAttempts: 1, MaxJitter: -time.Second}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := retry.DefaultConfig()

	if cfg.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", cfg.MaxAttempts)
	}
	if cfg.BaseBackoff != 2*time.Second {
		t.Errorf("BaseBackoff = %v, want %v", cfg.BaseBackoff, 2*time.Second)
	}
	if cfg.MaxBackoff != 60*time.Second {
		t.Errorf("MaxBackoff = %v, want %v", cfg.MaxBackoff, 60*time.Second)
	}
	if cfg.MaxJitter != 500*time.Millisecond {
		t.Errorf("MaxJitter = %v, want %v", cfg.MaxJitter, 500*time.Millisecond)
	}
}
