/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package llm abstracts language-model completion endpoints behind a small
// Client interface, with OpenAI and Anthropic implementations and a shared
// transient/fatal error taxonomy.
package llm

import (
	"context"
)

// Request describes a single completion call.
type Request struct {
	// System is the system instruction, optional.
	System string
	// Prompt is the user prompt.
	Prompt string
	// MaxTokens bounds the generated output length.
	MaxTokens int64
	// Temperature controls sampling randomness.
	Temperature float64
}

// Completion is the model's response to a Request.
type Completion struct {
	// Text is the generated text.
	Text string
	// InputTokens and OutputTokens are the usage reported by the provider.
	InputTokens  int64
	OutputTokens int64
}

// Client invokes a language-model completion endpoint. Each call is a network
// round-trip; implementations classify failures so callers can distinguish
// retryable conditions from fatal ones (see IsTransient).
type Client interface {
	// Complete generates text for the given request.
	Complete(ctx context.Context, req Request) (*Completion, error)
	// Model returns the model identifier calls are issued against.
	Model() string
}
