/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/prdigest/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
)

// DefaultAnthropicModel is the messages-API model used unless overridden.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// anthropicClient implements Client against the Anthropic messages API.
type anthropicClient struct {
	client anthropic.Client
	model  string
	usage  *metrics.Usage
}

// AnthropicOption configures the Anthropic client.
type AnthropicOption func(*anthropicClient) error

// WithAnthropicModel overrides the completion model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicClient) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		c.model = model
		return nil
	}
}

// WithAnthropicUsage sets the metrics recorder for token usage.
func WithAnthropicUsage(usage *metrics.Usage) AnthropicOption {
	return func(c *anthropicClient) error {
		c.usage = usage
		return nil
	}
}

// NewAnthropic creates a Client backed by the Anthropic messages API.
func NewAnthropic(apiKey string, opts ...AnthropicOption) (Client, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key cannot be empty")
	}
	c := &anthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultAnthropicModel,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

// Model implements Client.
func (c *anthropicClient) Model() string { return c.model }

// Complete implements Client.
func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	params.Temperature = anthropic.Float(req.Temperature)
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &APIError{Provider: "anthropic", Transient: false, Err: errors.New("no text content in response")}
	}

	if c.usage != nil {
		c.usage.RecordCall(ctx, c.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}
	clog.FromContext(ctx).With("model", c.model).
		With("input_tokens", msg.Usage.InputTokens).
		With("output_tokens", msg.Usage.OutputTokens).
		Debug("Completion round-trip finished")

	return &Completion{
		Text:         text.String(),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

// classifyAnthropicError maps SDK errors onto the transient/fatal taxonomy.
// 529 is Anthropic's overloaded status.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Transient:  retryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}
	if IsCancelled(err) {
		return err
	}
	return &APIError{Provider: "anthropic", Transient: true, Err: err}
}
