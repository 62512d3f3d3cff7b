/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/prdigest/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the completion model used unless overridden.
const DefaultOpenAIModel = "gpt-4o-mini"

// openAIClient implements Client against the OpenAI chat completions API.
type openAIClient struct {
	client openai.Client
	model  string
	usage  *metrics.Usage
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*openAIClient) error

// WithOpenAIModel overrides the completion model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIClient) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithOpenAIUsage sets the metrics recorder for token usage.
func WithOpenAIUsage(usage *metrics.Usage) OpenAIOption {
	return func(c *openAIClient) error {
		c.usage = usage
		return nil
	}
}

// NewOpenAI creates a Client backed by the OpenAI chat completions API.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (Client, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	c := &openAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultOpenAIModel,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

// Model implements Client.
func (c *openAIClient) Model() string { return c.model }

// Complete implements Client.
func (c *openAIClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.System != "" {
		params.Messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
		}, params.Messages...)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	params.Temperature = openai.Float(req.Temperature)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &APIError{Provider: "openai", Transient: false, Err: errors.New("no choices in response")}
	}

	if c.usage != nil {
		c.usage.RecordCall(ctx, c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	clog.FromContext(ctx).With("model", c.model).
		With("input_tokens", resp.Usage.PromptTokens).
		With("output_tokens", resp.Usage.CompletionTokens).
		Debug("Completion round-trip finished")

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classifyOpenAIError maps SDK errors onto the transient/fatal taxonomy.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "openai",
			StatusCode: apiErr.StatusCode,
			Transient:  retryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}
	if IsCancelled(err) {
		return err
	}
	// Connection-level failures without a status are worth retrying.
	return &APIError{Provider: "openai", Transient: true, Err: err}
}
