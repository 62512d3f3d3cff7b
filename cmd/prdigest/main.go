/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements prdigest, a CLI that fetches merged pull-request
// metadata from GitHub, optionally enriches it with Linear issue data,
// summarizes it through a chunked LLM pipeline, and delivers the result to
// Slack or a Markdown file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/prdigest/llm"
	"chainguard.dev/prdigest/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// config collects every credential the commands may need. Tokens are
// resolved once at startup and passed down explicitly; nothing reads the
// environment mid-pipeline.
type config struct {
	GitHubToken     string `env:"GITHUB_TOKEN"`
	OpenAIKey       string `env:"OPENAI_API_KEY"`
	AnthropicKey    string `env:"ANTHROPIC_API_KEY"`
	LinearKey       string `env:"LINEAR_API_KEY"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackBotToken   string `env:"SLACK_BOT_TOKEN"`
	SlackChannelID  string `env:"SLACK_CHANNEL_ID"`
}

var cfg config

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:           "prdigest",
		Short:         "Summarize merged GitHub pull requests with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return envconfig.Process(cmd.Context(), &cfg)
		},
	}

	root.AddCommand(
		newReportCommand(),
		newFetchCommand(),
		newSummarizeCommand(),
		newCheckCommand(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			clog.ErrorContext(ctx, "cancelled")
		} else {
			clog.ErrorContextf(ctx, "%v", err)
		}
		os.Exit(1)
	}
}

// newLLMClient builds the completion client for the selected provider,
// wired to a shared usage metrics recorder.
func newLLMClient(provider, model string) (llm.Client, error) {
	usage := metrics.NewUsage("prdigest")
	switch provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, errors.New("OpenAI API key is required: set OPENAI_API_KEY")
		}
		opts := []llm.OpenAIOption{llm.WithOpenAIUsage(usage)}
		if model != "" {
			opts = append(opts, llm.WithOpenAIModel(model))
		}
		return llm.NewOpenAI(cfg.OpenAIKey, opts...)
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, errors.New("Anthropic API key is required: set ANTHROPIC_API_KEY")
		}
		opts := []llm.AnthropicOption{llm.WithAnthropicUsage(usage)}
		if model != "" {
			opts = append(opts, llm.WithAnthropicModel(model))
		}
		return llm.NewAnthropic(cfg.AnthropicKey, opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q (expected openai or anthropic)", provider)
	}
}
