/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"chainguard.dev/prdigest/chunker"
	"chainguard.dev/prdigest/github"
	"chainguard.dev/prdigest/linear"
	"chainguard.dev/prdigest/slack"
	"chainguard.dev/prdigest/summarize"
	"chainguard.dev/prdigest/tokenizer"
	"github.com/chainguard-dev/clog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// costConfirmThreshold is the projected cost above which the report command
// asks for confirmation before calling the API in interactive mode.
var costConfirmThreshold = decimal.NewFromFloat(1.00)

// pipelineFlags are the summarization knobs shared by report and summarize.
type pipelineFlags struct {
	provider     string
	model        string
	chunkSize    int
	maxWords     int
	concurrency  int
	bestEffort   bool
	estimateOnly bool
	interactive  bool
}

func (p *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.provider, "provider", "openai", "LLM provider: openai or anthropic")
	cmd.Flags().StringVar(&p.model, "model", "", "override the provider's default model")
	cmd.Flags().IntVar(&p.chunkSize, "chunk-size", 0, "token budget per chunk (default 10000)")
	cmd.Flags().IntVar(&p.maxWords, "max-words", 0, "word limit for the final summary (default 300)")
	cmd.Flags().IntVar(&p.concurrency, "concurrency", 1, "concurrent chunk summarization calls")
	cmd.Flags().BoolVar(&p.bestEffort, "best-effort", false, "substitute placeholders for failed chunks instead of aborting")
	cmd.Flags().BoolVar(&p.estimateOnly, "estimate-only", false, "print the cost estimate and exit without calling the API")
	cmd.Flags().BoolVar(&p.interactive, "interactive", false, "confirm before spending above the cost threshold")
}

func newReportCommand() *cobra.Command {
	var (
		pf          pipelineFlags
		branches    []string
		timeRange   string
		output      string
		sendToSlack bool
		saveRaw     bool
	)

	cmd := &cobra.Command{
		Use:   "report OWNER/REPO...",
		Short: "Fetch merged PRs, summarize them, and deliver the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := clog.FromContext(ctx)

			window, err := github.ParseTimeRange(timeRange, time.Now())
			if err != nil {
				return err
			}

			fetcher := github.NewFetcher(ctx, cfg.GitHubToken)

			var failed int
			for _, repoSpec := range args {
				if err := runReport(cmd, fetcher, repoSpec, branches, window, pf, output, sendToSlack, saveRaw); err != nil {
					if len(args) == 1 {
						return err
					}
					log.With("repo", repoSpec).With("error", err.Error()).
						Error("Report failed, continuing with remaining repositories")
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d reports failed", failed, len(args))
			}
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().StringSliceVar(&branches, "branches", []string{"main"}, "base branches to include")
	cmd.Flags().StringVar(&timeRange, "time-range", "1w", "time range: 1w, 1m, 6m, 1y, custom:START[:END], or an ISO date")
	cmd.Flags().StringVar(&output, "output", "", "output Markdown file (default pr_summary_<repo>_<timestamp>.md)")
	cmd.Flags().BoolVar(&sendToSlack, "send-to-slack", false, "post the summary to Slack")
	cmd.Flags().BoolVar(&saveRaw, "save-raw-data", true, "save fetched PR records as JSON alongside the report")
	return cmd
}

func runReport(cmd *cobra.Command, fetcher *github.Fetcher, repoSpec string, branches []string, window github.TimeRange, pf pipelineFlags, output string, sendToSlack, saveRaw bool) error {
	ctx := cmd.Context()
	log := clog.FromContext(ctx).With("repo", repoSpec)

	owner, repo, err := github.ParseRepo(repoSpec)
	if err != nil {
		return err
	}

	prs, err := fetcher.MergedPullRequests(ctx, owner, repo, branches, window)
	if err != nil {
		return err
	}
	if len(prs) == 0 {
		log.With("time_range", window.Spec).Info("No merged pull requests in range, skipping")
		fmt.Fprintf(cmd.OutOrStdout(), "No merged PRs found for %s in the last %s.\n", repoSpec, window.Spec)
		return nil
	}
	log.With("prs", len(prs)).Info("Fetched merged pull requests")

	stamp := time.Now().Format("20060102_150405")
	if saveRaw {
		rawPath := fmt.Sprintf("prs_%s_%s_%s.json", repo, window.Spec, stamp)
		if err := github.SaveJSON(prs, rawPath); err != nil {
			return err
		}
		log.With("path", rawPath).Info("Saved raw PR data")
	}

	doc := github.RenderDocument(prs, window.Spec)
	doc += linearEnrichment(ctx, prs)

	result, done, err := summarizeDocument(cmd, doc, pf)
	if err != nil || done {
		return err
	}

	if output == "" {
		output = fmt.Sprintf("pr_summary_%s_%s.md", repo, stamp)
	}
	report := formatSummaryMarkdown(repoSpec, window.Spec, result)
	if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	log.With("path", output).Info("Wrote summary report")
	fmt.Fprintln(cmd.OutOrStdout(), result.Summary)

	if sendToSlack {
		reporter, err := newSlackReporter()
		if err != nil {
			return err
		}
		return reporter.Send(ctx, slack.Report{
			Repo:      repoSpec,
			TimeRange: window.Spec,
			PRCount:   len(prs),
			Summary:   result.Summary,
		})
	}
	return nil
}

// linearEnrichment resolves Linear issue identifiers referenced in the PRs
// and returns a Markdown block to append to the document. Enrichment is
// best-effort: without an API key or on lookup failure the document stands
// on its own.
func linearEnrichment(ctx context.Context, prs []github.PullRequest) string {
	if cfg.LinearKey == "" {
		return ""
	}
	log := clog.FromContext(ctx)

	texts := make([]string, 0, len(prs)*2)
	for _, pr := range prs {
		texts = append(texts, pr.Title, pr.Body)
	}
	ids := linear.ExtractIdentifiers(texts...)
	if len(ids) == 0 {
		return ""
	}
	log.With("identifiers", len(ids)).Info("Resolving Linear issues")

	client, err := linear.NewClient(cfg.LinearKey)
	if err != nil {
		log.With("error", err.Error()).Warn("Skipping Linear enrichment")
		return ""
	}
	issues, err := client.Resolve(ctx, ids)
	if err != nil {
		log.With("error", err.Error()).Warn("Skipping Linear enrichment")
		return ""
	}
	if len(issues) == 0 {
		return ""
	}
	return "\n" + linear.RenderIssues(issues)
}

// summarizeDocument runs the estimate/confirm/summarize sequence shared by
// report and summarize. done is true when the command should stop without
// error (estimate-only, or the user declined the cost).
func summarizeDocument(cmd *cobra.Command, doc string, pf pipelineFlags) (result *summarize.Result, done bool, err error) {
	ctx := cmd.Context()
	log := clog.FromContext(ctx)

	est := tokenizer.New("")
	chunkSize := pf.chunkSize
	if chunkSize <= 0 {
		chunkSize = 10000
	}
	chunks := chunker.Split(est, doc, chunkSize)
	cost := summarize.EstimateCost(chunks, summarize.GPT4oMiniPricing, 1000)
	printEstimate(cmd, cost)

	if pf.estimateOnly {
		return nil, true, nil
	}
	if pf.interactive && cost.Total.GreaterThan(costConfirmThreshold) {
		if !confirm(cmd, fmt.Sprintf("Estimated cost $%s exceeds $%s. Proceed?",
			cost.Total.StringFixed(4), costConfirmThreshold.StringFixed(2))) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil, true, nil
		}
	}

	client, err := newLLMClient(pf.provider, pf.model)
	if err != nil {
		return nil, false, err
	}
	summarizer, err := summarize.New(client, est, summarize.Config{
		MaxChunkTokens: pf.chunkSize,
		MaxFinalWords:  pf.maxWords,
		Concurrency:    pf.concurrency,
		BestEffort:     pf.bestEffort,
	})
	if err != nil {
		return nil, false, err
	}

	log.With("model", client.Model()).Info("Starting summarization")
	result, err = summarizer.Document(ctx, doc)
	if err != nil {
		return nil, false, err
	}
	log.With("chunks", result.ChunkCount).
		With("rounds", result.Rounds).
		With("input_tokens", result.InputTokens).
		With("output_tokens", result.OutputTokens).
		Info("Summarization finished")
	return result, false, nil
}

func printEstimate(cmd *cobra.Command, cost summarize.CostEstimate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cost estimate: %d chunks, %d input tokens, ~%d output tokens\n",
		cost.Chunks, cost.InputTokens, cost.OutputTokens)
	fmt.Fprintf(out, "  input: $%s  output: $%s  total: $%s\n",
		cost.InputCost.StringFixed(4), cost.OutputCost.StringFixed(4), cost.Total.StringFixed(4))
}

// confirm prompts on stdout and reads a y/N answer from stdin.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// formatSummaryMarkdown wraps the generated summary with a header and a
// provenance footer for the written report file.
func formatSummaryMarkdown(repo, timeRange string, result *summarize.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Executive Summary: %s (%s)\n\n", repo, timeRange)
	sb.WriteString(strings.TrimSpace(result.Summary))
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "*Generated from %d chunks in %d rounds (%d input tokens, %d output tokens).*\n",
		result.ChunkCount, result.Rounds, result.InputTokens, result.OutputTokens)
	return sb.String()
}

// newSlackReporter picks the delivery mechanism from configured credentials,
// preferring the webhook when both are present.
func newSlackReporter() (*slack.Reporter, error) {
	switch {
	case cfg.SlackWebhookURL != "":
		return slack.NewWebhookReporter(cfg.SlackWebhookURL)
	case cfg.SlackBotToken != "":
		return slack.NewBotReporter(cfg.SlackBotToken, cfg.SlackChannelID)
	default:
		return nil, fmt.Errorf("Slack delivery requires SLACK_WEBHOOK_URL or SLACK_BOT_TOKEN")
	}
}
