/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainguard.dev/prdigest/github"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func newSummarizeCommand() *cobra.Command {
	var (
		pf     pipelineFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Summarize a text or Markdown file, or saved PR data from fetch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := clog.FromContext(ctx)

			path := args[0]
			var doc, rangeLabel string
			switch ext := strings.ToLower(filepath.Ext(path)); ext {
			case ".txt", ".md":
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				doc = string(data)
				rangeLabel = "full document"
			case ".json":
				// Re-summarize PR records saved by fetch or report.
				prs, err := github.LoadJSON(path)
				if err != nil {
					return err
				}
				if len(prs) == 0 {
					return fmt.Errorf("%s contains no pull requests", path)
				}
				rangeLabel = mergeSpan(prs)
				doc = github.RenderDocument(prs, rangeLabel)
			default:
				return fmt.Errorf("unsupported file type %q: only .txt, .md, and .json files are supported", filepath.Ext(path))
			}
			if strings.TrimSpace(doc) == "" {
				return fmt.Errorf("%s is empty", path)
			}

			result, done, err := summarizeDocument(cmd, doc, pf)
			if err != nil || done {
				return err
			}

			maxWords := pf.maxWords
			if maxWords <= 0 {
				maxWords = 300
			}
			if words := len(strings.Fields(result.Summary)); words > maxWords {
				log.With("words", words).With("limit", maxWords).
					Warn("Summary exceeds the requested word limit")
			}

			report := formatSummaryMarkdown(filepath.Base(path), rangeLabel, result)
			if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			log.With("path", output).Info("Wrote summary")
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			return nil
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&output, "output", "summary.md", "output Markdown file")
	return cmd
}

// mergeSpan labels the merge window covered by saved PR records.
func mergeSpan(prs []github.PullRequest) string {
	oldest, newest := prs[0].MergedAt, prs[0].MergedAt
	for _, pr := range prs[1:] {
		if pr.MergedAt.Before(oldest) {
			oldest = pr.MergedAt
		}
		if pr.MergedAt.After(newest) {
			newest = pr.MergedAt
		}
	}
	return fmt.Sprintf("period %s to %s", oldest.Format(time.DateOnly), newest.Format(time.DateOnly))
}
