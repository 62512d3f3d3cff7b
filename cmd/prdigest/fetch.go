/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"time"

	"chainguard.dev/prdigest/github"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	var (
		branches  []string
		timeRange string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "fetch OWNER/REPO",
		Short: "Fetch merged PRs and save them as JSON without summarizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := clog.FromContext(ctx)

			owner, repo, err := github.ParseRepo(args[0])
			if err != nil {
				return err
			}
			window, err := github.ParseTimeRange(timeRange, time.Now())
			if err != nil {
				return err
			}

			fetcher := github.NewFetcher(ctx, cfg.GitHubToken)
			prs, err := fetcher.MergedPullRequests(ctx, owner, repo, branches, window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetched %d merged PRs from %s in the last %s.\n", len(prs), args[0], window.Spec)
			for branch, branchPRs := range github.GroupByBranch(prs) {
				fmt.Fprintf(out, "  %s: %d\n", branch, len(branchPRs))
			}

			if output == "" {
				output = fmt.Sprintf("prs_%s_%s_%s.json", repo, window.Spec, time.Now().Format("20060102_150405"))
			}
			if err := github.SaveJSON(prs, output); err != nil {
				return err
			}
			log.With("path", output).With("prs", len(prs)).Info("Saved PR data")
			fmt.Fprintf(out, "Saved to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&branches, "branches", []string{"main"}, "base branches to include")
	cmd.Flags().StringVar(&timeRange, "time-range", "1w", "time range: 1w, 1m, 6m, 1y, custom:START[:END], or an ISO date")
	cmd.Flags().StringVar(&output, "output", "", "output JSON file (default prs_<repo>_<range>_<timestamp>.json)")
	return cmd
}
