/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"strings"

	"chainguard.dev/prdigest/github"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check OWNER/REPO",
		Short: "Verify repository access and list available branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, err := github.ParseRepo(args[0])
			if err != nil {
				return err
			}

			fetcher := github.NewFetcher(ctx, cfg.GitHubToken)
			info, err := fetcher.CheckAccess(ctx, owner, repo)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			visibility := "public"
			if info.Private {
				visibility = "private"
			}
			fmt.Fprintf(out, "%s/%s (%s)\n", owner, info.Name, visibility)
			if info.Description != "" {
				fmt.Fprintf(out, "  %s\n", info.Description)
			}
			fmt.Fprintf(out, "  default branch: %s\n", info.DefaultBranch)

			branches, err := fetcher.Branches(ctx, owner, repo)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  branches (%d): %s\n", len(branches), strings.Join(branches, ", "))
			return nil
		},
	}
	return cmd
}
