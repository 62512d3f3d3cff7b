/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"fmt"
	"sort"
	"strings"
)

// maxBodyChars truncates long PR descriptions in the rendered document so a
// single verbose PR cannot crowd out the rest of a chunk.
const maxBodyChars = 500

// RenderDocument formats PR records, grouped by base branch, into the prose
// document the summarization pipeline consumes. Branches are emitted in
// sorted order so the output is deterministic.
func RenderDocument(prs []PullRequest, timeRange string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pull requests merged to production in the last %s. Total PRs: %d.\n", timeRange, len(prs))

	grouped := GroupByBranch(prs)
	branches := make([]string, 0, len(grouped))
	for branch := range grouped {
		branches = append(branches, branch)
	}
	sort.Strings(branches)

	for _, branch := range branches {
		branchPRs := grouped[branch]
		fmt.Fprintf(&sb, "\n## %s BRANCH (%d PRs)\n\n", strings.ToUpper(branch), len(branchPRs))
		for _, pr := range branchPRs {
			fmt.Fprintf(&sb, "### PR #%d: %s\n", pr.Number, pr.Title)
			fmt.Fprintf(&sb, "- **Author**: %s\n", pr.Author)
			if !pr.MergedAt.IsZero() {
				fmt.Fprintf(&sb, "- **Merged**: %s\n", pr.MergedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(&sb, "- **URL**: %s\n", pr.URL)
			if body := strings.TrimSpace(pr.Body); body != "" {
				fmt.Fprintf(&sb, "- **Description**: %s\n", truncate(body, maxBodyChars))
			}
			if len(pr.Labels) > 0 {
				fmt.Fprintf(&sb, "- **Labels**: %s\n", strings.Join(pr.Labels, ", "))
			}
			fmt.Fprintf(&sb, "- **Changes**: +%d -%d lines, %d files\n", pr.Additions, pr.Deletions, pr.ChangedFiles)
			if pr.Commits > 0 {
				fmt.Fprintf(&sb, "- **Commits**: %d\n", pr.Commits)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// truncate cuts s to at most n bytes on a rune boundary, appending an
// ellipsis when anything was dropped.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	cut := s[:n]
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
