/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PullRequest is the record kept for each merged PR. It is what gets
// persisted as raw JSON and rendered into the summarization document.
type PullRequest struct {
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	BaseBranch   string    `json:"base_branch"`
	MergedAt     time.Time `json:"merged_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	URL          string    `json:"url"`
	Body         string    `json:"body"`
	Labels       []string  `json:"labels,omitempty"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	ChangedFiles int       `json:"changed_files"`
	Commits      int       `json:"commits_count"`
}

// SaveJSON writes the PR records to path as an indented JSON array.
func SaveJSON(prs []PullRequest, path string) error {
	data, err := json.MarshalIndent(prs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling PR data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads PR records previously written by SaveJSON.
func LoadJSON(path string) ([]PullRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var prs []PullRequest
	if err := json.Unmarshal(data, &prs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return prs, nil
}

// GroupByBranch buckets PRs by base branch, preserving input order within
// each bucket.
func GroupByBranch(prs []PullRequest) map[string][]PullRequest {
	grouped := make(map[string][]PullRequest)
	for _, pr := range prs {
		branch := pr.BaseBranch
		if branch == "" {
			branch = "unknown"
		}
		grouped[branch] = append(grouped[branch], pr)
	}
	return grouped
}
