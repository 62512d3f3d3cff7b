/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package github fetches merged pull-request metadata for a repository,
// filtered by base branch and merge window, and renders it into the prose
// document the summarization pipeline consumes.
package github

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

const perPage = 100

// Fetcher lists merged pull requests through the GitHub REST API.
type Fetcher struct {
	client *gh.Client
}

// NewFetcher creates a Fetcher. An empty token yields an unauthenticated
// client, which works for public repositories at reduced rate limits.
func NewFetcher(ctx context.Context, token string) *Fetcher {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	return &Fetcher{client: gh.NewClient(hc)}
}

// NewFetcherWithClient wires an existing client, for tests against a fake
// HTTP server.
func NewFetcherWithClient(client *gh.Client) *Fetcher {
	return &Fetcher{client: client}
}

// ParseRepo splits an "owner/repo" specification.
func ParseRepo(spec string) (owner, repo string, err error) {
	parts := strings.Split(spec, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", spec)
	}
	return parts[0], parts[1], nil
}

// RepoInfo is what the access check reports.
type RepoInfo struct {
	Name          string
	Description   string
	Private       bool
	DefaultBranch string
}

// CheckAccess verifies the repository is reachable with the configured
// credentials and returns basic repository facts.
func (f *Fetcher) CheckAccess(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	r, _, err := f.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("accessing %s/%s: %w", owner, repo, err)
	}
	return &RepoInfo{
		Name:          r.GetName(),
		Description:   r.GetDescription(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
	}, nil
}

// Branches lists all branch names in the repository.
func (f *Fetcher) Branches(ctx context.Context, owner, repo string) ([]string, error) {
	var names []string
	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for {
		branches, resp, err := f.client.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing branches for %s/%s: %w", owner, repo, err)
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// MergedPullRequests fetches PRs merged to any of the given base branches
// within the window, newest first. Branches that don't exist in the
// repository are skipped with a warning; if none exist, an error is returned.
func (f *Fetcher) MergedPullRequests(ctx context.Context, owner, repo string, branches []string, window TimeRange) ([]PullRequest, error) {
	log := clog.FromContext(ctx)

	available, err := f.Branches(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(available))
	for _, b := range available {
		existing[b] = true
	}

	var valid []string
	for _, b := range branches {
		if existing[b] {
			valid = append(valid, b)
		} else {
			log.With("branch", b).Warn("Branch not found in repository, skipping")
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("none of the branches %v exist in %s/%s", branches, owner, repo)
	}

	var all []PullRequest
	for _, branch := range valid {
		log.With("branch", branch).Info("Fetching merged pull requests")
		prs, err := f.mergedToBranch(ctx, owner, repo, branch, window)
		if err != nil {
			return nil, fmt.Errorf("fetching PRs for %s: %w", branch, err)
		}
		all = append(all, prs...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].MergedAt.After(all[j].MergedAt)
	})
	return all, nil
}

// mergedToBranch pages through closed PRs with the given base branch and
// keeps those merged inside the window. Closed PRs are listed most recently
// updated first and a merge cannot postdate the last update, so paging stops
// once an entire page was last updated before the window starts: everything
// on later pages is older still.
func (f *Fetcher) mergedToBranch(ctx context.Context, owner, repo, branch string, window TimeRange) ([]PullRequest, error) {
	var out []PullRequest
	opts := &gh.PullRequestListOptions{
		State:       "closed",
		Base:        branch,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for {
		prs, resp, err := f.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		staleOnly := len(prs) > 0
		for _, pr := range prs {
			if !pr.GetUpdatedAt().Time.Before(window.Start) {
				staleOnly = false
			}
			mergedAt := pr.GetMergedAt().Time
			if mergedAt.IsZero() || !window.Contains(mergedAt) {
				continue
			}
			out = append(out, fromAPI(pr, branch))
		}
		if resp.NextPage == 0 || staleOnly {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// fromAPI converts an API pull request into our record, annotated with the
// base branch the listing filtered on.
func fromAPI(pr *gh.PullRequest, branch string) PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	author := pr.GetUser().GetLogin()
	if author == "" {
		author = "unknown"
	}
	return PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Author:       author,
		BaseBranch:   branch,
		MergedAt:     pr.GetMergedAt().Time,
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
		URL:          pr.GetHTMLURL(),
		Body:         pr.GetBody(),
		Labels:       labels,
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		Commits:      pr.GetCommits(),
	}
}
