/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package linear resolves issue identifiers referenced in pull requests
// against the Linear GraphQL API and renders the results as enrichment text
// for the summarization document.
package linear

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/shurcooL/graphql"
)

const apiEndpoint = "https://api.linear.app/graphql"

// Issue is the enrichment record resolved for one identifier.
type Issue struct {
	Identifier  string
	Title       string
	Description string
	State       string
	Priority    float64
	URL         string
	Labels      []string
}

// Client queries the Linear GraphQL API.
type Client struct {
	gql *graphql.Client
}

// apiKeyTransport adds the Linear API key to every request. Linear personal
// API keys go in the Authorization header without a Bearer prefix.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.key)
	return t.base.RoundTrip(clone)
}

// NewClient creates a Linear client authenticated with a personal API key.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Linear API key cannot be empty")
	}
	hc := &http.Client{
		Transport: &apiKeyTransport{key: apiKey, base: http.DefaultTransport},
	}
	return &Client{gql: graphql.NewClient(apiEndpoint, hc)}, nil
}

// Resolve looks up each identifier. Identifiers that cannot be resolved
// (deleted issues, foreign team prefixes that only look like Linear IDs) are
// skipped with a warning rather than failing the enrichment pass.
func (c *Client) Resolve(ctx context.Context, ids []string) ([]Issue, error) {
	log := clog.FromContext(ctx)

	issues := make([]Issue, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issue, err := c.resolveOne(ctx, id)
		if err != nil {
			log.With("identifier", id).With("error", err.Error()).
				Warn("Could not resolve Linear issue, skipping")
			continue
		}
		issues = append(issues, *issue)
	}
	return issues, nil
}

func (c *Client) resolveOne(ctx context.Context, id string) (*Issue, error) {
	var query struct {
		Issue struct {
			Identifier  graphql.String
			Title       graphql.String
			Description graphql.String
			Priority    graphql.Float
			URL         graphql.String `graphql:"url"`
			State       struct {
				Name graphql.String
			}
			Labels struct {
				Nodes []struct {
					Name graphql.String
				}
			} `graphql:"labels(first: 10)"`
		} `graphql:"issue(id: $id)"`
	}

	variables := map[string]any{
		"id": graphql.String(id),
	}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("graphql query: %w", err)
	}

	labels := make([]string, 0, len(query.Issue.Labels.Nodes))
	for _, l := range query.Issue.Labels.Nodes {
		labels = append(labels, string(l.Name))
	}

	return &Issue{
		Identifier:  string(query.Issue.Identifier),
		Title:       string(query.Issue.Title),
		Description: string(query.Issue.Description),
		State:       string(query.Issue.State.Name),
		Priority:    float64(query.Issue.Priority),
		URL:         string(query.Issue.URL),
		Labels:      labels,
	}, nil
}

// RenderIssues formats resolved issues as a Markdown block appended to the
// summarization document, giving the model issue context and links.
func RenderIssues(issues []Issue) string {
	if len(issues) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Linked Linear Issues\n\n")
	for _, issue := range issues {
		fmt.Fprintf(&sb, "### %s: %s\n", issue.Identifier, issue.Title)
		if issue.State != "" {
			fmt.Fprintf(&sb, "- **Status**: %s\n", issue.State)
		}
		if issue.Priority > 0 {
			fmt.Fprintf(&sb, "- **Priority**: %.0f\n", issue.Priority)
		}
		if issue.URL != "" {
			fmt.Fprintf(&sb, "- **URL**: %s\n", issue.URL)
		}
		if len(issue.Labels) > 0 {
			fmt.Fprintf(&sb, "- **Labels**: %s\n", strings.Join(issue.Labels, ", "))
		}
		if desc := strings.TrimSpace(issue.Description); desc != "" {
			fmt.Fprintf(&sb, "- **Description**: %s\n", desc)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
