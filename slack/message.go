/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package slack delivers generated PR summaries to a Slack channel, via an
// incoming webhook or a bot token, as Block Kit messages.
package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// sectionCharLimit is Slack's maximum text length for one section block.
// Longer summaries are split across multiple sections.
const sectionCharLimit = 3000

// Report describes one summary message to post.
type Report struct {
	// Repo is the repository the summary covers.
	Repo string
	// TimeRange is the analyzed window, for the context line.
	TimeRange string
	// PRCount is how many pull requests the summary covers.
	PRCount int
	// Summary is the generated Markdown summary.
	Summary string
	// GeneratedAt stamps the context line; zero means now.
	GeneratedAt time.Time
}

// buildBlocks renders a Report as Block Kit blocks: header, context line,
// divider, summary sections, divider, attribution footer.
func buildBlocks(r Report) []slack.Block {
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("GitHub PR Summary - %s", r.Repo), false, false)),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Time Period: %s | Total PRs: %d | Generated: %s",
					r.TimeRange, r.PRCount, generated.Format("2006-01-02 15:04")), false, false)),
		slack.NewDividerBlock(),
	}

	for _, section := range splitSections(ToMrkdwn(r.Summary), sectionCharLimit) {
		blocks = append(blocks,
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, section, false, false), nil, nil))
	}

	blocks = append(blocks,
		slack.NewDividerBlock(),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				"Generated automatically by prdigest", false, false)))
	return blocks
}

// splitSections breaks text into pieces of at most limit characters,
// preferring line boundaries.
func splitSections(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var sections []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line) > limit {
			sections = append(sections, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		sections = append(sections, cur.String())
	}
	return sections
}

// ToMrkdwn converts standard Markdown into Slack's mrkdwn dialect: headers
// and bold become *bold*, list dashes become bullets, fenced code blocks
// become inline code markers.
func ToMrkdwn(markdown string) string {
	var out []string
	for _, line := range strings.Split(markdown, "\n") {
		switch {
		case strings.HasPrefix(line, "### "):
			line = "*" + strings.TrimPrefix(line, "### ") + "*"
		case strings.HasPrefix(line, "## "):
			line = "*" + strings.TrimPrefix(line, "## ") + "*"
		case strings.HasPrefix(line, "# "):
			line = "*" + strings.TrimPrefix(line, "# ") + "*"
		case strings.HasPrefix(line, "- "):
			line = "• " + strings.TrimPrefix(line, "- ")
		case strings.HasPrefix(line, "```"):
			line = "`" + strings.TrimPrefix(line, "```")
		}
		line = strings.ReplaceAll(line, "**", "*")
		out = append(out, line)
	}
	// Collapse blank-line runs of any length; Slack renders them as tall gaps.
	s := strings.Join(out, "\n")
	for strings.Contains(s, "\n\n") {
		s = strings.ReplaceAll(s, "\n\n", "\n")
	}
	return s
}
