/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/slack-go/slack"
)

// Reporter posts Reports to Slack. Exactly one delivery mechanism is used:
// an incoming webhook URL, or a bot token plus channel ID.
type Reporter struct {
	webhookURL string
	client     *slack.Client
	channelID  string
}

// NewWebhookReporter creates a Reporter that posts through an incoming
// webhook. The webhook determines the channel.
func NewWebhookReporter(webhookURL string) (*Reporter, error) {
	if webhookURL == "" {
		return nil, errors.New("webhook URL cannot be empty")
	}
	return &Reporter{webhookURL: webhookURL}, nil
}

// NewBotReporter creates a Reporter that posts via chat.postMessage with a
// bot token.
func NewBotReporter(botToken, channelID string) (*Reporter, error) {
	if botToken == "" {
		return nil, errors.New("bot token cannot be empty")
	}
	if channelID == "" {
		return nil, errors.New("channel ID cannot be empty")
	}
	return &Reporter{client: slack.New(botToken), channelID: channelID}, nil
}

// Send posts the report.
func (r *Reporter) Send(ctx context.Context, report Report) error {
	log := clog.FromContext(ctx)
	blocks := buildBlocks(report)

	if r.webhookURL != "" {
		if err := slack.PostWebhookContext(ctx, r.webhookURL, &slack.WebhookMessage{
			Blocks: &slack.Blocks{BlockSet: blocks},
		}); err != nil {
			return fmt.Errorf("posting to Slack webhook: %w", err)
		}
		log.Info("Posted summary to Slack via webhook")
		return nil
	}

	if _, _, err := r.client.PostMessageContext(ctx, r.channelID,
		slack.MsgOptionBlocks(blocks...)); err != nil {
		return fmt.Errorf("posting to Slack channel %s: %w", r.channelID, err)
	}
	log.With("channel", r.channelID).Info("Posted summary to Slack")
	return nil
}
