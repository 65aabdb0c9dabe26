// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package chat provides the chat collaborator that sends action item
// notifications as Slack direct messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for Slack requests
	DefaultClientTimeout = 30 * time.Second

	completeActionID = "complete_action"
	viewActionID     = "view_action"
	noDueDate        = "No deadline specified"
)

// Slack error codes that mean the user's token can no longer be used.
var authErrorCodes = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"token_revoked":    true,
	"token_expired":    true,
	"account_inactive": true,
	"missing_scope":    true,
}

// Slack error codes that are worth another attempt.
var transientErrorCodes = map[string]bool{
	"ratelimited":         true,
	"internal_error":      true,
	"fatal_error":         true,
	"service_unavailable": true,
	"request_timeout":     true,
}

// Config holds the configuration for the Slack notifier
type Config struct {
	// Optional: override the Slack API URL for testing. Must end with a slash.
	APIURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// SlackNotifier sends direct messages with the recipient's own token.
type SlackNotifier struct {
	httpClient *http.Client
	config     Config
}

var _ domain.ChatNotifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(config Config) *SlackNotifier {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	return &SlackNotifier{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
	}
}

func (n *SlackNotifier) client(token string) *slack.Client {
	opts := []slack.Option{slack.OptionHTTPClient(n.httpClient)}
	if n.config.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(n.config.APIURL))
	}
	return slack.New(token, opts...)
}

// SendDirectMessage posts the notification and returns the message timestamp.
func (n *SlackNotifier) SendDirectMessage(ctx context.Context, credential *models.ChatCredential, message domain.ChatMessage) (string, error) {
	if credential == nil || credential.Token == "" || credential.Recipient == "" {
		return "", domain.NewAuthError("missing chat credential", domain.ErrMissingCredential)
	}

	channel, ts, err := n.client(credential.Token).PostMessageContext(ctx, credential.Recipient,
		slack.MsgOptionBlocks(buildBlocks(message)...),
		slack.MsgOptionText(fmt.Sprintf("New action item from meeting: %s", message.Description), false),
	)
	if err != nil {
		slog.WarnContext(ctx, "Slack direct message failed",
			"action_item_uid", message.ActionItemUID,
			logging.ErrKey, err)
		return "", classifyError(err)
	}

	slog.DebugContext(ctx, "sent Slack direct message",
		"action_item_uid", message.ActionItemUID,
		"channel", channel,
		"ts", ts,
	)
	return ts, nil
}

func buildBlocks(message domain.ChatMessage) []slack.Block {
	dueDate := noDueDate
	if message.DueDate != nil {
		dueDate = message.DueDate.UTC().Format("Mon, Jan 2 2006")
	}

	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, ":clipboard: New Action Item Assigned to You", true, false),
	)
	task := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Task:* %s", message.Description), false, false),
		nil, nil,
	)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*From Meeting:* %s", message.MeetingTitle), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Due Date:* %s", dueDate), false, false),
	}
	if message.Priority != "" {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Priority:* %s", message.Priority), false, false))
	}
	details := slack.NewSectionBlock(nil, fields, nil)

	complete := slack.NewButtonBlockElement(completeActionID, message.ActionItemUID,
		slack.NewTextBlockObject(slack.PlainTextType, "Mark Complete", false, false)).
		WithStyle(slack.StylePrimary)
	view := slack.NewButtonBlockElement(viewActionID, message.ActionItemUID,
		slack.NewTextBlockObject(slack.PlainTextType, "View Details", false, false))
	if message.LinkURL != "" {
		view.URL = message.LinkURL
	}
	actions := slack.NewActionBlock("", complete, view)

	return []slack.Block{header, task, details, actions}
}

// classifyError maps Slack client failures onto the pipeline error taxonomy.
func classifyError(err error) error {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return domain.NewTransientError("Slack rate limited", err)
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError {
			return domain.NewTransientError("Slack unavailable", err)
		}
		return domain.NewPermanentError("Slack rejected request", err)
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		switch {
		case authErrorCodes[slackErr.Err]:
			return domain.NewAuthError("Slack credential rejected", err)
		case transientErrorCodes[slackErr.Err]:
			return domain.NewTransientError("Slack temporarily failed", err)
		default:
			return domain.NewPermanentError("Slack rejected message", err)
		}
	}

	// Network failures and timeouts
	return domain.NewTransientError("Slack request failed", err)
}
