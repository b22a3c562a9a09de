// Package slack implements the Slack Web API channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/plugin/chat_apps"
	"github.com/hrygo/slackqa/plugin/chat_apps/channels"
)

const (
	DefaultAPIURL     = "https://slack.com/api"
	defaultRetryAfter = "1"
	maxErrorBody      = 4 << 10
)

// SlackConfig holds configuration for the Slack channel.
type SlackConfig struct {
	BotToken string
	// APIURL is the Web API base, DefaultAPIURL when empty.
	APIURL string
	// PostAsUser sets as_user on chat.postMessage.
	PostAsUser bool
}

var _ channels.ChatChannel = (*SlackChannel)(nil)

// SlackChannel implements ChatChannel for the Slack Web API.
type SlackChannel struct {
	config *SlackConfig
	client *http.Client
}

// NewSlackChannel creates a new Slack channel. A nil client means the shared client.
func NewSlackChannel(config *SlackConfig, client *http.Client) *SlackChannel {
	if client == nil {
		client = httpclient.Shared()
	}
	cfg := *config
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &SlackChannel{config: &cfg, client: client}
}

// Name returns the platform name.
func (*SlackChannel) Name() chat_apps.Platform {
	return chat_apps.PlatformSlack
}

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts"`
	Mrkdwn   bool   `json:"mrkdwn"`
	AsUser   bool   `json:"as_user,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// SendMessage posts msg with chat.postMessage.
//
// A 429 is reported as CodeRateLimited with the Retry-After hint and is never
// retried here.
func (s *SlackChannel) SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) (*chat_apps.PostResult, error) {
	body, err := json.Marshal(postMessageRequest{
		Channel:  msg.ChannelID,
		Text:     msg.Content,
		ThreadTS: msg.ThreadID,
		Mrkdwn:   true,
		AsUser:   s.config.PostAsUser,
	})
	if err != nil {
		return nil, &channels.ChannelError{Code: channels.CodeInvalidPayload, Message: "failed to marshal message", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, &channels.ChannelError{Code: channels.CodeTransport, Message: "failed to construct request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.config.BotToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &channels.ChannelError{Code: channels.CodeTransport, Message: "failed to reach Slack", Err: err}
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := strings.TrimSpace(resp.Header.Get("Retry-After"))
		if retryAfter == "" {
			retryAfter = defaultRetryAfter
		}
		return nil, &channels.ChannelError{
			Code:       channels.CodeRateLimited,
			Message:    "Slack rate limit hit",
			RetryAfter: retryAfter,
			StatusCode: resp.StatusCode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &channels.ChannelError{
			Code:       channels.CodeUpstreamStatus,
			Message:    "Slack API error",
			StatusCode: resp.StatusCode,
			Detail:     string(b),
		}
	}

	var data postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &channels.ChannelError{
			Code:       channels.CodeRejected,
			Message:    "Slack API returned an unreadable payload",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	if !data.OK {
		return nil, &channels.ChannelError{
			Code:       channels.CodeRejected,
			Message:    "Slack API rejected the message",
			StatusCode: resp.StatusCode,
			Detail:     data.Error,
		}
	}

	ts := data.TS
	if ts == "" {
		ts = msg.ThreadID
	}
	slog.Debug("slack message posted", "channel", msg.ChannelID, "thread_ts", msg.ThreadID, "ts", ts)
	return &chat_apps.PostResult{OK: true, TS: ts}, nil
}
