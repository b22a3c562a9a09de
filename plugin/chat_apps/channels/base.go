// Package channels provides the ChatChannel interface for chat platform integrations.
package channels

import (
	"context"

	"github.com/hrygo/slackqa/plugin/chat_apps"
)

// ChatChannel posts messages into a chat platform.
type ChatChannel interface {
	// Name returns the platform name.
	Name() chat_apps.Platform

	// SendMessage posts msg into its thread. Failures are *ChannelError values.
	SendMessage(ctx context.Context, msg *chat_apps.OutgoingMessage) (*chat_apps.PostResult, error)
}

// Error codes reported by channels.
const (
	CodeRateLimited    = "RATE_LIMITED"
	CodeUpstreamStatus = "UPSTREAM_STATUS"
	CodeRejected       = "REJECTED"
	CodeTransport      = "TRANSPORT"
	CodeInvalidPayload = "INVALID_PAYLOAD"
)

// ChannelError represents an error in channel operations.
type ChannelError struct {
	Code    string
	Message string
	// RetryAfter is the provider's retry hint in seconds, set for CodeRateLimited.
	RetryAfter string
	// StatusCode is the HTTP status the platform answered with, if any.
	StatusCode int
	// Detail is the raw platform error for logs; never shown to API callers.
	Detail string
	Err    error
}

func (e *ChannelError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether the platform asked the caller to back off.
func (e *ChannelError) IsRateLimited() bool {
	return e.Code == CodeRateLimited
}
