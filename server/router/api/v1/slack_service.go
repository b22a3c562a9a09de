package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/ai/format"
	"github.com/hrygo/slackqa/plugin/chat_apps"
	"github.com/hrygo/slackqa/plugin/chat_apps/channels"
	"github.com/hrygo/slackqa/server/metrics"
)

type ReferenceRequest struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required"`
}

// SlackReplyRequest is a structured reply to post into a thread.
type SlackReplyRequest struct {
	Channel    string             `json:"channel" validate:"required"`
	ThreadTS   string             `json:"thread_ts" validate:"required"`
	Answer     string             `json:"answer" validate:"required,max=1200"`
	References []ReferenceRequest `json:"references" validate:"dive"`
	Mode       string             `json:"mode" validate:"required,oneof=answer followup"`
	Confidence *float64           `json:"confidence" validate:"required,gte=0,lte=1"`
}

type SlackReplyResponse struct {
	OK bool   `json:"ok"`
	TS string `json:"ts,omitempty"`
}

func (r *SlackReplyRequest) toReply() format.Reply {
	refs := make([]format.Reference, 0, len(r.References))
	for _, ref := range r.References {
		refs = append(refs, format.Reference{Title: ref.Title, URL: ref.URL})
	}
	return format.Reply{
		Channel:    r.Channel,
		ThreadTS:   r.ThreadTS,
		Answer:     r.Answer,
		References: refs,
		Mode:       format.Mode(r.Mode),
		Confidence: *r.Confidence,
	}
}

// SlackReply formats the reply under the reply policy and posts it into the thread.
func (s *APIV1Service) SlackReply(c echo.Context) error {
	var req SlackReplyRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	msg := s.Policy.Format(req.toReply())
	if msg.Truncated {
		s.Metrics.RecordTruncation()
	}

	start := time.Now()
	result, err := s.Channel.SendMessage(c.Request().Context(), &chat_apps.OutgoingMessage{
		ChannelID: req.Channel,
		ThreadID:  req.ThreadTS,
		Content:   msg.Text,
	})
	s.Metrics.RecordUpstream(metrics.UpstreamSlack, time.Since(start), err)
	if err != nil {
		return s.slackProblem(c, err)
	}

	slog.Info("slack reply posted",
		"channel", req.Channel,
		"thread_ts", req.ThreadTS,
		"ts", result.TS,
		"truncated", msg.Truncated,
	)
	return c.JSON(http.StatusOK, SlackReplyResponse{OK: true, TS: result.TS})
}

func (s *APIV1Service) slackProblem(c echo.Context, err error) error {
	var chErr *channels.ChannelError
	if !errors.As(err, &chErr) {
		slog.Error("slack post failed", "error", err)
		return newProblem(http.StatusBadGateway, "Slack API error")
	}

	switch chErr.Code {
	case channels.CodeRateLimited:
		s.Metrics.RecordRateLimited()
		slog.Warn("slack rate limited", "retry_after", chErr.RetryAfter)
		c.Response().Header().Set("Retry-After", chErr.RetryAfter)
		return newProblem(http.StatusServiceUnavailable,
			fmt.Sprintf("Slack rate limit hit. Retry after %ss", chErr.RetryAfter))
	case channels.CodeRejected:
		slog.Error("slack rejected message", "error", chErr)
		return newProblem(http.StatusBadGateway, "Slack API rejected the message")
	default:
		slog.Error("slack post failed", "error", chErr)
		return newProblem(http.StatusBadGateway, "Slack API error")
	}
}
