// Package v1 serves the memory and Slack reply endpoints.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/slackqa/ai"
	"github.com/hrygo/slackqa/ai/format"
	"github.com/hrygo/slackqa/internal/profile"
	"github.com/hrygo/slackqa/internal/version"
	"github.com/hrygo/slackqa/plugin/chat_apps/channels"
	"github.com/hrygo/slackqa/server/metrics"
	"github.com/hrygo/slackqa/store"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "slack-agent"

// APIV1Service holds the dependencies shared by all v1 handlers.
type APIV1Service struct {
	Profile          *profile.Profile
	Store            *store.Store
	EmbeddingService ai.EmbeddingService
	Channel          channels.ChatChannel
	Policy           format.Policy
	Metrics          *metrics.PrometheusExporter
}

func NewAPIV1Service(
	p *profile.Profile,
	st *store.Store,
	embedder ai.EmbeddingService,
	channel channels.ChatChannel,
	policy format.Policy,
	exporter *metrics.PrometheusExporter,
) *APIV1Service {
	return &APIV1Service{
		Profile:          p,
		Store:            st,
		EmbeddingService: embedder,
		Channel:          channel,
		Policy:           policy,
		Metrics:          exporter,
	}
}

// RegisterRoutes installs the v1 routes, the validator and the error handler on e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.GET("/", s.Root)
	e.GET("/health", s.Health)

	e.POST("/memory/upsert", s.UpsertMemory)
	e.POST("/memory/search", s.SearchMemory)
	e.POST("/slack/reply", s.SlackReply)
}

type rootResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Root describes the service.
func (s *APIV1Service) Root(c echo.Context) error {
	resp := rootResponse{Service: ServiceName, Status: "ok"}
	if s.Profile != nil {
		resp.Version = s.Profile.Version
	} else {
		resp.Version = version.String()
	}
	return c.JSON(http.StatusOK, resp)
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// Health is the liveness probe. It never touches upstreams.
func (*APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{OK: true})
}
