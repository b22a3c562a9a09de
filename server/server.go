package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/slackqa/ai"
	"github.com/hrygo/slackqa/ai/format"
	"github.com/hrygo/slackqa/internal/httpclient"
	"github.com/hrygo/slackqa/internal/profile"
	"github.com/hrygo/slackqa/plugin/chat_apps/channels/slack"
	"github.com/hrygo/slackqa/server/metrics"
	apiv1 "github.com/hrygo/slackqa/server/router/api/v1"
	"github.com/hrygo/slackqa/store"
	"github.com/hrygo/slackqa/store/db"
)

const shutdownTimeout = 10 * time.Second

// Origins allowed to call the API from a browser.
var allowedOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"http://127.0.0.1",
	"https://www.postman.com",
}

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.PrometheusExporter

	echoServer *echo.Echo
}

// NewServer wires the upstream clients and routes for profile. No upstream is
// contacted until the first request needs it.
func NewServer(_ context.Context, profile *profile.Profile) (*Server, error) {
	client := httpclient.Shared()

	embeddingConfig := ai.NewEmbeddingConfigFromProfile(profile)
	if err := embeddingConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid embedding configuration")
	}
	embeddingService, err := ai.NewEmbeddingService(embeddingConfig, client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	storeInstance := store.New(db.NewLazyDriver(profile, client), profile.EmbeddingDim)
	slackChannel := slack.NewSlackChannel(&slack.SlackConfig{
		BotToken:   profile.SlackBotToken,
		APIURL:     profile.SlackAPIURL,
		PostAsUser: profile.SlackPostAsUser,
	}, client)
	policy := format.DefaultPolicy().WithOverrides(profile.ReplyMaxAnswerWords, profile.ReplyMaxSources)
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	s := &Server{
		Profile: profile,
		Store:   storeInstance,
		Metrics: exporter,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	echoServer.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
	}))
	echoServer.Use(middleware.BodyLimit("1M"))
	echoServer.Use(s.requestLogger())
	s.echoServer = echoServer

	echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	apiV1Service := apiv1.NewAPIV1Service(profile, storeInstance, embeddingService, slackChannel, policy, exporter)
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// requestLogger logs each request and records it in the request metrics.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.Metrics.RecordRequest(v.Method, route, strconv.Itoa(v.Status), v.Latency)

			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
			case route == "/health" || route == "/metrics":
				slog.Debug("request", attrs...)
			default:
				slog.Info("request", attrs...)
			}
			return nil
		},
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server listening", "address", address, "version", s.Profile.Version, "mode", s.Profile.Mode)
	return s.echoServer.Start(address)
}

// Shutdown stops accepting requests, waits for in-flight ones and releases upstream clients.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close datastore", "error", err)
	}
	httpclient.Close()
	slog.Info("server stopped")
}
