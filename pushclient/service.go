package pushclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-push-client/internal/api"
	"github.com/tinywideclouds/go-push-client/pushclient/config"
)

// Service wraps one Session in an HTTP surface exposing its observable
// state. The session is the actual product; the server exists so other
// components on the device can read the token and the latest notification.
type Service struct {
	*microservice.BaseServer
	session *Session
	logger  *slog.Logger
}

// New assembles the service around an already-constructed session.
func New(
	cfg *config.Config,
	session *Session,
	logger *slog.Logger,
) (*Service, error) {

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	statusAPI := api.NewStatusAPI(session, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	mux.Handle("GET /api/v1/status", corsMiddleware(http.HandlerFunc(statusAPI.Status)))
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers handled by middleware
	})))

	return &Service{
		BaseServer: baseServer,
		session:    session,
		logger:     logger,
	}, nil
}

// Start mounts the session and serves the status API until shutdown.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Push subscription session starting...")
	s.session.Start(ctx)
	s.SetReady(true)
	s.logger.Info("Service is now ready.")
	return s.BaseServer.Start()
}

// Shutdown tears the session down before stopping the HTTP server, so the
// listener handles are released no matter how the session got here.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down service components...")
	s.session.Teardown(ctx)
	if err := s.BaseServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed.", "err", err)
		return err
	}
	s.logger.Info("Service shutdown complete.")
	return nil
}
