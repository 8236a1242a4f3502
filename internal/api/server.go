package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joeldcross/homecontrol-core/internal/auth"
	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
	"github.com/joeldcross/homecontrol-core/internal/devices/hue"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/config"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/logging"
	"github.com/joeldcross/homecontrol-core/internal/room"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Sessions *auth.SessionService
	Users    *auth.UserService
	Aircon   *aircon.Service
	Hue      *hue.Service
	Rooms    *room.Service
	Version  string
}

// Server is the HTTP API server for homecontrol.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	sessions *auth.SessionService
	users    *auth.UserService
	aircon   *aircon.Service
	hue      *hue.Service
	rooms    *room.Service
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil || deps.Users == nil {
		return nil, fmt.Errorf("auth services are required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		sessions: deps.Sessions,
		users:    deps.Users,
		aircon:   deps.Aircon,
		hue:      deps.Hue,
		rooms:    deps.Rooms,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server is stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
