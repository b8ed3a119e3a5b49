// Package httpapi exposes the back office over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/tourdesk/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Options carries what the server needs besides the services.
type Options struct {
	Address string
	// Registerer and Gatherer back the HTTP metrics and /metrics. Both
	// default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Dependencies are pinged by the readiness probe, keyed by name.
	Dependencies map[string]Pinger
}

type Server struct {
	address string
	echo    *echo.Echo
	logger  logging.Logger
}

func NewServer(opts Options, svc Services, l logging.Logger) *Server {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	logger := l.With("module", "http_server")
	return &Server{
		address: opts.Address,
		echo:    newRouter(opts, svc, logger),
		logger:  logger,
	}
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		err := s.echo.Start(s.address)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
