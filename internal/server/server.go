package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bobmcallan/vire-recon/internal/app"
	"github.com/bobmcallan/vire-recon/internal/common"
)

// Server is the REST surface over an App. Stored snapshots are immutable, so
// reads go through an in-memory cache keyed by snapshot id.
type Server struct {
	app          *app.App
	logger       *common.Logger
	cache        *cache.Cache
	httpServer   *http.Server
	shutdownChan chan struct{}
}

// NewServer builds the server and its routes without starting it.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
		cache:  cache.New(common.FreshnessSnapshot, common.SnapshotCacheSweep),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:           applyMiddleware(mux, a.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// SetShutdownChannel sets the channel signalled by POST /api/shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("reporting_currency", s.app.Config.ReportingCurrency).
		Msg("Starting REST API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight runs to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cache.Flush()
	return s.httpServer.Shutdown(ctx)
}
