package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/vire-recon/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Reconciliation
	mux.HandleFunc("/api/reconcile", s.handleReconcile)
	mux.HandleFunc("/api/snapshots/", s.routeSnapshots)
	mux.HandleFunc("/api/snapshots", s.handleSnapshotList)

	// Manual classifications
	mux.HandleFunc("/api/classifications/", s.handleClassification)
	mux.HandleFunc("/api/classifications", s.handleClassificationList)
}

// handleShutdown handles POST /api/shutdown. Disabled in production.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().
		Str("correlation_id", common.CorrelationIDFromContext(r.Context())).
		Msg("Shutdown requested via HTTP endpoint")
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "shutting_down"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if s.shutdownChan == nil {
		return
	}
	// Signal after the response has left so the caller sees the 202.
	go func() {
		time.Sleep(100 * time.Millisecond)
		select {
		case s.shutdownChan <- struct{}{}:
		default:
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.CurrentBuild())
}

// handleConfig returns the effective runtime configuration with secrets masked.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cfg := s.app.Config

	lookups := make([]string, 0, len(s.app.Lookups))
	for _, l := range s.app.Lookups {
		lookups = append(lookups, l.Name())
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":        cfg.Environment,
		"reporting_currency": cfg.ReportingCurrency,
		"storage_backend":    cfg.Storage.Backend,
		"tolerance":          cfg.Reconcile.Tolerance,
		"allow_adjustment":   cfg.Reconcile.AllowAdjustment,
		"adjustment_source":  cfg.Reconcile.AdjustmentSource,
		"concurrency":        cfg.Classify.Concurrency,
		"lookups":            lookups,
		"eodhd_api_key":      maskSecret(cfg.Clients.EODHD.APIKey),
		"gemini_api_key":     maskSecret(cfg.Clients.Gemini.APIKey),
		"uptime":             time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// maskSecret keeps the last four characters of a secret.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
