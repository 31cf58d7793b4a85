package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/bobmcallan/vire-recon/internal/services/normalize"
	"github.com/bobmcallan/vire-recon/internal/services/pipeline"
)

const snapshotListKey = "snapshots"

func snapshotKey(id string) string { return "snapshot:" + id }

// handleReconcile handles POST /api/reconcile.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var input models.RunInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	snapshot, err := s.app.ReconcileService.Run(r.Context(), &input)
	if err != nil {
		if errors.Is(err, normalize.ErrStructuralInput) {
			WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "structural_input")
			return
		}
		s.logger.Error().
			Err(err).
			Str("snapshot_ref", input.SnapshotRef).
			Str("correlation_id", common.CorrelationIDFromContext(r.Context())).
			Msg("Reconciliation run failed")
		WriteError(w, http.StatusInternalServerError, "Reconciliation failed: "+err.Error())
		return
	}

	s.cache.Set(snapshotKey(snapshot.ID), snapshot, cache.DefaultExpiration)
	s.cache.Delete(snapshotListKey)

	WriteJSON(w, http.StatusOK, snapshot)
}

// handleSnapshotList handles GET /api/snapshots.
func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if cached, ok := s.cache.Get(snapshotListKey); ok {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"snapshots": cached})
		return
	}

	list, err := s.app.ReconcileService.ListSnapshots(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list snapshots: "+err.Error())
		return
	}
	if list == nil {
		list = []models.SnapshotSummary{}
	}
	s.cache.Set(snapshotListKey, list, common.FreshnessSnapshotList)

	WriteJSON(w, http.StatusOK, map[string]interface{}{"snapshots": list})
}

// routeSnapshots dispatches /api/snapshots/{id}[/chart|/summary].
func (s *Server) routeSnapshots(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r, "/api/snapshots/")
	if id == "" {
		s.handleSnapshotList(w, r)
		return
	}

	switch action {
	case "":
		s.handleSnapshotGet(w, r, id)
	case "chart":
		s.handleSnapshotChart(w, r, id)
	case "summary":
		s.handleSnapshotSummary(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// loadSnapshot reads through the snapshot cache. Snapshots are immutable
// once stored so a cached copy never goes stale.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request, id string) (*models.Snapshot, bool) {
	if cached, ok := s.cache.Get(snapshotKey(id)); ok {
		return cached.(*models.Snapshot), true
	}

	snapshot, err := s.app.ReconcileService.GetSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrSnapshotNotFound) {
			WriteError(w, http.StatusNotFound, "Snapshot not found: "+id)
			return nil, false
		}
		WriteError(w, http.StatusInternalServerError, "Failed to load snapshot: "+err.Error())
		return nil, false
	}
	s.cache.Set(snapshotKey(id), snapshot, cache.DefaultExpiration)
	return snapshot, true
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	snapshot, ok := s.loadSnapshot(w, r, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// handleSnapshotChart handles GET /api/snapshots/{id}/chart and returns a PNG.
func (s *Server) handleSnapshotChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	snapshot, ok := s.loadSnapshot(w, r, id)
	if !ok {
		return
	}

	png, err := s.app.ReportService.RenderChart(snapshot)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeBody(w, "image/png", png)
}

// handleSnapshotSummary handles GET /api/snapshots/{id}/summary and returns markdown.
func (s *Server) handleSnapshotSummary(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	snapshot, ok := s.loadSnapshot(w, r, id)
	if !ok {
		return
	}
	writeBody(w, "text/markdown; charset=utf-8", []byte(s.app.ReportService.Summary(snapshot)))
}

// handleClassificationList handles GET /api/classifications.
func (s *Server) handleClassificationList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	overrides, err := s.app.ReconcileService.ListOverrides(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list classifications: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"classifications": overrides})
}

// handleClassification handles GET, PUT and DELETE /api/classifications/{symbol}.
func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete) {
		return
	}
	symbol, action := splitPath(r, "/api/classifications/")
	symbol = strings.ToUpper(symbol)
	if action != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if symbol == "" {
		s.handleClassificationList(w, r)
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		overrides, err := s.app.ReconcileService.ListOverrides(ctx)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to load classification: "+err.Error())
			return
		}
		rec, ok := overrides[symbol]
		if !ok {
			WriteError(w, http.StatusNotFound, "No classification override for "+symbol)
			return
		}
		WriteJSON(w, http.StatusOK, rec)

	case http.MethodPut:
		var rec models.ClassificationRecord
		if !DecodeJSON(w, r, &rec) {
			return
		}
		rec.Symbol = symbol
		if err := s.app.ReconcileService.SaveOverride(ctx, &rec); err != nil {
			if errors.Is(err, pipeline.ErrInvalidOverride) {
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, "Failed to save classification: "+err.Error())
			return
		}
		overrides, err := s.app.ReconcileService.ListOverrides(ctx)
		if err != nil || overrides[symbol] == nil {
			WriteJSON(w, http.StatusOK, &rec)
			return
		}
		WriteJSON(w, http.StatusOK, overrides[symbol])

	case http.MethodDelete:
		if err := s.app.ReconcileService.DeleteOverride(ctx, symbol); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "No classification override for "+symbol)
				return
			}
			WriteError(w, http.StatusInternalServerError, "Failed to delete classification: "+err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
