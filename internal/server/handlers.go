package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/history"
)

// --- System handlers ---

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
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	config := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":          config.Environment,
		"cache_path":           config.Storage.Cache.Path,
		"snapshots_path":       config.Storage.Snapshots.Path,
		"coingecko_base_url":   config.Clients.CoinGecko.BaseURL,
		"coingecko_configured": config.Clients.CoinGecko.APIKey != "",
		"rate_limit":           fmt.Sprintf("%d/%ds", config.Clients.CoinGecko.MaxPerWindow, config.Clients.CoinGecko.WindowSeconds),
		"snapshots_enabled":    config.Scheduler.SnapshotsEnabled,
		"logging_level":        config.Logging.Level,
	})
}

// daysParam parses the optional ?days= query parameter. 0 means all-time.
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid days '%s' - expected a non-negative integer", raw))
		return 0, false
	}
	return days, true
}

// --- Portfolio handlers ---

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	days, ok := daysParam(w, r)
	if !ok {
		return
	}

	holdings, err := s.app.Storage.Holdings().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}

	points, err := s.app.HistoryService.Reconstruct(r.Context(), holdings, days)
	if err != nil {
		writeHistoryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period": models.PeriodForDays(days).Token,
		"points": points,
		"count":  len(points),
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, ok := s.performanceForRequest(w, r)
	if !ok || summary == nil {
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePerformanceChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, ok := s.performanceForRequest(w, r)
	if !ok || summary == nil {
		return
	}

	png, err := history.RenderPerformanceChart(summary)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Chart error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// performanceForRequest runs the performance calculation for the request's
// window. It writes the error response itself; a (nil, true) result means an
// empty 404 was already written.
func (s *Server) performanceForRequest(w http.ResponseWriter, r *http.Request) (*models.PerformanceSummary, bool) {
	days, ok := daysParam(w, r)
	if !ok {
		return nil, false
	}

	holdings, err := s.app.Storage.Holdings().List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return nil, false
	}

	summary, err := s.app.HistoryService.CalculatePerformance(r.Context(), holdings, days)
	if err != nil {
		writeHistoryError(w, err)
		return nil, false
	}
	if summary == nil {
		WriteError(w, http.StatusNotFound, "No performance data available for the requested window")
		return nil, true
	}
	return summary, true
}

func writeHistoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrFuturePurchaseDate):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("History error: %v", err))
	}
}

// --- Snapshot handlers ---

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSnapshotList(w, r)
	case http.MethodPost:
		s.handleSnapshotRecord(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	from := time.Time{}
	to := time.Now().UTC()

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid from date '%s' - use YYYY-MM-DD", fromStr))
			return
		}
		from = t
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid to date '%s' - use YYYY-MM-DD", toStr))
			return
		}
		to = t
	}

	snaps, err := s.app.Storage.Snapshots().GetRange(r.Context(), from, to)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Snapshot error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snaps,
		"count":     len(snaps),
	})
}

// handleSnapshotRecord records a snapshot of the current portfolio value,
// replacing any snapshot already recorded today.
func (s *Server) handleSnapshotRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holdings, err := s.app.Storage.Holdings().List(ctx)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Holdings error: %v", err))
		return
	}
	if len(holdings) == 0 {
		WriteError(w, http.StatusConflict, "No holdings to snapshot")
		return
	}

	summary, err := s.app.HistoryService.CalculatePerformance(ctx, holdings, 1)
	if err != nil {
		writeHistoryError(w, err)
		return
	}
	if summary == nil {
		WriteError(w, http.StatusConflict, "Current portfolio value unavailable")
		return
	}
	if summary.Accuracy == models.AccuracyRecorded {
		// The value came from previously recorded snapshots; writing it
		// back would feed the snapshot store its own output.
		WriteError(w, http.StatusConflict, "Current value derives from recorded snapshots")
		return
	}

	now := time.Now().UTC()
	snapshot := models.DailySnapshot{
		ID:         uuid.New().String(),
		Date:       now.Format("2006-01-02"),
		Timestamp:  now.UnixMilli(),
		TotalValue: summary.Newest,
	}
	if err := s.app.Storage.Snapshots().Record(ctx, snapshot); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Snapshot error: %v", err))
		return
	}

	WriteJSON(w, http.StatusCreated, snapshot)
}

// --- Admin handlers ---

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.Storage.PriceCache().Clear(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Cache clear error: %v", err))
		return
	}

	s.logger.Info().Msg("Price cache cleared via API")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
