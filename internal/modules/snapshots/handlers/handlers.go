// Package handlers provides HTTP handlers for snapshot queries and
// on-demand computation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
)

const dateLayout = "2006-01-02"

// Publisher pushes events to live stream subscribers
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Handlers contains HTTP handlers for the snapshots API
type Handlers struct {
	repo    *snapshots.Repository
	service *snapshots.Service
	stream  Publisher
	log     zerolog.Logger
}

// NewHandlers creates a new snapshots handlers instance
func NewHandlers(repo *snapshots.Repository, service *snapshots.Service, stream Publisher, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:    repo,
		service: service,
		stream:  stream,
		log:     log.With().Str("handler", "snapshots").Logger(),
	}
}

// parseView validates the view query parameter, defaulting to OVERALL
func parseView(r *http.Request) (domain.View, bool) {
	raw := r.URL.Query().Get("view")
	if raw == "" {
		return domain.ViewOverall, true
	}
	view := domain.View(raw)
	for _, v := range domain.AllViews {
		if view == v {
			return view, true
		}
	}
	return "", false
}

// parseAsOf validates the as_of query parameter, defaulting to now
func parseAsOf(r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now(), true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HandleCurrent computes a view's snapshot live, without persisting
// GET /api/snapshots/current?view=OVERALL&as_of=2026-01-31
func (h *Handlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}
	asOf, ok := parseAsOf(r)
	if !ok {
		http.Error(w, "Invalid as_of, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := h.service.Compute(view, asOf)
	if err != nil {
		h.log.Error().Err(err).Str("view", string(view)).Msg("Failed to compute snapshot")
		http.Error(w, "Failed to compute snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// HandleAccountCurrent computes a single account's snapshot live
// GET /api/snapshots/accounts/{accountID}/current
func (h *Handlers) HandleAccountCurrent(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	asOf, ok := parseAsOf(r)
	if !ok {
		http.Error(w, "Invalid as_of, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := h.service.ComputeAccount(accountID, asOf)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to compute account snapshot")
		http.Error(w, "Failed to compute snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// HandleLatest returns the most recent stored snapshot for a view
// GET /api/snapshots/latest?view=SWING
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}

	snap, err := h.repo.Latest(view)
	if errors.Is(err, snapshots.ErrNotFound) {
		http.Error(w, "No snapshots stored for view", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("view", string(view)).Msg("Failed to get latest snapshot")
		http.Error(w, "Failed to get latest snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

// HandleHistory returns a view's stored snapshot series
// GET /api/snapshots?view=OVERALL&limit=90
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := h.repo.History(view, limit)
	if err != nil {
		h.log.Error().Err(err).Str("view", string(view)).Msg("Failed to get snapshot history")
		http.Error(w, "Failed to get snapshot history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []domain.PortfolioSnapshot{}
	}
	writeJSON(w, history)
}

// HandleAccountHistory returns one account's stored snapshot series
// GET /api/snapshots/accounts/{accountID}
func (h *Handlers) HandleAccountHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	history, err := h.repo.AccountHistory(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account history")
		http.Error(w, "Failed to get account history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []domain.PortfolioSnapshot{}
	}
	writeJSON(w, history)
}

// HandleStats returns NAV-series statistics for a view's history
// GET /api/snapshots/stats?view=OVERALL
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}

	history, err := h.repo.History(view, 0)
	if err != nil {
		h.log.Error().Err(err).Str("view", string(view)).Msg("Failed to get snapshot history")
		http.Error(w, "Failed to get snapshot history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snapshots.ComputeStats(history))
}

// HandleCompute runs a full snapshot computation and stores the result
// POST /api/snapshots/compute
func (h *Handlers) HandleCompute(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(r)
	if !ok {
		http.Error(w, "Invalid as_of, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	res, err := h.service.ComputeAndStore(asOf)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute snapshots")
		http.Error(w, "Failed to compute snapshots", http.StatusInternalServerError)
		return
	}
	if h.stream != nil {
		h.stream.Publish("snapshot_complete", res)
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
