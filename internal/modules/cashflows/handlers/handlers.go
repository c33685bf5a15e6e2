// Package handlers provides HTTP handlers for cash flow operations.
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
	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/valuation"
)

const dateLayout = "2006-01-02"

// Handlers contains HTTP handlers for the payins API
type Handlers struct {
	repo *cashflows.Repository
	log  zerolog.Logger
}

// NewHandlers creates a new cash flow handlers instance
func NewHandlers(repo *cashflows.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "cashflows").Logger(),
	}
}

type listResponse struct {
	Flows            []domain.CashFlow `json:"payins"`
	TotalPayin       float64           `json:"total_payin"`
	CumulativeShares float64           `json:"cumulative_shares"`
}

// HandleList returns all cash flows with running totals
// GET /api/payins
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	flows, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cash flows")
		http.Error(w, "Failed to list cash flows", http.StatusInternalServerError)
		return
	}

	var total float64
	for _, f := range flows {
		total += f.Amount
	}

	writeJSON(w, listResponse{
		Flows:            flows,
		TotalPayin:       total,
		CumulativeShares: valuation.CumulativeShares(flows),
	})
}

type createFlowRequest struct {
	Date      string   `json:"payin_date"`
	Amount    float64  `json:"amount"`
	AccountID string   `json:"account_id"`
	NAV       *float64 `json:"nav,omitempty"`
	Shares    *float64 `json:"number_of_shares,omitempty"`
	PaidBy    string   `json:"paid_by,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// HandleCreate records a payin or payout
// POST /api/payins
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "Invalid payin_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(domain.CashFlow{
		Date:      date,
		Amount:    req.Amount,
		AccountID: req.AccountID,
		NAV:       req.NAV,
		Shares:    req.Shares,
		PaidBy:    req.PaidBy,
		Note:      req.Note,
	})
	if err != nil {
		h.log.Error().Err(err).Str("account_id", req.AccountID).Msg("Failed to create cash flow")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]interface{}{"id": id})
}

// HandleDelete removes a cash flow
// DELETE /api/payins/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid cash flow id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, cashflows.ErrNotFound) {
			http.Error(w, "Cash flow not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete cash flow")
		http.Error(w, "Failed to delete cash flow", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
