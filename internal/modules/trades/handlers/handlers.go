// Package handlers provides HTTP handlers for trade operations.
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
	"github.com/foliotrack/foliotrack/internal/modules/trades"
	"github.com/foliotrack/foliotrack/internal/valuation"
)

const dateLayout = "2006-01-02"

// Handlers contains HTTP handlers for the trades API
type Handlers struct {
	repo   *trades.Repository
	prices domain.PriceProvider
	log    zerolog.Logger
}

// NewHandlers creates a new trades handlers instance
func NewHandlers(repo *trades.Repository, prices domain.PriceProvider, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:   repo,
		prices: prices,
		log:    log.With().Str("handler", "trades").Logger(),
	}
}

// tradeResponse is one trade with its valuation attached
type tradeResponse struct {
	domain.Trade
	valuation.Valuation
	Status domain.TradeStatus `json:"status"`
}

// HandleList returns all trades with per-trade valuations
// GET /api/trades
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	out := make([]tradeResponse, 0, len(all))
	for _, t := range all {
		var override *float64
		if p, ok := h.prices.Price(t.Symbol); ok && p > 0 {
			override = &p
		}
		out = append(out, tradeResponse{
			Trade:     t,
			Valuation: valuation.Valuate(t, override, now),
			Status:    t.Status(),
		})
	}

	writeJSON(w, out)
}

type createTradeRequest struct {
	Symbol    string  `json:"symbol"`
	AccountID string  `json:"account_id"`
	BuyDate   string  `json:"buy_date"`
	BuyPrice  float64 `json:"buy_price"`
	Quantity  int64   `json:"quantity"`
	BuyAmount float64 `json:"buy_amount"`
	Charges   float64 `json:"buy_charges"`
}

// HandleCreate records a buy action
// POST /api/trades
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	buyDate, err := time.Parse(dateLayout, req.BuyDate)
	if err != nil {
		http.Error(w, "Invalid buy_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	amount := req.BuyAmount
	if amount == 0 {
		amount = req.BuyPrice * float64(req.Quantity)
	}

	id, err := h.repo.Create(domain.Trade{
		Symbol:    req.Symbol,
		AccountID: req.AccountID,
		Buy: domain.BuyLeg{
			Date:     buyDate,
			Price:    req.BuyPrice,
			Quantity: req.Quantity,
			Amount:   amount,
			Charges:  req.Charges,
		},
	})
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to create trade")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]interface{}{"id": id})
}

type closeTradeRequest struct {
	SellDate   string  `json:"sell_date"`
	SellPrice  float64 `json:"sell_price"`
	SellAmount float64 `json:"sell_amount"`
	Charges    float64 `json:"sell_charges"`
}

// HandleClose records the sell action on an open trade
// POST /api/trades/{id}/close
func (h *Handlers) HandleClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	var req closeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sellDate, err := time.Parse(dateLayout, req.SellDate)
	if err != nil {
		http.Error(w, "Invalid sell_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	amount := req.SellAmount
	if amount == 0 {
		trade, err := h.repo.GetByID(id)
		if err == nil {
			amount = req.SellPrice * float64(trade.Buy.Quantity)
		}
	}

	err = h.repo.Close(id, domain.SellLeg{
		Date:    sellDate,
		Price:   req.SellPrice,
		Amount:  amount,
		Charges: req.Charges,
	})
	switch {
	case errors.Is(err, trades.ErrNotFound):
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	case errors.Is(err, trades.ErrAlreadyClosed):
		http.Error(w, "Trade already closed", http.StatusConflict)
		return
	case err != nil:
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to close trade")
		http.Error(w, "Failed to close trade", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"id": id, "status": domain.StatusClosed})
}

// HandleDelete removes a trade (explicit user action)
// DELETE /api/trades/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, trades.ErrNotFound) {
			http.Error(w, "Trade not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete trade")
		http.Error(w, "Failed to delete trade", http.StatusInternalServerError)
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
