// Package handlers provides HTTP handlers for price ingestion and
// lookup.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
	"github.com/foliotrack/foliotrack/internal/modules/marketdata"
	"github.com/foliotrack/foliotrack/internal/modules/trades"
)

// Publisher pushes events to live stream subscribers
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Handlers contains HTTP handlers for the prices API
type Handlers struct {
	cache  *marketdata.Cache
	trades *trades.Repository
	stream Publisher
	log    zerolog.Logger
}

// NewHandlers creates a new marketdata handlers instance
func NewHandlers(cache *marketdata.Cache, tradesRepo *trades.Repository, stream Publisher, log zerolog.Logger) *Handlers {
	return &Handlers{
		cache:  cache,
		trades: tradesRepo,
		stream: stream,
		log:    log.With().Str("handler", "marketdata").Logger(),
	}
}

type pricesResponse struct {
	Prices    map[string]float64 `json:"prices"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// HandleList returns every cached price
// GET /api/prices
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, pricesResponse{
		Prices:    h.cache.All(),
		UpdatedAt: h.cache.UpdatedAt(),
	})
}

type updatePricesRequest struct {
	Prices map[string]float64 `json:"prices"`
}

// HandleUpdate ingests a batch of last traded prices. The cache is
// updated first, then the market quote on any open trade of each
// symbol, then stream subscribers are notified.
// POST /api/prices
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Prices) == 0 {
		http.Error(w, "No prices given", http.StatusBadRequest)
		return
	}

	h.cache.SetAll(req.Prices)

	updated := 0
	for symbol, price := range req.Prices {
		if price <= 0 {
			continue
		}
		n, err := h.trades.UpdateQuote(symbol, domain.MarketQuote{
			Price:    price,
			SyncedAt: time.Now().UTC(),
		})
		if err != nil {
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to update trade quotes")
			continue
		}
		updated += int(n)
	}

	if h.stream != nil {
		h.stream.Publish("price_update", req.Prices)
	}

	writeJSON(w, map[string]interface{}{
		"symbols":        len(req.Prices),
		"trades_updated": updated,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
