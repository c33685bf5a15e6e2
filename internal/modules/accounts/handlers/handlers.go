// Package handlers provides HTTP handlers for account metadata.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
	"github.com/foliotrack/foliotrack/internal/modules/accounts"
)

// Handlers contains HTTP handlers for the accounts API
type Handlers struct {
	repo *accounts.Repository
	log  zerolog.Logger
}

// NewHandlers creates a new accounts handlers instance
func NewHandlers(repo *accounts.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleList returns all known accounts
// GET /api/accounts
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []domain.AccountDetail{}
	}
	writeJSON(w, all)
}

type upsertAccountRequest struct {
	AccountID string `json:"account_id"`
	UserName  string `json:"user_name"`
	Type      string `json:"account_type"`
	Strategy  string `json:"trading_strategy"`
}

// HandleUpsert creates or reclassifies an account
// PUT /api/accounts
func (h *Handlers) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.repo.Upsert(domain.AccountDetail{
		AccountID: req.AccountID,
		UserName:  req.UserName,
		Type:      req.Type,
		Strategy:  domain.Strategy(req.Strategy),
	})
	if err != nil {
		h.log.Error().Err(err).Str("account_id", req.AccountID).Msg("Failed to upsert account")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{"account_id": req.AccountID})
}

// HandleDelete removes an account's metadata
// DELETE /api/accounts/{accountID}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	if err := h.repo.Delete(accountID); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete account")
		http.Error(w, "Failed to delete account", http.StatusInternalServerError)
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
