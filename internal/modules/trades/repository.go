// Package trades provides storage for independent trade positions.
package trades

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// ErrNotFound is returned when a trade id does not exist
var ErrNotFound = errors.New("trade not found")

// ErrAlreadyClosed is returned when closing a trade that already has a
// sell leg. Closing is a one-shot, irreversible operation.
var ErrAlreadyClosed = errors.New("trade already closed")

// tradesColumns is the list of columns for the trades table.
// Column order must match the scan functions below.
const tradesColumns = `id, symbol, account_id, buy_date, buy_price, quantity, buy_amount, buy_charges,
	sell_date, sell_price, sell_amount, sell_charges,
	current_price, current_quantity, day_change, day_change_percentage, last_synced_at,
	created_at, updated_at`

// Repository handles trade database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trade repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// validate rejects trades that would violate table constraints
func validate(t domain.Trade) error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("account_id is required")
	}
	if t.Buy.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", t.Buy.Quantity)
	}
	if t.Buy.Date.IsZero() {
		return fmt.Errorf("buy_date is required")
	}
	if t.Buy.Charges < 0 || (t.Sell != nil && t.Sell.Charges < 0) {
		return fmt.Errorf("charges must not be negative")
	}
	return nil
}

// Create inserts a new open trade (the buy action). The buy leg is
// immutable after this point.
func (r *Repository) Create(t domain.Trade) (int64, error) {
	if err := validate(t); err != nil {
		return 0, fmt.Errorf("failed to create trade: %w", err)
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO trades
		(symbol, account_id, buy_date, buy_price, quantity, buy_amount, buy_charges,
		 sell_date, sell_price, sell_amount, sell_charges,
		 current_price, current_quantity, day_change, day_change_percentage, last_synced_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, 0, NULL, NULL, NULL, NULL, NULL, ?, ?)
	`

	res, err := r.db.Exec(query,
		strings.ToUpper(strings.TrimSpace(t.Symbol)),
		strings.TrimSpace(t.AccountID),
		t.Buy.Date.Unix(),
		t.Buy.Price,
		t.Buy.Quantity,
		t.Buy.Amount,
		t.Buy.Charges,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get trade id: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("symbol", t.Symbol).
		Str("account_id", t.AccountID).
		Int64("quantity", t.Buy.Quantity).
		Msg("Trade created")

	return id, nil
}

// Close records the sell action on an open trade. All sell fields are
// set atomically and exactly once; a second close fails with
// ErrAlreadyClosed.
func (r *Repository) Close(id int64, sell domain.SellLeg) error {
	if sell.Date.IsZero() {
		return fmt.Errorf("failed to close trade %d: sell_date is required", id)
	}
	if sell.Charges < 0 {
		return fmt.Errorf("failed to close trade %d: charges must not be negative", id)
	}

	query := `
		UPDATE trades
		SET sell_date = ?, sell_price = ?, sell_amount = ?, sell_charges = ?, updated_at = ?
		WHERE id = ? AND sell_date IS NULL
	`
	res, err := r.db.Exec(query, sell.Date.Unix(), sell.Price, sell.Amount, sell.Charges, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to close trade %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close trade %d: %w", id, err)
	}
	if affected == 0 {
		// Distinguish "missing" from "already closed"
		if _, err := r.GetByID(id); err != nil {
			return err
		}
		return ErrAlreadyClosed
	}

	r.log.Info().Int64("id", id).Float64("sell_amount", sell.Amount).Msg("Trade closed")
	return nil
}

// UpdateQuote refreshes the synced market data on every open trade of a
// symbol. Closed trades are never touched.
func (r *Repository) UpdateQuote(symbol string, q domain.MarketQuote) (int64, error) {
	query := `
		UPDATE trades
		SET current_price = ?, current_quantity = ?, day_change = ?, day_change_percentage = ?,
		    last_synced_at = ?, updated_at = ?
		WHERE symbol = ? AND sell_date IS NULL
	`
	now := time.Now().Unix()
	syncedAt := q.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	res, err := r.db.Exec(query,
		q.Price, q.Quantity, q.DayChange, q.DayChangePercent,
		syncedAt.Unix(), now,
		strings.ToUpper(strings.TrimSpace(symbol)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update quote for %s: %w", symbol, err)
	}
	return res.RowsAffected()
}

// GetByID retrieves one trade
func (r *Repository) GetByID(id int64) (*domain.Trade, error) {
	row := r.db.QueryRow("SELECT "+tradesColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return t, nil
}

// GetAll returns every trade, oldest buy first
func (r *Repository) GetAll() ([]domain.Trade, error) {
	return r.query("SELECT " + tradesColumns + " FROM trades ORDER BY buy_date ASC, id ASC")
}

// GetOpen returns all open trades, oldest buy first
func (r *Repository) GetOpen() ([]domain.Trade, error) {
	return r.query("SELECT " + tradesColumns + " FROM trades WHERE sell_date IS NULL ORDER BY buy_date ASC, id ASC")
}

// OpenSymbols returns the distinct symbols with at least one open trade
func (r *Repository) OpenSymbols() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT symbol FROM trades WHERE sell_date IS NULL ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to get open symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Delete removes a trade. Explicit user action only; valuation never
// deletes.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	r.log.Info().Int64("id", id).Msg("Trade deleted")
	return nil
}

func (r *Repository) query(q string, args ...interface{}) ([]domain.Trade, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var buyDate, createdAt, updatedAt int64
	var sellDate, currentQty, syncedAt sql.NullInt64
	var sellPrice, sellAmount sql.NullFloat64
	var sellCharges float64
	var currentPrice, dayChange, dayChangePct sql.NullFloat64

	err := row.Scan(
		&t.ID, &t.Symbol, &t.AccountID,
		&buyDate, &t.Buy.Price, &t.Buy.Quantity, &t.Buy.Amount, &t.Buy.Charges,
		&sellDate, &sellPrice, &sellAmount, &sellCharges,
		&currentPrice, &currentQty, &dayChange, &dayChangePct, &syncedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Buy.Date = time.Unix(buyDate, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if sellDate.Valid {
		t.Sell = &domain.SellLeg{
			Date:    time.Unix(sellDate.Int64, 0).UTC(),
			Price:   sellPrice.Float64,
			Amount:  sellAmount.Float64,
			Charges: sellCharges,
		}
	}

	if currentPrice.Valid {
		t.Quote = &domain.MarketQuote{
			Price:            currentPrice.Float64,
			Quantity:         currentQty.Int64,
			DayChange:        dayChange.Float64,
			DayChangePercent: dayChangePct.Float64,
		}
		if syncedAt.Valid {
			t.Quote.SyncedAt = time.Unix(syncedAt.Int64, 0).UTC()
		}
	}

	return &t, nil
}
