package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists the per-symbol last traded prices captured at
// snapshot time. The table holds only the latest capture; it is
// rewritten whole on each snapshot run.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new symbol price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "marketdata").Logger(),
	}
}

// ReplaceAll swaps the stored price set for the given one atomically
func (r *Repository) ReplaceAll(prices map[string]float64, takenAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin symbol price transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshot_symbol_prices"); err != nil {
		return fmt.Errorf("failed to clear symbol prices: %w", err)
	}

	for symbol, ltp := range prices {
		_, err := tx.Exec(
			"INSERT INTO snapshot_symbol_prices (symbol, ltp, snapshot_taken_at) VALUES (?, ?, ?)",
			symbol, ltp, takenAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert symbol price %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit symbol prices: %w", err)
	}

	r.log.Debug().Int("symbols", len(prices)).Msg("Snapshot symbol prices stored")
	return nil
}

// GetAll returns the stored symbol prices from the last capture
func (r *Repository) GetAll() (map[string]float64, error) {
	rows, err := r.db.Query("SELECT symbol, ltp FROM snapshot_symbol_prices")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var ltp float64
		if err := rows.Scan(&symbol, &ltp); err != nil {
			return nil, fmt.Errorf("failed to scan symbol price: %w", err)
		}
		prices[symbol] = ltp
	}
	return prices, rows.Err()
}
