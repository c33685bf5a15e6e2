// Package cashflows provides storage for capital contributions and
// withdrawals (payins/payouts).
package cashflows

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// ErrNotFound is returned when a cash flow id does not exist
var ErrNotFound = errors.New("cash flow not found")

const payinColumns = `id, payin_date, amount, account_id, nav, number_of_shares, paid_by, note, created_at`

// Repository handles cash flow database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new cash flow repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "cashflows").Logger(),
	}
}

// Create records one capital movement. When a NAV is supplied and no
// share count is, the signed share count is derived as amount/NAV so
// its sign always matches the amount. Flows are immutable afterwards.
func (r *Repository) Create(f domain.CashFlow) (int64, error) {
	if strings.TrimSpace(f.AccountID) == "" {
		return 0, fmt.Errorf("failed to create cash flow: account_id is required")
	}
	if f.Date.IsZero() {
		return 0, fmt.Errorf("failed to create cash flow: date is required")
	}
	if f.Amount == 0 {
		return 0, fmt.Errorf("failed to create cash flow: amount must be non-zero")
	}
	if f.NAV != nil && *f.NAV <= 0 {
		return 0, fmt.Errorf("failed to create cash flow: nav must be positive")
	}

	shares := f.Shares
	if shares == nil && f.NAV != nil {
		s := f.Amount / *f.NAV
		shares = &s
	}

	query := `
		INSERT INTO payins (payin_date, amount, account_id, nav, number_of_shares, paid_by, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.Exec(query,
		f.Date.Unix(),
		f.Amount,
		strings.TrimSpace(f.AccountID),
		nullFloat(f.NAV),
		nullFloat(shares),
		f.PaidBy,
		f.Note,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create cash flow: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get cash flow id: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("account_id", f.AccountID).
		Float64("amount", f.Amount).
		Msg("Cash flow created")

	return id, nil
}

// GetAll returns every cash flow in date order
func (r *Repository) GetAll() ([]domain.CashFlow, error) {
	return r.query("SELECT " + payinColumns + " FROM payins ORDER BY payin_date ASC, id ASC")
}

// GetUpTo returns flows dated on or before the cutoff, in date order
func (r *Repository) GetUpTo(cutoff time.Time) ([]domain.CashFlow, error) {
	return r.query(
		"SELECT "+payinColumns+" FROM payins WHERE payin_date <= ? ORDER BY payin_date ASC, id ASC",
		cutoff.Unix(),
	)
}

// Delete removes a cash flow. Store-level operation, not a valuation
// operation.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM payins WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cash flow %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	r.log.Info().Int64("id", id).Msg("Cash flow deleted")
	return nil
}

func (r *Repository) query(q string, args ...interface{}) ([]domain.CashFlow, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows: %w", err)
	}
	defer rows.Close()

	var flows []domain.CashFlow
	for rows.Next() {
		var f domain.CashFlow
		var date, createdAt int64
		var nav, shares sql.NullFloat64
		var paidBy, note sql.NullString

		if err := rows.Scan(&f.ID, &date, &f.Amount, &f.AccountID, &nav, &shares, &paidBy, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow: %w", err)
		}

		f.Date = time.Unix(date, 0).UTC()
		f.CreatedAt = time.Unix(createdAt, 0).UTC()
		if nav.Valid {
			f.NAV = &nav.Float64
		}
		if shares.Valid {
			f.Shares = &shares.Float64
		}
		f.PaidBy = paidBy.String
		f.Note = note.String

		flows = append(flows, f)
	}
	return flows, rows.Err()
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
