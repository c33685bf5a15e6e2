// Package snapshots provides storage and computation of portfolio
// snapshots: the per-view and per-account metric records assembled by
// the valuation core.
package snapshots

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// ErrNotFound is returned when no snapshot matches a query
var ErrNotFound = errors.New("snapshot not found")

const snapshotColumns = `id, view, account_id, snapshot_date, nav, portfolio_value, total_payin,
	booked_pl, float_pl, open_positions, balance, share_count,
	xirr, utilisation_percent, absolute_profit_percent, created_at, updated_at`

// Repository handles snapshot database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshots repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert writes one snapshot record. The store keeps exactly one
// logical record per (view, account, date), so recomputing the same day
// overwrites in place.
func (r *Repository) Upsert(s domain.PortfolioSnapshot) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO portfolio_snapshots (
			view, account_id, snapshot_date, nav, portfolio_value, total_payin,
			booked_pl, float_pl, open_positions, balance, share_count,
			xirr, utilisation_percent, absolute_profit_percent, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(view, account_id, snapshot_date) DO UPDATE SET
			nav = excluded.nav,
			portfolio_value = excluded.portfolio_value,
			total_payin = excluded.total_payin,
			booked_pl = excluded.booked_pl,
			float_pl = excluded.float_pl,
			open_positions = excluded.open_positions,
			balance = excluded.balance,
			share_count = excluded.share_count,
			xirr = excluded.xirr,
			utilisation_percent = excluded.utilisation_percent,
			absolute_profit_percent = excluded.absolute_profit_percent,
			updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query,
		string(s.View),
		s.AccountID,
		s.Date.Unix(),
		s.NAV,
		s.PortfolioValue,
		s.TotalPayin,
		s.BookedPL,
		s.FloatPL,
		s.OpenPositions,
		s.Balance,
		s.ShareCount,
		nullFloat(s.XIRR),
		nullFloat(s.UtilisationPercent),
		nullFloat(s.AbsoluteProfitPercent),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s/%s: %w", s.View, s.AccountID, err)
	}

	r.log.Debug().
		Str("view", string(s.View)).
		Str("account_id", s.AccountID).
		Time("date", s.Date).
		Float64("nav", s.NAV).
		Msg("Snapshot stored")

	return nil
}

// Latest returns the most recent snapshot for a view
func (r *Repository) Latest(view domain.View) (domain.PortfolioSnapshot, error) {
	row := r.db.QueryRow(
		"SELECT "+snapshotColumns+" FROM portfolio_snapshots WHERE view = ? AND account_id = '' ORDER BY snapshot_date DESC LIMIT 1",
		string(view),
	)

	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PortfolioSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("failed to get latest snapshot for %s: %w", view, err)
	}
	return s, nil
}

// History returns a view's snapshots in ascending date order. A limit
// of 0 means no limit.
func (r *Repository) History(view domain.View, limit int) ([]domain.PortfolioSnapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM portfolio_snapshots WHERE view = ? AND account_id = '' ORDER BY snapshot_date ASC"
	args := []interface{}{string(view)}
	if limit > 0 {
		// Keep the most recent N, still returned oldest-first
		query = "SELECT * FROM (" +
			"SELECT " + snapshotColumns + " FROM portfolio_snapshots WHERE view = ? AND account_id = '' ORDER BY snapshot_date DESC LIMIT ?" +
			") ORDER BY snapshot_date ASC"
		args = append(args, limit)
	}
	return r.query(query, args...)
}

// AccountHistory returns one account's snapshots in ascending date order
func (r *Repository) AccountHistory(accountID string) ([]domain.PortfolioSnapshot, error) {
	return r.query(
		"SELECT "+snapshotColumns+" FROM portfolio_snapshots WHERE account_id = ? ORDER BY snapshot_date ASC",
		accountID,
	)
}

func (r *Repository) query(q string, args ...interface{}) ([]domain.PortfolioSnapshot, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.PortfolioSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (domain.PortfolioSnapshot, error) {
	var s domain.PortfolioSnapshot
	var view string
	var date, createdAt, updatedAt int64
	var xirr, utilisation, absProfit sql.NullFloat64

	err := row.Scan(
		&s.ID, &view, &s.AccountID, &date, &s.NAV, &s.PortfolioValue, &s.TotalPayin,
		&s.BookedPL, &s.FloatPL, &s.OpenPositions, &s.Balance, &s.ShareCount,
		&xirr, &utilisation, &absProfit, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	s.View = domain.View(view)
	s.Date = time.Unix(date, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if xirr.Valid {
		s.XIRR = &xirr.Float64
	}
	if utilisation.Valid {
		s.UtilisationPercent = &utilisation.Float64
	}
	if absProfit.Valid {
		s.AbsoluteProfitPercent = &absProfit.Float64
	}
	return s, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
