// Package accounts provides storage for per-account metadata and the
// strategy classification used by the view aggregator.
package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// ErrNotFound is returned when an account id does not exist
var ErrNotFound = errors.New("account not found")

const accountColumns = `id, account_id, user_name, account_type, trading_strategy, created_at, updated_at`

// Repository handles account detail database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new accounts repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// Upsert creates or updates the metadata row for an account
func (r *Repository) Upsert(a domain.AccountDetail) error {
	accountID := strings.TrimSpace(a.AccountID)
	if accountID == "" {
		return fmt.Errorf("failed to upsert account: account_id is required")
	}
	switch a.Strategy {
	case domain.StrategySwing, domain.StrategyLongTerm:
	default:
		return fmt.Errorf("failed to upsert account %s: unknown strategy %q", accountID, a.Strategy)
	}
	if a.Type == "" {
		a.Type = "TRADING_ONLY"
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO account_details (account_id, user_name, account_type, trading_strategy, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			user_name = excluded.user_name,
			account_type = excluded.account_type,
			trading_strategy = excluded.trading_strategy,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, accountID, a.UserName, a.Type, string(a.Strategy), now, now); err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", accountID, err)
	}

	r.log.Info().
		Str("account_id", accountID).
		Str("strategy", string(a.Strategy)).
		Msg("Account upserted")

	return nil
}

// GetByID returns the metadata for one account
func (r *Repository) GetByID(accountID string) (domain.AccountDetail, error) {
	row := r.db.QueryRow("SELECT "+accountColumns+" FROM account_details WHERE account_id = ?", accountID)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AccountDetail{}, ErrNotFound
	}
	if err != nil {
		return domain.AccountDetail{}, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return a, nil
}

// GetAll returns every account in id order
func (r *Repository) GetAll() ([]domain.AccountDetail, error) {
	rows, err := r.db.Query("SELECT " + accountColumns + " FROM account_details ORDER BY account_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.AccountDetail
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Classification returns the account_id -> strategy map consumed by the
// valuation core
func (r *Repository) Classification() (domain.Classification, error) {
	rows, err := r.db.Query("SELECT account_id, trading_strategy FROM account_details")
	if err != nil {
		return nil, fmt.Errorf("failed to query classification: %w", err)
	}
	defer rows.Close()

	class := make(domain.Classification)
	for rows.Next() {
		var id, strategy string
		if err := rows.Scan(&id, &strategy); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		class[id] = domain.Strategy(strategy)
	}
	return class, rows.Err()
}

// Delete removes an account's metadata row. Trades and flows referencing
// the id become unclassified, they are not removed.
func (r *Repository) Delete(accountID string) error {
	res, err := r.db.Exec("DELETE FROM account_details WHERE account_id = ?", accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", accountID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	r.log.Info().Str("account_id", accountID).Msg("Account deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (domain.AccountDetail, error) {
	var a domain.AccountDetail
	var userName sql.NullString
	var strategy string
	var createdAt, updatedAt int64

	err := row.Scan(&a.ID, &a.AccountID, &userName, &a.Type, &strategy, &createdAt, &updatedAt)
	if err != nil {
		return domain.AccountDetail{}, err
	}

	a.UserName = userName.String
	a.Strategy = domain.Strategy(strategy)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return a, nil
}
