package domain

import "time"

// PortfolioSnapshot is one immutable point-in-time metrics record for a
// view (or a single account). Produced only by the snapshot assembler;
// the store keeps exactly one logical record per (view, account, date),
// so recomputation overwrites rather than duplicates.
//
// XIRR is a percentage and nullable: nil means "return not computable"
// (insufficient flows or solver non-convergence) and must never be
// presented as zero.
type PortfolioSnapshot struct {
	ID                    int64     `json:"id"`
	View                  View      `json:"view"`
	AccountID             string    `json:"account_id,omitempty"`
	Date                  time.Time `json:"snapshot_date"`
	NAV                   float64   `json:"nav"`
	PortfolioValue        float64   `json:"portfolio_value"`
	TotalPayin            float64   `json:"total_payin"`
	BookedPL              float64   `json:"booked_pl"`
	FloatPL               float64   `json:"float_pl"`
	OpenPositions         float64   `json:"open_positions"`
	Balance               float64   `json:"balance"`
	ShareCount            float64   `json:"share_count"`
	XIRR                  *float64  `json:"xirr"`
	UtilisationPercent    *float64  `json:"utilisation_percent"`
	AbsoluteProfitPercent *float64  `json:"absolute_profit_percent"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
