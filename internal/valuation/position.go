// Package valuation implements the pure portfolio valuation core:
// per-trade profit/loss, cash-flow return solving (XIRR), NAV share
// accounting, view aggregation and snapshot assembly. Every function in
// this package takes fully resolved inputs and performs no I/O, so
// independent invocations are safe to run concurrently.
package valuation

import (
	"time"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// Valuation is the result of valuing a single trade. ProfitLoss is
// realized for closed trades and mark-to-market for open ones. For an
// open trade with no usable price, ProfitLoss is zero and PriceMissing
// is set so aggregates can surface the gap instead of hiding it.
type Valuation struct {
	ProfitLoss    float64  `json:"profit_loss"`
	ProfitPercent *float64 `json:"profit_percentage"`
	AgingDays     int      `json:"aging_days"`
	PriceMissing  bool     `json:"price_missing,omitempty"`
}

// ProfitPercent computes the profit percentage from an already-computed
// profit/loss. It deliberately takes the P/L as an argument so callers
// cannot recompute it per call site. Returns nil when the cost basis is
// zero (undefined, not an error).
func ProfitPercent(profitLoss, costBasis float64) *float64 {
	if costBasis == 0 {
		return nil
	}
	pct := profitLoss / costBasis * 100
	return &pct
}

// Valuate values one trade as of the given date. For open trades the
// price is taken from the trade's synced quote unless an explicit
// override is supplied (override wins, quote is the fallback).
func Valuate(t domain.Trade, priceOverride *float64, asOf time.Time) Valuation {
	costBasis := t.CostBasis()

	if t.Sell != nil {
		pl := (t.Sell.Amount - t.Sell.Charges) - costBasis
		return Valuation{
			ProfitLoss:    pl,
			ProfitPercent: ProfitPercent(pl, costBasis),
			AgingDays:     daysBetween(t.Buy.Date, t.Sell.Date),
		}
	}

	aging := daysBetween(t.Buy.Date, asOf)

	price, ok := openPrice(t, priceOverride)
	if !ok {
		return Valuation{AgingDays: aging, PriceMissing: true}
	}

	pl := price*float64(t.Buy.Quantity) - costBasis
	return Valuation{
		ProfitLoss:    pl,
		ProfitPercent: ProfitPercent(pl, costBasis),
		AgingDays:     aging,
	}
}

// openPrice resolves the mark price for an open trade
func openPrice(t domain.Trade, override *float64) (float64, bool) {
	if override != nil && *override > 0 {
		return *override, true
	}
	if t.Quote != nil && t.Quote.Price > 0 {
		return t.Quote.Price, true
	}
	return 0, false
}

// daysBetween returns whole calendar days between two instants,
// comparing dates only (time-of-day and zone are ignored).
func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
