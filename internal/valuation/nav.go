package valuation

import (
	"sort"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// NAV returns the per-share value of a portfolio. Before any capital
// flow has been recorded with an explicit NAV the share count is zero;
// in that bootstrap state the convention is 1 share = 1 currency unit,
// so the NAV degenerates to the total value itself.
func NAV(totalValue, cumulativeShares float64) float64 {
	if cumulativeShares > 0 {
		return totalValue / cumulativeShares
	}
	return totalValue
}

// CumulativeShares computes the signed outstanding share count for a
// flow series. Flows are processed in date order. A flow with a stored
// share count is taken as-is; otherwise shares are derived from the
// flow's recorded NAV, and a flow with neither falls back to the NAV
// implied by the preceding running totals. NAV is never silently
// assumed to be 1 mid-series; only a series-leading flow bootstraps at
// the 1-unit convention.
func CumulativeShares(flows []domain.CashFlow) float64 {
	ordered := make([]domain.CashFlow, len(flows))
	copy(ordered, flows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	cumShares := 0.0
	cumAmount := 0.0
	for _, f := range ordered {
		cumShares += flowShares(f, cumAmount, cumShares)
		cumAmount += f.Amount
	}
	return cumShares
}

// flowShares resolves one flow's signed share count given the running
// totals of all preceding flows
func flowShares(f domain.CashFlow, cumAmount, cumShares float64) float64 {
	if f.Shares != nil {
		return *f.Shares
	}

	nav := 1.0
	switch {
	case f.NAV != nil && *f.NAV > 0:
		nav = *f.NAV
	case cumShares > 0 && cumAmount > 0:
		// Prevailing NAV from the running totals of earlier flows
		nav = cumAmount / cumShares
	}
	return f.Amount / nav
}
