package valuation

import (
	"time"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// Inputs bundles the already-resolved collaborator data a snapshot
// assembly works from. The core never fetches anything itself.
type Inputs struct {
	Trades         []domain.Trade
	Flows          []domain.CashFlow
	Prices         domain.PriceProvider
	Classification domain.Classification
	KnownAccounts  []string
}

// Result is an assembled snapshot plus the degradation flags collected
// along the way. The flags are not persisted with the snapshot; they
// tell the caller which parts of the number are best-effort.
type Result struct {
	Snapshot        domain.PortfolioSnapshot `json:"snapshot"`
	MissingPrices   []string                 `json:"missing_prices,omitempty"`
	UnknownAccounts []string                 `json:"unknown_accounts,omitempty"`
}

// Assemble produces one snapshot for a view at a date. The pipeline is
// aggregate -> share count / NAV -> XIRR with a synthetic terminal flow
// equal to the view's total value at asOf ("liquidate now"). The result
// is deterministic for identical inputs: there is no wall-clock read
// beyond the explicit asOf, so calling twice yields identical records.
//
// Failure is partial by design: an uncomputable XIRR leaves the field
// nil, a missing price zeroes that position's contribution and flags
// it, and the snapshot still assembles.
func Assemble(view domain.View, asOf time.Time, in Inputs, pol Policy) Result {
	agg := Aggregate(view, in.Classification, in.KnownAccounts, in.Trades, in.Flows, in.Prices, asOf, pol)

	shares := CumulativeShares(agg.Flows)
	nav := NAV(agg.TotalValue, shares)

	points := make([]Point, 0, len(agg.Flows)+1)
	for _, f := range agg.Flows {
		// Contributions leave the investor's pocket: negate.
		points = append(points, Point{Date: f.Date, Amount: -f.Amount})
	}
	points = append(points, Point{Date: asOf, Amount: agg.TotalValue})

	var xirr *float64
	if rate := Solve(points); rate != nil {
		pct := *rate * 100
		xirr = &pct
	}

	snap := domain.PortfolioSnapshot{
		View:           view,
		Date:           dateOnly(asOf),
		NAV:            nav,
		PortfolioValue: agg.TotalValue,
		TotalPayin:     agg.TotalPayin,
		BookedPL:       agg.BookedPL,
		FloatPL:        agg.FloatPL,
		OpenPositions:  agg.OpenPositions,
		Balance:        agg.TotalPayin + agg.BookedPL - agg.OpenPositions,
		ShareCount:     shares,
		XIRR:           xirr,
	}

	// Utilisation: open positions against payin plus positive booked
	// profit. Losses do not add to deployable capital.
	available := agg.TotalPayin
	if agg.BookedPL > 0 {
		available += agg.BookedPL
	}
	if available > 0 {
		u := agg.OpenPositions / available * 100
		snap.UtilisationPercent = &u
	}

	if agg.TotalPayin > 0 {
		p := (agg.TotalValue - agg.TotalPayin) / agg.TotalPayin * 100
		snap.AbsoluteProfitPercent = &p
	}

	return Result{
		Snapshot:        snap,
		MissingPrices:   agg.MissingPrices,
		UnknownAccounts: agg.UnknownAccounts,
	}
}

// AssembleAccount produces a snapshot scoped to a single account,
// regardless of its view classification. Used for per-account history.
func AssembleAccount(accountID string, asOf time.Time, in Inputs) Result {
	scoped := Inputs{
		Prices:         in.Prices,
		Classification: domain.Classification{accountID: domain.StrategySwing},
	}
	for _, t := range in.Trades {
		if t.AccountID == accountID {
			scoped.Trades = append(scoped.Trades, t)
		}
	}
	for _, f := range in.Flows {
		if f.AccountID == accountID {
			scoped.Flows = append(scoped.Flows, f)
		}
	}

	res := Assemble(domain.ViewSwing, asOf, scoped, Policy{})
	res.Snapshot.View = ""
	res.Snapshot.AccountID = accountID
	return res
}
