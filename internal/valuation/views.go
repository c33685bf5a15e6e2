package valuation

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// Policy holds the explicit knobs of the aggregation boundary.
//
// IncludeUnclassifiedInOverall controls whether known accounts without
// a strategy classification still count toward the OVERALL view. Both
// behaviors are intentional and reachable; neither is a hidden default.
type Policy struct {
	IncludeUnclassifiedInOverall bool
}

// Aggregation is one view's filtered data plus the sums derived from
// it. TotalValue always satisfies the valuation identity
// TotalValue = TotalPayin + BookedPL + FloatPL.
type Aggregation struct {
	View          domain.View
	Accounts      map[string]struct{}
	Trades        []domain.Trade
	Flows         []domain.CashFlow
	TotalPayin    float64
	BookedPL      float64
	FloatPL       float64
	OpenPositions float64
	TotalValue    float64

	// Degradation flags, surfaced instead of swallowed
	MissingPrices   []string
	UnknownAccounts []string
}

// AccountsForView resolves the member account set for a view. The
// classification and the known-account list are explicit inputs; this
// function never consults ambient configuration. OVERALL is computed as
// the union of all classified accounts, extended with known-but-
// unclassified accounts only when the policy says so.
func AccountsForView(view domain.View, class domain.Classification, known []string, pol Policy) map[string]struct{} {
	members := make(map[string]struct{})

	for accountID, strategy := range class {
		if view == domain.ViewOverall || domain.ViewForStrategy(strategy) == view {
			members[accountID] = struct{}{}
		}
	}

	if view == domain.ViewOverall && pol.IncludeUnclassifiedInOverall {
		for _, accountID := range known {
			members[accountID] = struct{}{}
		}
	}

	return members
}

// Aggregate filters trades and flows to a view's member accounts as of
// a date and derives the view's sums. Trades bought after asOf are
// excluded entirely; a closed trade counts toward booked P/L only when
// its sell date is on or before asOf. Open trades without a usable
// price contribute zero and are flagged, never dropped from the set.
func Aggregate(
	view domain.View,
	class domain.Classification,
	known []string,
	trades []domain.Trade,
	flows []domain.CashFlow,
	prices domain.PriceProvider,
	asOf time.Time,
	pol Policy,
) Aggregation {
	members := AccountsForView(view, class, known, pol)
	knownSet := make(map[string]struct{}, len(known)+len(class))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}
	for id := range class {
		knownSet[id] = struct{}{}
	}

	agg := Aggregation{View: view, Accounts: members}
	unknown := make(map[string]struct{})
	missing := make(map[string]struct{})
	cutoff := dateOnly(asOf)

	var payins, booked, floating, open []float64

	for _, f := range flows {
		if _, ok := knownSet[f.AccountID]; !ok {
			unknown[f.AccountID] = struct{}{}
			continue
		}
		if _, ok := members[f.AccountID]; !ok {
			continue
		}
		if dateOnly(f.Date).After(cutoff) {
			continue
		}
		agg.Flows = append(agg.Flows, f)
		payins = append(payins, f.Amount)
	}

	for _, t := range trades {
		if _, ok := knownSet[t.AccountID]; !ok {
			unknown[t.AccountID] = struct{}{}
			continue
		}
		if _, ok := members[t.AccountID]; !ok {
			continue
		}
		if dateOnly(t.Buy.Date).After(cutoff) {
			continue
		}
		agg.Trades = append(agg.Trades, t)

		if t.Sell != nil {
			// A trade closed after asOf has no knowable mark at asOf;
			// it contributes nothing, same stance as a missing price.
			if !dateOnly(t.Sell.Date).After(cutoff) {
				booked = append(booked, Valuate(t, nil, asOf).ProfitLoss)
			}
			continue
		}

		open = append(open, t.Buy.Price*float64(t.Buy.Quantity))

		var override *float64
		if p, ok := prices.Price(t.Symbol); ok && p > 0 {
			override = &p
		}
		v := Valuate(t, override, asOf)
		if v.PriceMissing {
			missing[t.Symbol] = struct{}{}
			continue
		}
		floating = append(floating, v.ProfitLoss)
	}

	agg.TotalPayin = floats.Sum(payins)
	agg.BookedPL = floats.Sum(booked)
	agg.FloatPL = floats.Sum(floating)
	agg.OpenPositions = floats.Sum(open)
	agg.TotalValue = agg.TotalPayin + agg.BookedPL + agg.FloatPL
	agg.MissingPrices = sortedKeys(missing)
	agg.UnknownAccounts = sortedKeys(unknown)
	return agg
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
