package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/domain"
)

var testClass = domain.Classification{
	"ACC-SWING": domain.StrategySwing,
	"ACC-LONG":  domain.StrategyLongTerm,
}

func viewFixture() ([]domain.Trade, []domain.CashFlow, domain.PriceMap) {
	trades := []domain.Trade{
		{
			ID: 1, Symbol: "INFY", AccountID: "ACC-SWING",
			Buy:  domain.BuyLeg{Date: day("2024-01-01"), Price: 100, Quantity: 10, Amount: 1000, Charges: 5},
			Sell: &domain.SellLeg{Date: day("2024-03-01"), Price: 120, Amount: 1200, Charges: 5},
		},
		{
			ID: 2, Symbol: "TCS", AccountID: "ACC-LONG",
			Buy: domain.BuyLeg{Date: day("2024-02-01"), Price: 200, Quantity: 5, Amount: 1000, Charges: 0},
		},
	}
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 2000, AccountID: "ACC-SWING"},
		{ID: 2, Date: day("2024-01-15"), Amount: 3000, AccountID: "ACC-LONG"},
	}
	prices := domain.PriceMap{"TCS": 220}
	return trades, flows, prices
}

func TestAccountsForViewNamedViews(t *testing.T) {
	swing := AccountsForView(domain.ViewSwing, testClass, nil, Policy{})
	assert.Equal(t, map[string]struct{}{"ACC-SWING": {}}, swing)

	long := AccountsForView(domain.ViewLongTerm, testClass, nil, Policy{})
	assert.Equal(t, map[string]struct{}{"ACC-LONG": {}}, long)
}

func TestAccountsForViewOverallIsUnion(t *testing.T) {
	overall := AccountsForView(domain.ViewOverall, testClass, nil, Policy{})
	assert.Len(t, overall, 2)
	assert.Contains(t, overall, "ACC-SWING")
	assert.Contains(t, overall, "ACC-LONG")
}

func TestAccountsForViewUnclassifiedPolicy(t *testing.T) {
	known := []string{"ACC-NEW"}

	excluded := AccountsForView(domain.ViewOverall, testClass, known, Policy{})
	assert.NotContains(t, excluded, "ACC-NEW")

	included := AccountsForView(domain.ViewOverall, testClass, known, Policy{IncludeUnclassifiedInOverall: true})
	assert.Contains(t, included, "ACC-NEW")

	// Unclassified accounts never leak into a named view either way
	swing := AccountsForView(domain.ViewSwing, testClass, known, Policy{IncludeUnclassifiedInOverall: true})
	assert.NotContains(t, swing, "ACC-NEW")
}

func TestAggregateValuationIdentity(t *testing.T) {
	trades, flows, prices := viewFixture()

	for _, view := range domain.AllViews {
		agg := Aggregate(view, testClass, nil, trades, flows, prices, day("2024-06-01"), Policy{})
		assert.InDelta(t, agg.TotalPayin+agg.BookedPL+agg.FloatPL, agg.TotalValue, 1e-6, "view %s", view)
	}
}

func TestAggregateOverallIsUnionOfNamedViews(t *testing.T) {
	trades, flows, prices := viewFixture()
	asOf := day("2024-06-01")

	swing := Aggregate(domain.ViewSwing, testClass, nil, trades, flows, prices, asOf, Policy{})
	long := Aggregate(domain.ViewLongTerm, testClass, nil, trades, flows, prices, asOf, Policy{})
	overall := Aggregate(domain.ViewOverall, testClass, nil, trades, flows, prices, asOf, Policy{})

	// No duplicates, no omissions
	assert.Equal(t, len(swing.Trades)+len(long.Trades), len(overall.Trades))
	assert.Equal(t, len(swing.Flows)+len(long.Flows), len(overall.Flows))
	assert.InDelta(t, swing.TotalValue+long.TotalValue, overall.TotalValue, 1e-6)
}

func TestAggregateNumbers(t *testing.T) {
	trades, flows, prices := viewFixture()
	agg := Aggregate(domain.ViewOverall, testClass, nil, trades, flows, prices, day("2024-06-01"), Policy{})

	assert.InDelta(t, 5000, agg.TotalPayin, 1e-9)
	assert.InDelta(t, 190, agg.BookedPL, 1e-9)  // closed INFY
	assert.InDelta(t, 100, agg.FloatPL, 1e-9)   // 220*5 - 1000
	assert.InDelta(t, 1000, agg.OpenPositions, 1e-9)
	assert.InDelta(t, 5290, agg.TotalValue, 1e-9)
	assert.Empty(t, agg.MissingPrices)
	assert.Empty(t, agg.UnknownAccounts)
}

func TestAggregateMissingPriceFlaggedNotDropped(t *testing.T) {
	trades, flows, _ := viewFixture()
	agg := Aggregate(domain.ViewLongTerm, testClass, nil, trades, flows, domain.PriceMap{}, day("2024-06-01"), Policy{})

	// The open TCS trade stays in the filtered set with a zero
	// contribution, and the gap is surfaced
	require.Len(t, agg.Trades, 1)
	assert.Zero(t, agg.FloatPL)
	assert.Equal(t, []string{"TCS"}, agg.MissingPrices)
	assert.InDelta(t, agg.TotalPayin+agg.BookedPL, agg.TotalValue, 1e-6)
}

func TestAggregateUnknownAccountFlagged(t *testing.T) {
	trades, flows, prices := viewFixture()
	trades = append(trades, domain.Trade{
		ID: 9, Symbol: "WIPRO", AccountID: "GHOST",
		Buy: domain.BuyLeg{Date: day("2024-01-10"), Price: 50, Quantity: 2, Amount: 100},
	})

	agg := Aggregate(domain.ViewOverall, testClass, nil, trades, flows, prices, day("2024-06-01"), Policy{})
	assert.Equal(t, []string{"GHOST"}, agg.UnknownAccounts)
	// Unknown ids are excluded from the sums, not guessed into a view
	assert.InDelta(t, 5290, agg.TotalValue, 1e-9)
}

func TestAggregateAsOfCutoffs(t *testing.T) {
	trades, flows, prices := viewFixture()

	// Before the TCS buy and the INFY sell: only the INFY buy and the
	// first payin are visible, and INFY counts as having no booked P/L
	agg := Aggregate(domain.ViewOverall, testClass, nil, trades, flows, prices, day("2024-01-20"), Policy{})
	assert.Len(t, agg.Trades, 1)
	assert.Zero(t, agg.BookedPL)
	assert.InDelta(t, 5000, agg.TotalPayin, 1e-9)
}

func TestAggregateClassificationIsExplicitInput(t *testing.T) {
	trades, flows, prices := viewFixture()

	// An empty classification yields empty named views; nothing is
	// read from ambient state
	agg := Aggregate(domain.ViewSwing, domain.Classification{}, nil, trades, flows, prices, day("2024-06-01"), Policy{})
	assert.Empty(t, agg.Trades)
	assert.Empty(t, agg.Flows)
	assert.Zero(t, agg.TotalValue)
}
