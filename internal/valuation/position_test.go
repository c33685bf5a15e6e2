package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/domain"
)

func closedTrade() domain.Trade {
	return domain.Trade{
		ID:        1,
		Symbol:    "INFY",
		AccountID: "ACC1",
		Buy: domain.BuyLeg{
			Date:     day("2024-01-01"),
			Price:    100,
			Quantity: 10,
			Amount:   1000,
			Charges:  5,
		},
		Sell: &domain.SellLeg{
			Date:    day("2024-03-01"),
			Price:   120,
			Amount:  1200,
			Charges: 5,
		},
	}
}

func openTrade(price float64) domain.Trade {
	t := domain.Trade{
		ID:        2,
		Symbol:    "TCS",
		AccountID: "ACC1",
		Buy: domain.BuyLeg{
			Date:     day("2024-01-01"),
			Price:    100,
			Quantity: 10,
			Amount:   1000,
			Charges:  5,
		},
	}
	if price > 0 {
		t.Quote = &domain.MarketQuote{Price: price, Quantity: 10, SyncedAt: day("2024-06-01")}
	}
	return t
}

func TestValuateClosedTrade(t *testing.T) {
	v := Valuate(closedTrade(), nil, day("2024-06-01"))

	assert.InDelta(t, 190, v.ProfitLoss, 1e-9) // (1200-5) - (1000+5)
	require.NotNil(t, v.ProfitPercent)
	assert.InDelta(t, 18.91, *v.ProfitPercent, 0.01)
	assert.Equal(t, 60, v.AgingDays) // buy to sell, not to asOf
	assert.False(t, v.PriceMissing)
}

func TestValuateOpenTradeWithQuote(t *testing.T) {
	v := Valuate(openTrade(120), nil, day("2024-01-31"))

	assert.InDelta(t, 195, v.ProfitLoss, 1e-9) // 120*10 - 1005
	require.NotNil(t, v.ProfitPercent)
	assert.InDelta(t, 19.40, *v.ProfitPercent, 0.01)
	assert.Equal(t, 30, v.AgingDays)
}

func TestValuateOverrideBeatsQuote(t *testing.T) {
	override := 150.0
	v := Valuate(openTrade(120), &override, day("2024-01-31"))
	assert.InDelta(t, 495, v.ProfitLoss, 1e-9)
}

func TestValuateOpenTradeMissingPrice(t *testing.T) {
	v := Valuate(openTrade(0), nil, day("2024-01-31"))

	assert.True(t, v.PriceMissing)
	assert.Zero(t, v.ProfitLoss)
	assert.Nil(t, v.ProfitPercent)
	assert.Equal(t, 30, v.AgingDays) // aging is still known
}

func TestProfitPercentZeroCostBasis(t *testing.T) {
	assert.Nil(t, ProfitPercent(100, 0))
}

func TestProfitPercentUsesSuppliedProfitLoss(t *testing.T) {
	pct := ProfitPercent(190, 1005)
	require.NotNil(t, pct)
	assert.InDelta(t, 18.905, *pct, 1e-3)
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, daysBetween(from, to))
}
