package snapshots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/domain"
)

func navSeries(navs ...float64) []domain.PortfolioSnapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PortfolioSnapshot, len(navs))
	for i, nav := range navs {
		out[i] = domain.PortfolioSnapshot{
			View: domain.ViewOverall,
			Date: start.AddDate(0, 0, i),
			NAV:  nav,
		}
	}
	return out
}

func TestComputeStatsBasics(t *testing.T) {
	// 100 -> 110 (+10%) -> 99 (-10%) -> 108.9 (+10%)
	stats := ComputeStats(navSeries(100, 110, 99, 108.9))

	assert.Equal(t, 4, stats.Days)

	require.NotNil(t, stats.TotalReturnPercent)
	assert.InDelta(t, 8.9, *stats.TotalReturnPercent, 1e-9)

	require.NotNil(t, stats.BestDay)
	assert.InDelta(t, 10, stats.BestDay.ReturnPercent, 1e-9)
	require.NotNil(t, stats.WorstDay)
	assert.InDelta(t, -10, stats.WorstDay.ReturnPercent, 1e-9)

	require.NotNil(t, stats.MeanDailyPercent)
	assert.InDelta(t, 10.0/3.0, *stats.MeanDailyPercent, 1e-9)

	// Peak 110 -> trough 99
	require.NotNil(t, stats.MaxDrawdownPercent)
	assert.InDelta(t, -10, *stats.MaxDrawdownPercent, 1e-9)
}

func TestComputeStatsMonotonicSeriesHasNoDrawdown(t *testing.T) {
	stats := ComputeStats(navSeries(100, 101, 102, 103))
	assert.Nil(t, stats.MaxDrawdownPercent)
	require.NotNil(t, stats.TotalReturnPercent)
	assert.InDelta(t, 3, *stats.TotalReturnPercent, 1e-9)
}

func TestComputeStatsSkipsEmptyPortfolioDays(t *testing.T) {
	// A zero NAV breaks the chain instead of producing a -100% day
	stats := ComputeStats(navSeries(100, 0, 120))

	require.NotNil(t, stats.TotalReturnPercent)
	assert.InDelta(t, 20, *stats.TotalReturnPercent, 1e-9)
	assert.Nil(t, stats.BestDay)
	assert.Nil(t, stats.WorstDay)
}

func TestComputeStatsDegenerateSeries(t *testing.T) {
	empty := ComputeStats(nil)
	assert.Equal(t, 0, empty.Days)
	assert.Nil(t, empty.TotalReturnPercent)
	assert.Nil(t, empty.VolatilityPercent)

	single := ComputeStats(navSeries(100))
	assert.Equal(t, 1, single.Days)
	assert.Nil(t, single.TotalReturnPercent)
	assert.Nil(t, single.BestDay)
}
