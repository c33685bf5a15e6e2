package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foliotrack/foliotrack/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func TestNAVBootstrap(t *testing.T) {
	// No shares issued yet: 1 share = 1 currency unit
	assert.InDelta(t, 5000, NAV(5000, 0), 1e-9)
}

func TestNAVPerShare(t *testing.T) {
	assert.InDelta(t, 12.5, NAV(2500, 200), 1e-9)
}

func TestCumulativeSharesStoredCountWins(t *testing.T) {
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 1000, NAV: fptr(10), Shares: fptr(50)},
	}
	// A stored share count is authoritative even when it disagrees
	// with amount/NAV
	assert.InDelta(t, 50, CumulativeShares(flows), 1e-9)
}

func TestCumulativeSharesFromRecordedNAV(t *testing.T) {
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 1000, NAV: fptr(10)},
		{ID: 2, Date: day("2024-02-01"), Amount: 550, NAV: fptr(11)},
	}
	assert.InDelta(t, 150, CumulativeShares(flows), 1e-9) // 100 + 50
}

func TestCumulativeSharesLeadingFlowBootstrapsAtUnitNAV(t *testing.T) {
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 1000},
	}
	assert.InDelta(t, 1000, CumulativeShares(flows), 1e-9)
}

func TestCumulativeSharesMidSeriesFallsBackToPrevailingNAV(t *testing.T) {
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 1000, NAV: fptr(10)},
		// No NAV recorded: prevailing NAV is 1000/100 = 10, never a
		// silent 1
		{ID: 2, Date: day("2024-02-01"), Amount: 1100},
	}
	assert.InDelta(t, 210, CumulativeShares(flows), 1e-9)
}

func TestCumulativeSharesPayoutRedeems(t *testing.T) {
	flows := []domain.CashFlow{
		{ID: 1, Date: day("2024-01-01"), Amount: 1000, NAV: fptr(10)},
		{ID: 2, Date: day("2024-03-01"), Amount: -500, NAV: fptr(10)},
	}
	assert.InDelta(t, 50, CumulativeShares(flows), 1e-9)
}

func TestCumulativeSharesOrderedByDateNotInput(t *testing.T) {
	// Same series, shuffled input: the mid-series fallback must see
	// flows in date order
	flows := []domain.CashFlow{
		{ID: 2, Date: day("2024-02-01"), Amount: 1100},
		{ID: 1, Date: day("2024-01-01"), Amount: 1000, NAV: fptr(10)},
	}
	assert.InDelta(t, 210, CumulativeShares(flows), 1e-9)
}
