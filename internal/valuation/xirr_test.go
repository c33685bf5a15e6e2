package valuation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSolveRoundTrip(t *testing.T) {
	// -1000 today, +1100 one year later must solve to 10%
	points := []Point{
		{Date: day("2024-01-01"), Amount: -1000},
		{Date: day("2024-12-31"), Amount: 1100},
	}

	rate := Solve(points)
	require.NotNil(t, rate)
	assert.InDelta(t, 0.10, *rate, 1e-4)
}

func TestSolveNegativeRate(t *testing.T) {
	points := []Point{
		{Date: day("2024-01-01"), Amount: -1000},
		{Date: day("2024-12-31"), Amount: 900},
	}

	rate := Solve(points)
	require.NotNil(t, rate)
	assert.InDelta(t, -0.10, *rate, 1e-4)
}

func TestSolveIrregularFlowsZeroesPresentValue(t *testing.T) {
	points := []Point{
		{Date: day("2023-01-15"), Amount: -5000},
		{Date: day("2023-04-02"), Amount: -2500},
		{Date: day("2023-11-20"), Amount: -1000},
		{Date: day("2024-06-30"), Amount: 10200},
	}

	rate := Solve(points)
	require.NotNil(t, rate)

	// The solved rate must actually zero the discounted sum
	t0 := day("2023-01-15")
	pv := 0.0
	for _, p := range points {
		years := p.Date.Sub(t0).Hours() / 24 / 365.0
		pv += p.Amount / math.Pow(1+*rate, years)
	}
	assert.InDelta(t, 0, pv, 1e-3)
}

func TestSolveBisectionFallback(t *testing.T) {
	// A near-total loss makes Newton overshoot below the rate floor on
	// its first step; bisection must still find the root near -99%.
	points := []Point{
		{Date: day("2024-01-01"), Amount: -1000},
		{Date: day("2024-12-31"), Amount: 10},
	}

	rate := Solve(points)
	require.NotNil(t, rate)
	assert.InDelta(t, -0.99, *rate, 1e-3)
}

func TestSolveInsufficientData(t *testing.T) {
	assert.Nil(t, Solve(nil))
	assert.Nil(t, Solve([]Point{}))
	assert.Nil(t, Solve([]Point{{Date: day("2024-01-01"), Amount: -1000}}))
}

func TestSolveAllZeroAmounts(t *testing.T) {
	points := []Point{
		{Date: day("2024-01-01"), Amount: 0},
		{Date: day("2024-06-01"), Amount: 0},
	}
	assert.Nil(t, Solve(points))
}

func TestSolveNoRootReturnsNil(t *testing.T) {
	// Same-day flows with a non-zero sum: PV is constant in the rate,
	// Newton's derivative underflows and bisection never brackets a
	// root. The solver must answer nil, never a default rate.
	points := []Point{
		{Date: day("2024-01-01"), Amount: -100},
		{Date: day("2024-01-01"), Amount: 50},
	}
	assert.Nil(t, Solve(points))
}

func TestSolveAllOutflowsReturnsNil(t *testing.T) {
	// Money only ever leaves, so the discounted sum is negative at
	// every rate and no root exists anywhere in the stable range.
	// Bisection must refuse the series instead of converging on an
	// endpoint.
	points := []Point{
		{Date: day("2024-01-01"), Amount: -100},
		{Date: day("2024-06-01"), Amount: -50},
	}
	assert.Nil(t, Solve(points))
}

func TestSolveInputOrderIndependent(t *testing.T) {
	forward := []Point{
		{Date: day("2024-01-01"), Amount: -1000},
		{Date: day("2024-07-01"), Amount: -500},
		{Date: day("2024-12-31"), Amount: 1700},
	}
	reversed := []Point{forward[2], forward[1], forward[0]}

	a := Solve(forward)
	b := Solve(reversed)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.InDelta(t, *a, *b, 1e-9)
}
