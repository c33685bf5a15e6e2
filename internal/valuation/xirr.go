package valuation

import (
	"math"
	"sort"
	"time"
)

// Solver constants. The rate bounds exist for numerical stability, not
// as a business rule: no real portfolio loses more than 99%/yr or
// returns more than 1000%/yr, and letting Newton wander outside that
// range produces useless iterates.
const (
	xirrGuess     = 0.1
	xirrTolerance = 1e-6
	xirrMaxIter   = 100
	xirrRateFloor = -0.99
	xirrRateCeil  = 10.0
	daysPerYear   = 365.0
)

// Point is one dated cash flow for the return solver. Amounts are
// signed: negative for money invested, positive for money returned.
type Point struct {
	Date   time.Time
	Amount float64
}

// Solve computes the annualized rate that zeroes the date-discounted
// sum of the given cash flows (XIRR). It returns the rate as a decimal
// (0.10 = 10%), or nil when no rate is computable: fewer than two
// flows, an all-zero series, or neither Newton-Raphson nor the
// bisection fallback converging. A nil result means "not computable"
// and must never be read as zero.
func Solve(points []Point) *float64 {
	if len(points) < 2 {
		return nil
	}

	// Discount exponents are fixed per point; precompute them against
	// the earliest date using an actual/365 day count.
	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

	t0 := dateOnly(pts[0].Date)
	years := make([]float64, len(pts))
	amounts := make([]float64, len(pts))
	allZero := true
	for i, p := range pts {
		years[i] = float64(daysBetween(t0, p.Date)) / daysPerYear
		amounts[i] = p.Amount
		if p.Amount != 0 {
			allZero = false
		}
	}
	if allZero {
		return nil
	}

	if r, ok := solveNewton(amounts, years); ok {
		return &r
	}
	if r, ok := solveBisection(amounts, years); ok {
		return &r
	}
	return nil
}

// presentValue discounts all flows at the given rate
func presentValue(amounts, years []float64, rate float64) float64 {
	pv := 0.0
	for i, amt := range amounts {
		pv += amt / math.Pow(1+rate, years[i])
	}
	return pv
}

// presentValueDerivative is the analytic d/dr of presentValue
func presentValueDerivative(amounts, years []float64, rate float64) float64 {
	pvd := 0.0
	for i, amt := range amounts {
		pvd -= years[i] * amt / math.Pow(1+rate, years[i]+1)
	}
	return pvd
}

// solveNewton runs Newton-Raphson from the standard 10% guess. It gives
// up when the derivative underflows (the division would be unstable) or
// a candidate leaves the stable rate range; the caller then falls back
// to bisection.
func solveNewton(amounts, years []float64) (float64, bool) {
	rate := xirrGuess

	for i := 0; i < xirrMaxIter; i++ {
		pv := presentValue(amounts, years, rate)
		if math.Abs(pv) < xirrTolerance {
			return rate, true
		}

		pvd := presentValueDerivative(amounts, years, rate)
		if math.Abs(pvd) < xirrTolerance {
			return 0, false
		}

		next := rate - pv/pvd
		if next < xirrRateFloor || next > xirrRateCeil {
			return 0, false
		}
		if math.Abs(next-rate) < xirrTolerance {
			return next, true
		}
		rate = next
	}

	return 0, false
}

// solveBisection narrows [rateFloor, rateCeil] by the sign of PV(mid).
// It only runs when the endpoints bracket a root: without a sign change
// there is nothing to bisect, and shrinking the bracket anyway would
// converge on an endpoint that zeroes nothing.
func solveBisection(amounts, years []float64) (float64, bool) {
	low, high := xirrRateFloor, xirrRateCeil

	pvLow := presentValue(amounts, years, low)
	pvHigh := presentValue(amounts, years, high)
	if math.Abs(pvLow) < xirrTolerance {
		return low, true
	}
	if math.Abs(pvHigh) < xirrTolerance {
		return high, true
	}
	if (pvLow > 0) == (pvHigh > 0) {
		return 0, false
	}

	for i := 0; i < xirrMaxIter; i++ {
		mid := (low + high) / 2
		pv := presentValue(amounts, years, mid)

		if math.Abs(pv) < xirrTolerance {
			return mid, true
		}
		if (pv > 0) == (pvLow > 0) {
			low, pvLow = mid, pv
		} else {
			high = mid
		}
		if high-low < xirrTolerance {
			return mid, true
		}
	}

	return 0, false
}
