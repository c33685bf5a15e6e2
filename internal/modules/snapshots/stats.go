package snapshots

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/foliotrack/foliotrack/internal/domain"
)

// DayMove is one day's NAV return
type DayMove struct {
	Date          time.Time `json:"date"`
	ReturnPercent float64   `json:"return_percent"`
}

// SeriesStats summarises a view's NAV history. Everything is derived
// from the stored snapshot series, nothing is recomputed from trades.
type SeriesStats struct {
	Days               int      `json:"days"`
	TotalReturnPercent *float64 `json:"total_return_percent"`
	MeanDailyPercent   *float64 `json:"mean_daily_percent"`
	VolatilityPercent  *float64 `json:"volatility_percent"`
	MaxDrawdownPercent *float64 `json:"max_drawdown_percent"`
	BestDay            *DayMove `json:"best_day"`
	WorstDay           *DayMove `json:"worst_day"`
}

// ComputeStats derives NAV-series statistics from a snapshot history.
// Snapshots must be in ascending date order, as the repository returns
// them. Days with a non-positive NAV (empty portfolio) break the return
// chain and are skipped.
func ComputeStats(history []domain.PortfolioSnapshot) SeriesStats {
	stats := SeriesStats{Days: len(history)}

	var returns []float64
	var moves []DayMove
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if prev.NAV <= 0 || cur.NAV <= 0 {
			continue
		}
		r := (cur.NAV - prev.NAV) / prev.NAV * 100
		returns = append(returns, r)
		moves = append(moves, DayMove{Date: cur.Date, ReturnPercent: r})
	}

	if first, last := firstPositiveNAV(history), lastPositiveNAV(history); first != nil && last != nil && first != last {
		total := (last.NAV - first.NAV) / first.NAV * 100
		stats.TotalReturnPercent = &total
	}

	if len(returns) > 0 {
		mean := stat.Mean(returns, nil)
		stats.MeanDailyPercent = &mean

		best, worst := moves[0], moves[0]
		for _, m := range moves[1:] {
			if m.ReturnPercent > best.ReturnPercent {
				best = m
			}
			if m.ReturnPercent < worst.ReturnPercent {
				worst = m
			}
		}
		stats.BestDay = &best
		stats.WorstDay = &worst
	}
	if len(returns) > 1 {
		sd := stat.StdDev(returns, nil)
		stats.VolatilityPercent = &sd
	}

	if dd := maxDrawdown(history); dd != nil {
		stats.MaxDrawdownPercent = dd
	}

	return stats
}

// maxDrawdown returns the largest peak-to-trough NAV decline as a
// negative percentage, nil when the series never declines
func maxDrawdown(history []domain.PortfolioSnapshot) *float64 {
	peak := 0.0
	worst := 0.0
	for _, s := range history {
		if s.NAV <= 0 {
			continue
		}
		if s.NAV > peak {
			peak = s.NAV
		}
		if peak > 0 {
			dd := (s.NAV - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	if worst == 0 {
		return nil
	}
	return &worst
}

func firstPositiveNAV(history []domain.PortfolioSnapshot) *domain.PortfolioSnapshot {
	for i := range history {
		if history[i].NAV > 0 {
			return &history[i]
		}
	}
	return nil
}

func lastPositiveNAV(history []domain.PortfolioSnapshot) *domain.PortfolioSnapshot {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].NAV > 0 {
			return &history[i]
		}
	}
	return nil
}
