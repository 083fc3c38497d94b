// Package evaluator aggregates daily snapshots and the trade log into a
// performance report: total/annualized return, maximum drawdown, and win
// rate, walked over the equity curve the same way a final-metrics pass
// over daily returns usually is. Deliberately no Sharpe ratio — that needs
// a risk-free-rate input nothing here defines.
package evaluator

import (
	"math"
	"time"

	"ashare-backtest/pkg/types"
)

// Report is the final performance summary produced from a full backtest
// run's snapshots and trade log.
type Report struct {
	InitialCapital   types.Money
	FinalCapital     types.Money
	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	WinRate          float64
	TradeCount       int
}

// Evaluate computes a Report from the day-by-day snapshots and the full
// trade log. An empty snapshots slice yields all-zero metrics with
// FinalCapital == initialCapital.
func Evaluate(snapshots []types.DailySnapshot, trades []types.TradeRecord, initialCapital types.Money, start, end time.Time) Report {
	if len(snapshots) == 0 {
		return Report{InitialCapital: initialCapital, FinalCapital: initialCapital, TradeCount: len(trades)}
	}

	final := snapshots[len(snapshots)-1].TotalAsset
	totalReturn := final.Sub(initialCapital).Float64() / initialCapital.Float64()

	days := end.Sub(start).Hours() / 24
	annualized := 0.0
	if days > 0 {
		annualized = math.Pow(1+totalReturn, 365/days) - 1
	}

	maxDrawdown := maxDrawdownOf(snapshots, initialCapital)
	winRate := winRateOf(trades)

	return Report{
		InitialCapital:   initialCapital,
		FinalCapital:     final,
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		MaxDrawdown:      maxDrawdown,
		WinRate:          winRate,
		TradeCount:       len(trades),
	}
}

// maxDrawdownOf walks the equity curve tracking a monotonic running peak
// (starting at initialCapital) and the largest peak-to-trough drop.
func maxDrawdownOf(snapshots []types.DailySnapshot, initialCapital types.Money) float64 {
	peak := initialCapital.Float64()
	maxDD := 0.0

	for _, snap := range snapshots {
		v := snap.TotalAsset.Float64()
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// winRateOf computes the fraction of SELL trades with positive realized
// PnL. Returns 0 if there are no SELL trades.
func winRateOf(trades []types.TradeRecord) float64 {
	sells, wins := 0, 0
	for _, tr := range trades {
		if tr.Direction != types.Sell {
			continue
		}
		sells++
		if tr.RealizedPnL.IsPositive() {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}
