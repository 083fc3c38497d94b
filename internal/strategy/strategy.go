// Package strategy implements the dual moving-average crossover reference
// strategy: a golden cross (fast MA crossing above slow MA) emits a BUY,
// a death cross emits a SELL of the full available position. The package
// also defines the Strategy interface the backtest driver depends on, so
// additional strategies can be added without touching the driver.
package strategy

import (
	"log/slog"

	"ashare-backtest/internal/ledger"
	"ashare-backtest/pkg/types"
)

// Strategy turns visible market data and the current positions into a
// sequence of signals. symbols fixes the iteration order the driver's
// universe was declared in; implementations MUST walk it in order and
// return signals deterministically for identical inputs.
type Strategy interface {
	GenerateSignals(symbols []string, marketData map[string][]types.Bar, positions map[string]*ledger.Position) []types.Signal
}

// DualMovingAverage emits a BUY on a golden cross (fast MA crosses above
// slow MA) and a SELL of the full available position on a death cross.
// Both windows are computed over the same tail, so a symbol needs at least
// SlowWindow+1 bars; symbols with fewer are skipped.
type DualMovingAverage struct {
	FastWindow int
	SlowWindow int
	logger     *slog.Logger
}

// NewDualMovingAverage builds the reference strategy with the standard
// 5/10-bar windows.
func NewDualMovingAverage(logger *slog.Logger) *DualMovingAverage {
	return &DualMovingAverage{
		FastWindow: 5,
		SlowWindow: 10,
		logger:     logger.With("component", "strategy", "name", "dual_moving_average"),
	}
}

// GenerateSignals walks symbols in the given order, computing the fast and
// slow simple moving averages over the current and prior bar to detect a
// crossover.
func (s *DualMovingAverage) GenerateSignals(symbols []string, marketData map[string][]types.Bar, positions map[string]*ledger.Position) []types.Signal {
	var signals []types.Signal

	for _, symbol := range symbols {
		bars := marketData[symbol]
		needed := s.SlowWindow + 1
		if len(bars) < needed {
			continue
		}

		closes := make([]types.Money, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
		}

		fastCurr := sma(closes, s.FastWindow, len(closes))
		slowCurr := sma(closes, s.SlowWindow, len(closes))
		fastPrev := sma(closes, s.FastWindow, len(closes)-1)
		slowPrev := sma(closes, s.SlowWindow, len(closes)-1)

		goldenCross := fastPrev.LTE(slowPrev) && fastCurr.GT(slowCurr)
		deathCross := fastPrev.GTE(slowPrev) && fastCurr.LT(slowCurr)

		switch {
		case goldenCross:
			signals = append(signals, types.Signal{
				Symbol: symbol, Direction: types.Buy, TargetVolume: 100,
				Confidence: 1.0, StrategyName: "dual_moving_average",
				Reason: "Golden Cross: fast MA crossed above slow MA",
			})
		case deathCross:
			pos, ok := positions[symbol]
			if !ok || pos.AvailableVolume <= 0 {
				continue
			}
			signals = append(signals, types.Signal{
				Symbol: symbol, Direction: types.Sell, TargetVolume: pos.AvailableVolume,
				Confidence: 1.0, StrategyName: "dual_moving_average",
				Reason: "Death Cross: fast MA crossed below slow MA",
			})
		}
	}

	return signals
}

// sma computes the simple moving average of closes[end-window:end].
func sma(closes []types.Money, window, end int) types.Money {
	start := end - window
	sum := types.ZeroMoney()
	for i := start; i < end; i++ {
		sum = sum.Add(closes[i])
	}
	return sum.Div(float64(window))
}
