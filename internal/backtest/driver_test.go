package backtest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"ashare-backtest/internal/marketdata"
	"ashare-backtest/internal/matching"
	"ashare-backtest/internal/strategy"
	"ashare-backtest/pkg/types"
)

func defaultMarketRules() (float64, float64, float64, int64, matching.FeeSchedule) {
	e := matching.NewEngine()
	return e.SlippageBuy, e.SlippageSell, e.CapacityLimitRatio, e.LotSize, e.Fees
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func goldenCrossBars(symbol string, start time.Time) []types.Bar {
	var bars []types.Bar
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 10
	}
	closes = append(closes, 20, 20, 20, 20, 20)
	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: symbol, Timeframe: types.Timeframe1Day,
			Timestamp: start.AddDate(0, 0, i),
			Open:      types.NewMoney(c), High: types.NewMoney(c), Low: types.NewMoney(c), Close: types.NewMoney(c),
			Volume: 10000,
		})
	}
	return bars
}

func TestDriverRunExecutesGoldenCrossBuy(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := goldenCrossBars("600000.SH", start)

	market := marketdata.NewMemory()
	if err := market.LoadBars("600000.SH", bars); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	strat := strategy.NewDualMovingAverage(testLogger())
	slipBuy, slipSell, capRatio, lotSize, fees := defaultMarketRules()
	cfg := Config{
		AccountID:      "acct-1",
		InitialCapital: types.NewMoney(1000000),
		Universe:       []string{"600000.SH"},
		Start:          start,
		End:            bars[len(bars)-1].Timestamp,

		SlippageBuy:        slipBuy,
		SlippageSell:       slipSell,
		CapacityLimitRatio: capRatio,
		LotSize:            lotSize,
		Fees:               fees,
	}
	d := New(cfg, market, strat, testLogger())

	report, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TradeCount == 0 {
		t.Error("expected at least one executed trade after a golden cross")
	}
	if !report.FinalCapital.GT(types.ZeroMoney()) {
		t.Error("expected positive final capital")
	}
}

func TestDriverRunRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	market := marketdata.NewMemory()
	strat := strategy.NewDualMovingAverage(testLogger())
	slipBuy, slipSell, capRatio, lotSize, fees := defaultMarketRules()
	cfg := Config{
		AccountID: "acct-1", InitialCapital: types.NewMoney(1000000),
		Universe: []string{"600000.SH"}, Start: start, End: start.AddDate(0, 1, 0),

		SlippageBuy:        slipBuy,
		SlippageSell:       slipSell,
		CapacityLimitRatio: capRatio,
		LotSize:            lotSize,
		Fees:               fees,
	}
	d := New(cfg, market, strat, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Run(ctx); err == nil {
		t.Error("expected context cancellation error")
	}
}
