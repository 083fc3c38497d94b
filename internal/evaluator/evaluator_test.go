package evaluator

import (
	"testing"
	"time"

	"ashare-backtest/pkg/types"
)

func TestEvaluateEmptySnapshotsReturnsAllZero(t *testing.T) {
	t.Parallel()
	r := Evaluate(nil, nil, types.NewMoney(1000000), time.Now(), time.Now())
	if !r.FinalCapital.Equal(types.NewMoney(1000000)) {
		t.Errorf("final capital = %s, want initial capital", r.FinalCapital)
	}
	if r.TotalReturn != 0 || r.MaxDrawdown != 0 || r.WinRate != 0 {
		t.Error("expected all-zero metrics for empty snapshots")
	}
}

func TestEvaluateTotalAndAnnualizedReturn(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 365)

	snapshots := []types.DailySnapshot{
		{Date: start, TotalAsset: types.NewMoney(1000000)},
		{Date: end, TotalAsset: types.NewMoney(1100000)},
	}

	r := Evaluate(snapshots, nil, types.NewMoney(1000000), start, end)
	if r.TotalReturn < 0.0999 || r.TotalReturn > 0.1001 {
		t.Errorf("total return = %v, want ~0.10", r.TotalReturn)
	}
	if r.AnnualizedReturn < 0.0999 || r.AnnualizedReturn > 0.1001 {
		t.Errorf("annualized return = %v, want ~0.10 over exactly 365 days", r.AnnualizedReturn)
	}
}

func TestEvaluateMaxDrawdown(t *testing.T) {
	t.Parallel()
	start := time.Now()
	snapshots := []types.DailySnapshot{
		{Date: start, TotalAsset: types.NewMoney(1000000)},
		{Date: start.AddDate(0, 0, 1), TotalAsset: types.NewMoney(1200000)},
		{Date: start.AddDate(0, 0, 2), TotalAsset: types.NewMoney(900000)},
		{Date: start.AddDate(0, 0, 3), TotalAsset: types.NewMoney(1100000)},
	}

	r := Evaluate(snapshots, nil, types.NewMoney(1000000), start, start.AddDate(0, 0, 3))
	want := (1200000.0 - 900000.0) / 1200000.0
	if r.MaxDrawdown < want-0.001 || r.MaxDrawdown > want+0.001 {
		t.Errorf("max drawdown = %v, want %v", r.MaxDrawdown, want)
	}
}

func TestEvaluateWinRateOnlyCountsSells(t *testing.T) {
	t.Parallel()
	trades := []types.TradeRecord{
		{Direction: types.Buy, RealizedPnL: types.ZeroMoney()},
		{Direction: types.Sell, RealizedPnL: types.NewMoney(10)},
		{Direction: types.Sell, RealizedPnL: types.NewMoney(-5)},
		{Direction: types.Sell, RealizedPnL: types.NewMoney(20)},
	}
	snapshots := []types.DailySnapshot{{Date: time.Now(), TotalAsset: types.NewMoney(1000000)}}

	r := Evaluate(snapshots, trades, types.NewMoney(1000000), time.Now(), time.Now())
	want := 2.0 / 3.0
	if r.WinRate < want-0.001 || r.WinRate > want+0.001 {
		t.Errorf("win rate = %v, want %v", r.WinRate, want)
	}
	if r.TradeCount != 4 {
		t.Errorf("trade count = %d, want 4", r.TradeCount)
	}
}

func TestEvaluateNoSellsYieldsZeroWinRate(t *testing.T) {
	t.Parallel()
	trades := []types.TradeRecord{{Direction: types.Buy, RealizedPnL: types.ZeroMoney()}}
	snapshots := []types.DailySnapshot{{Date: time.Now(), TotalAsset: types.NewMoney(1000000)}}

	r := Evaluate(snapshots, trades, types.NewMoney(1000000), time.Now(), time.Now())
	if r.WinRate != 0 {
		t.Errorf("win rate = %v, want 0 with no sells", r.WinRate)
	}
}
