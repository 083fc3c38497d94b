package matching

import (
	"testing"
	"time"

	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/order"
	"ashare-backtest/pkg/types"
)

func newOrder(symbol string, dir types.Direction, qty types.Shares) *order.Order {
	return &order.Order{
		OrderID:   "ord-1",
		Symbol:    symbol,
		Direction: dir,
		Kind:      types.Market,
		Quantity:  qty,
		Status:    order.Created,
		CreatedAt: time.Now(),
	}
}

// S1 — Single BUY fees.
func TestPlaceOrderSingleBuyFees(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)
	pos := &ledger.Position{Symbol: "600000.SH"}
	var trades []types.TradeRecord

	bar := types.Bar{Symbol: "600000.SH", Close: types.NewMoney(10.00), Volume: 10000}
	o := newOrder("600000.SH", types.Buy, 100)

	if err := e.PlaceOrder(o, bar, asset, pos, &trades, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != order.Filled {
		t.Errorf("status = %v, want Filled", o.Status)
	}
	if !o.AvgFillPx.Equal(types.NewMoney(10.01)) {
		t.Errorf("avg fill px = %s, want 10.01", o.AvgFillPx)
	}
	wantAvailable := types.NewMoney(1000000).Sub(types.NewMoney(1006.01))
	if !asset.AvailableCash.Equal(wantAvailable) {
		t.Errorf("available cash = %s, want %s", asset.AvailableCash, wantAvailable)
	}
	if pos.TotalVolume != 100 || pos.AvailableVolume != 0 {
		t.Errorf("position total=%d available=%d, want total=100 available=0", pos.TotalVolume, pos.AvailableVolume)
	}
	if !pos.AverageCost.Equal(types.NewMoney(10.01)) {
		t.Errorf("average cost = %s, want 10.01", pos.AverageCost)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade record, got %d", len(trades))
	}
}

// S2 — BUY then SELL after T+1.
func TestPlaceOrderBuyThenSellAfterSettlement(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)
	pos := &ledger.Position{Symbol: "600000.SH"}
	var trades []types.TradeRecord

	bar := types.Bar{Symbol: "600000.SH", Close: types.NewMoney(10.00), Volume: 10000}
	buy := newOrder("600000.SH", types.Buy, 100)
	if err := e.PlaceOrder(buy, bar, asset, pos, &trades, now); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	pos.SettleTPlus1()
	if pos.AvailableVolume != 100 {
		t.Fatalf("available volume after settlement = %d, want 100", pos.AvailableVolume)
	}

	sell := newOrder("600000.SH", types.Sell, 100)
	if err := e.PlaceOrder(sell, bar, asset, pos, &trades, now); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if !sell.AvgFillPx.Equal(types.NewMoney(9.99)) {
		t.Errorf("sell exec price = %s, want 9.99", sell.AvgFillPx)
	}
	if !pos.IsEmpty() {
		t.Errorf("position should be fully closed, got total=%d", pos.TotalVolume)
	}

	gotPnL := trades[1].RealizedPnL
	wantPnL := types.NewMoney(9.99).Sub(types.NewMoney(10.01)).Mul(100).Sub(trades[1].FeesTotal)
	if !gotPnL.Equal(wantPnL) {
		t.Errorf("realized pnl = %s, want %s", gotPnL, wantPnL)
	}
}

// S3 — T+1 blocks same-day sell.
func TestPlaceOrderTPlus1BlocksSameDaySell(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)
	pos := &ledger.Position{Symbol: "600000.SH"}
	var trades []types.TradeRecord

	bar := types.Bar{Symbol: "600000.SH", Close: types.NewMoney(10.00), Volume: 10000}
	buy := newOrder("600000.SH", types.Buy, 100)
	if err := e.PlaceOrder(buy, bar, asset, pos, &trades, now); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	assetBefore := *asset
	posBefore := *pos

	sell := newOrder("600000.SH", types.Sell, 100)
	if err := e.PlaceOrder(sell, bar, asset, pos, &trades, now); err == nil {
		t.Fatal("expected insufficient-position rejection before settlement")
	}
	if sell.Status != order.Rejected {
		t.Errorf("status = %v, want Rejected", sell.Status)
	}
	if *asset != assetBefore {
		t.Error("asset ledger mutated on a rejected sell")
	}
	if *pos != posBefore {
		t.Error("position mutated on a rejected sell")
	}
}

// S4 — Liquidity cap partial fill.
func TestPlaceOrderLiquidityCapPartialFill(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(10000000), now)
	pos := &ledger.Position{Symbol: "600000.SH"}
	var trades []types.TradeRecord

	bar := types.Bar{Symbol: "600000.SH", Close: types.NewMoney(10.00), Volume: 10000}
	o := newOrder("600000.SH", types.Buy, 1500)

	if err := e.PlaceOrder(o, bar, asset, pos, &trades, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != order.PartialCanceled {
		t.Errorf("status = %v, want PartialCanceled", o.Status)
	}
	if o.Filled != 1000 {
		t.Errorf("filled = %d, want 1000", o.Filled)
	}
	if pos.TotalVolume != 1000 {
		t.Errorf("position total = %d, want 1000", pos.TotalVolume)
	}
}

// S6 — Insufficient liquidity.
func TestPlaceOrderInsufficientLiquidity(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)
	pos := &ledger.Position{Symbol: "600000.SH"}
	var trades []types.TradeRecord

	assetBefore := *asset
	bar := types.Bar{Symbol: "600000.SH", Close: types.NewMoney(10.00), Volume: 500}
	o := newOrder("600000.SH", types.Buy, 100)

	if err := e.PlaceOrder(o, bar, asset, pos, &trades, now); err == nil {
		t.Fatal("expected insufficient-liquidity rejection")
	}
	if o.Status != order.Rejected {
		t.Errorf("status = %v, want Rejected", o.Status)
	}
	if *asset != assetBefore {
		t.Error("ledger mutated on a rejected order")
	}
	if len(trades) != 0 {
		t.Error("no trade should be recorded on rejection")
	}
}
