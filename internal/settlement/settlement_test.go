package settlement

import (
	"testing"
	"time"

	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/order"
	"ashare-backtest/pkg/types"
)

func TestRunCancelsOpenBuyAndUnfreezesCash(t *testing.T) {
	t.Parallel()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)
	_ = asset.Freeze(types.NewMoney(5000), now)

	o := &order.Order{
		OrderID: "ord-1", Symbol: "600000.SH", Direction: types.Buy, Kind: types.Limit,
		Price: types.NewMoney(10), Quantity: 500, Filled: 0, Status: order.Submitted, CreatedAt: now,
	}
	orders := map[string]*order.Order{o.OrderID: o}
	positions := map[string]*ledger.Position{}

	r := NewRoutine()
	r.Run(orders, positions, asset, now)

	if o.Status != order.Canceled {
		t.Errorf("status = %v, want Canceled", o.Status)
	}
	if !asset.FrozenCash.IsZero() {
		t.Errorf("expected frozen cash fully unfrozen (capped at prior freeze), got %s", asset.FrozenCash)
	}
}

func TestRunPromotesPositionsToAvailable(t *testing.T) {
	t.Parallel()
	now := time.Now()
	pos := &ledger.Position{Symbol: "600000.SH"}
	pos.OnBuyFilled(100, types.NewMoney(10))
	positions := map[string]*ledger.Position{"600000.SH": pos}
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)

	r := NewRoutine()
	r.Run(map[string]*order.Order{}, positions, asset, now)

	if pos.AvailableVolume != pos.TotalVolume {
		t.Errorf("available=%d total=%d after settlement", pos.AvailableVolume, pos.TotalVolume)
	}
}

func TestRunPartialFilledBecomesPartialCanceled(t *testing.T) {
	t.Parallel()
	now := time.Now()
	asset := ledger.NewAsset("acct-1", types.NewMoney(1000000), now)

	o := &order.Order{
		OrderID: "ord-2", Symbol: "600000.SH", Direction: types.Sell, Kind: types.Limit,
		Price: types.NewMoney(10), Quantity: 500, Filled: 200, Status: order.PartialFilled, CreatedAt: now,
	}
	orders := map[string]*order.Order{o.OrderID: o}

	r := NewRoutine()
	r.Run(orders, map[string]*ledger.Position{}, asset, now)

	if o.Status != order.PartialCanceled {
		t.Errorf("status = %v, want PartialCanceled", o.Status)
	}
}
