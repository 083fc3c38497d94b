// Package matching implements the per-order, single-bar-atomic fill engine:
// pricing, liquidity-capacity capping, fee computation, and the BUY/SELL
// paths that mutate the asset ledger, a position, the order, and the trade
// log as one logical transaction.
package matching

import (
	"time"

	"ashare-backtest/internal/errs"
	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/order"
	"ashare-backtest/pkg/types"
)

// Engine holds the A-share market rules (slippage, capacity, fee schedule,
// lot size) and performs atomic fills. It is the sole mutator of the
// asset/position/order/trade-log collections for the duration of a
// PlaceOrder call.
type Engine struct {
	SlippageBuy        float64
	SlippageSell       float64
	CapacityLimitRatio float64
	LotSize            int64
	Fees               FeeSchedule
}

// NewEngine builds an Engine with the A-share default constants.
func NewEngine() *Engine {
	return &Engine{
		SlippageBuy:        0.001,
		SlippageSell:       0.001,
		CapacityLimitRatio: 0.10,
		LotSize:            100,
		Fees:               DefaultFeeSchedule(),
	}
}

// assetSnapshot and positionSnapshot capture enough state to roll back a
// partially-applied fill if an unexpected failure occurs after the
// pre-conditions have passed but before the transaction completes.
type assetSnapshot ledger.Asset
type positionSnapshot ledger.Position

func snapshotAsset(a *ledger.Asset) assetSnapshot          { return assetSnapshot(*a) }
func snapshotPosition(p *ledger.Position) positionSnapshot { return positionSnapshot(*p) }

func restoreAsset(a *ledger.Asset, snap assetSnapshot)          { *a = ledger.Asset(snap) }
func restorePosition(p *ledger.Position, snap positionSnapshot) { *p = ledger.Position(snap) }

// PlaceOrder fills o against bar, mutating asset, pos (the position for
// o.Symbol; callers must supply a zero-value *ledger.Position for a BUY
// opening a new symbol), and appending to trades on every executed fill.
// It either fully succeeds (order reaches FILLED or PARTIAL_CANCELED) or
// fails leaving asset/pos/trades exactly as they were (order transitions
// to REJECTED, which is not considered a rollback since REJECTED never
// mutated shared state).
func (e *Engine) PlaceOrder(o *order.Order, bar types.Bar, asset *ledger.Asset, pos *ledger.Position, trades *[]types.TradeRecord, now time.Time) error {
	if err := o.Transition(order.Submitted, now); err != nil {
		return err
	}

	execPrice := e.execPrice(bar.Close, o.Direction)
	maxFill := e.maxFillVolume(bar.Volume)
	if maxFill < e.LotSize {
		return e.reject(o, now, "insufficient liquidity")
	}

	fillVolume := o.Quantity
	if fillVolume > types.Shares(maxFill) {
		fillVolume = types.Shares(maxFill)
	}

	if o.Direction == types.Buy {
		return e.placeBuy(o, execPrice, fillVolume, asset, pos, trades, now)
	}
	return e.placeSell(o, execPrice, fillVolume, asset, pos, trades, now)
}

func (e *Engine) execPrice(close types.Money, dir types.Direction) types.Money {
	if dir == types.Buy {
		return close.Mul(1 + e.SlippageBuy)
	}
	return close.Mul(1 - e.SlippageSell)
}

// maxFillVolume is 10% of the bar's volume, rounded down to a lot.
func (e *Engine) maxFillVolume(barVolume int64) int64 {
	raw := int64(float64(barVolume) * e.CapacityLimitRatio)
	return (raw / e.LotSize) * e.LotSize
}

func (e *Engine) reject(o *order.Order, now time.Time, reason string) error {
	o.Reason = reason
	_ = o.Transition(order.Rejected, now)
	return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: &errs.ValidationError{Symbol: o.Symbol, Reason: reason}}
}

func (e *Engine) placeBuy(o *order.Order, execPrice types.Money, fillVolume types.Shares, asset *ledger.Asset, pos *ledger.Position, trades *[]types.TradeRecord, now time.Time) error {
	amount := execPrice.Mul(float64(fillVolume))
	fees := e.Fees.Compute(amount, types.Buy)
	estimatedTotal := amount.Add(fees.Commission).Add(fees.TransferFee)

	if estimatedTotal.GT(asset.AvailableCash) {
		return e.reject(o, now, "insufficient funds")
	}

	assetSnap := snapshotAsset(asset)
	posSnap := snapshotPosition(pos)

	if err := asset.Freeze(estimatedTotal, now); err != nil {
		return e.reject(o, now, "insufficient funds")
	}
	if err := o.ApplyFill(fillVolume, execPrice, now); err != nil {
		restoreAsset(asset, assetSnap)
		return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: err}
	}
	pos.Symbol = o.Symbol
	pos.OnBuyFilled(fillVolume, execPrice)

	if err := asset.DeductFrozen(estimatedTotal, now); err != nil {
		restoreAsset(asset, assetSnap)
		restorePosition(pos, posSnap)
		return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: err}
	}
	asset.DeductFees(fees.Total(), now)

	*trades = append(*trades, types.TradeRecord{
		Symbol: o.Symbol, Direction: types.Buy, ExecutedAt: now,
		Price: execPrice, Volume: fillVolume, FeesTotal: fees.Total(), RealizedPnL: types.ZeroMoney(),
	})

	return e.closeTail(o, fillVolume, now)
}

func (e *Engine) placeSell(o *order.Order, execPrice types.Money, fillVolume types.Shares, asset *ledger.Asset, pos *ledger.Position, trades *[]types.TradeRecord, now time.Time) error {
	if pos == nil || fillVolume > pos.AvailableVolume {
		return e.reject(o, now, "insufficient position")
	}

	amount := execPrice.Mul(float64(fillVolume))
	fees := e.Fees.Compute(amount, types.Sell)
	avgCostBeforeSell := pos.AverageCost
	realizedPnL := execPrice.Sub(avgCostBeforeSell).Mul(float64(fillVolume)).Sub(fees.Total())

	assetSnap := snapshotAsset(asset)
	posSnap := snapshotPosition(pos)

	if err := o.ApplyFill(fillVolume, execPrice, now); err != nil {
		return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: err}
	}
	if err := pos.OnSellFilled(fillVolume); err != nil {
		restorePosition(pos, posSnap)
		return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: err}
	}

	proceeds := amount.Sub(fees.Total())
	if err := asset.Deposit(proceeds, now); err != nil {
		restoreAsset(asset, assetSnap)
		restorePosition(pos, posSnap)
		return &errs.OrderSubmitError{OrderID: o.OrderID, Cause: err}
	}
	asset.DeductFees(fees.Total(), now)

	*trades = append(*trades, types.TradeRecord{
		Symbol: o.Symbol, Direction: types.Sell, ExecutedAt: now,
		Price: execPrice, Volume: fillVolume, FeesTotal: fees.Total(), RealizedPnL: realizedPnL,
	})

	return e.closeTail(o, fillVolume, now)
}

// closeTail transitions a capacity-capped order to PARTIAL_CANCELED: the
// unfilled tail is discarded within this bar rather than queued, per the
// engine's single-bar atomicity.
func (e *Engine) closeTail(o *order.Order, fillVolume types.Shares, now time.Time) error {
	if fillVolume < o.Quantity && o.Remaining() > 0 {
		return o.Transition(order.PartialCanceled, now)
	}
	return nil
}
