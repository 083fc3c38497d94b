// Package settlement implements the daily close routine: cancelling any
// surviving open orders, unfreezing their reserved cash, and promoting
// positions across the T+1 boundary. Because the matching engine is
// single-bar atomic, no open orders actually survive into settlement in
// the default configuration — this step exists so that alternative
// matching policies (limit orders resting across bars) stay correct.
package settlement

import (
	"time"

	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/matching"
	"ashare-backtest/internal/order"
	"ashare-backtest/pkg/types"
)

// Routine runs the end-of-day close against the driver's owned state.
type Routine struct {
	Fees matching.FeeSchedule
}

// NewRoutine builds a Routine using the default fee schedule, matching the
// engine's estimated-fee unfreeze calculation.
func NewRoutine() *Routine {
	return &Routine{Fees: matching.DefaultFeeSchedule()}
}

// Run executes settlement for one simulated day: cancels every order still
// SUBMITTED or PARTIAL_FILLED (unfreezing any reserved BUY cash for its
// unfilled remainder), then promotes every position's available volume to
// its total volume.
func (r *Routine) Run(orders map[string]*order.Order, positions map[string]*ledger.Position, asset *ledger.Asset, at time.Time) {
	r.cancelOpenOrders(orders, asset, at)
	r.settlePositions(positions)
}

func (r *Routine) cancelOpenOrders(orders map[string]*order.Order, asset *ledger.Asset, at time.Time) {
	for _, o := range orders {
		if o.Status != order.Submitted && o.Status != order.PartialFilled {
			continue
		}

		if o.Direction == types.Buy {
			remaining := o.Remaining()
			if remaining > 0 && o.Price.IsPositive() {
				notional := o.Price.Mul(float64(remaining))
				estFees := r.Fees.Compute(notional, types.Buy)
				toUnfreeze := notional.Add(estFees.Total())
				if toUnfreeze.GT(asset.FrozenCash) {
					toUnfreeze = asset.FrozenCash
				}
				if toUnfreeze.IsPositive() {
					_ = asset.Unfreeze(toUnfreeze, at)
				}
			}
		}

		next := order.Canceled
		if o.Status == order.PartialFilled {
			next = order.PartialCanceled
		}
		_ = o.Transition(next, at)
	}
}

func (r *Routine) settlePositions(positions map[string]*ledger.Position) {
	for _, p := range positions {
		p.SettleTPlus1()
	}
}
