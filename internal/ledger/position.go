// Package ledger owns the per-symbol Position and the account-level Asset:
// the two pieces of mutable state the matching engine and daily settlement
// operate on. Both enforce their invariants on every mutation — rejecting
// the call without mutating state — rather than trusting callers to have
// checked first.
package ledger

import (
	"ashare-backtest/internal/errs"
	"ashare-backtest/pkg/types"
)

// Position is a single symbol's holding. AvailableVolume trails
// TotalVolume by one settlement cycle (T+1): a BUY fill adds to total but
// not available; only SettleTPlus1 promotes it.
type Position struct {
	Symbol           string
	TotalVolume      types.Shares
	AvailableVolume  types.Shares
	AverageCost      types.Money
}

// IsEmpty reports whether the position holds no shares and should be
// dropped from the driver's positions map.
func (p *Position) IsEmpty() bool {
	return p.TotalVolume == 0
}

// OnBuyFilled folds a BUY fill into the position's volume-weighted average
// cost. AvailableVolume is deliberately left untouched: bought shares are
// not sellable until the next SettleTPlus1.
func (p *Position) OnBuyFilled(volume types.Shares, price types.Money) {
	newTotal := p.TotalVolume + volume
	priorNotional := p.AverageCost.Mul(float64(p.TotalVolume))
	fillNotional := price.Mul(float64(volume))
	p.AverageCost = priorNotional.Add(fillNotional).Div(float64(newTotal))
	p.TotalVolume = newTotal
}

// OnSellFilled removes volume from both total and available holdings.
// Average cost is unaffected by sells except that it resets to zero once
// the position is fully closed.
func (p *Position) OnSellFilled(volume types.Shares) error {
	if volume <= 0 || volume > p.AvailableVolume {
		return &errs.ValidationError{Symbol: p.Symbol, Reason: "sell volume exceeds available volume"}
	}
	p.TotalVolume -= volume
	p.AvailableVolume -= volume
	if p.TotalVolume == 0 {
		p.AverageCost = types.ZeroMoney()
	}
	return nil
}

// SettleTPlus1 promotes all held shares to sellable. Called once per
// simulated day, before that day's strategy tick.
func (p *Position) SettleTPlus1() {
	p.AvailableVolume = p.TotalVolume
}
