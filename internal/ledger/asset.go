package ledger

import (
	"time"

	"ashare-backtest/internal/errs"
	"ashare-backtest/pkg/types"
)

// Asset is the account-level cash ledger. TotalAsset is authoritative only
// at snapshot time (available + frozen + mark-to-market); intra-fill
// mutations of TotalAsset are a bookkeeping convenience that the driver's
// snapshot formula reconciles at end of day.
type Asset struct {
	AccountID     string
	TotalAsset    types.Money
	AvailableCash types.Money
	FrozenCash    types.Money
	UpdatedAt     time.Time
}

// NewAsset creates a ledger with the given starting cash, fully available
// and unfrozen.
func NewAsset(accountID string, initialCapital types.Money, at time.Time) *Asset {
	return &Asset{
		AccountID:     accountID,
		TotalAsset:    initialCapital,
		AvailableCash: initialCapital,
		UpdatedAt:     at,
	}
}

// Freeze moves a from available to frozen cash. Fails without mutation if
// a is non-positive or exceeds available cash.
func (a *Asset) Freeze(amount types.Money, at time.Time) error {
	if !amount.IsPositive() {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "freeze amount must be positive"}
	}
	if amount.GT(a.AvailableCash) {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "freeze amount exceeds available cash"}
	}
	a.AvailableCash = a.AvailableCash.Sub(amount)
	a.FrozenCash = a.FrozenCash.Add(amount)
	a.UpdatedAt = at
	return nil
}

// Unfreeze moves amount back from frozen to available cash.
func (a *Asset) Unfreeze(amount types.Money, at time.Time) error {
	if !amount.IsPositive() {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "unfreeze amount must be positive"}
	}
	if amount.GT(a.FrozenCash) {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "unfreeze amount exceeds frozen cash"}
	}
	a.FrozenCash = a.FrozenCash.Sub(amount)
	a.AvailableCash = a.AvailableCash.Add(amount)
	a.UpdatedAt = at
	return nil
}

// DeductFrozen removes amount from frozen cash without touching
// TotalAsset: the cash has been converted into a non-cash holding that is
// accounted for elsewhere (the position just bought).
func (a *Asset) DeductFrozen(amount types.Money, at time.Time) error {
	if !amount.IsPositive() {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "deduct amount must be positive"}
	}
	if amount.GT(a.FrozenCash) {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "deduct amount exceeds frozen cash"}
	}
	a.FrozenCash = a.FrozenCash.Sub(amount)
	a.UpdatedAt = at
	return nil
}

// Deposit adds amount to both available cash and total asset (e.g. SELL
// proceeds net of fees).
func (a *Asset) Deposit(amount types.Money, at time.Time) error {
	if !amount.IsPositive() {
		return &errs.ValidationError{Symbol: a.AccountID, Reason: "deposit amount must be positive"}
	}
	a.AvailableCash = a.AvailableCash.Add(amount)
	a.TotalAsset = a.TotalAsset.Add(amount)
	a.UpdatedAt = at
	return nil
}

// DeductFees subtracts amount from TotalAsset only, for the fee-side
// bookkeeping that the BUY/SELL paths perform mid-fill. The snapshot
// formula in the driver reconciles TotalAsset at end of day regardless.
func (a *Asset) DeductFees(amount types.Money, at time.Time) {
	a.TotalAsset = a.TotalAsset.Sub(amount)
	a.UpdatedAt = at
}

// Snapshot recomputes TotalAsset from available + frozen + the supplied
// mark-to-market value, making the snapshot formula authoritative per the
// engine's bookkeeping rule.
func (a *Asset) Snapshot(marketValue types.Money, at time.Time) {
	a.TotalAsset = a.AvailableCash.Add(a.FrozenCash).Add(marketValue)
	a.UpdatedAt = at
}
