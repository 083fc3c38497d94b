// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the backtest engine — money and
// share-count arithmetic, bars, order/position/asset field shapes, snapshots
// and trade records. It has no dependencies on internal packages, so it can
// be imported by any layer.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Money
// ————————————————————————————————————————————————————————————————————————

// internalScale is the number of fractional digits money is rounded to after
// every arithmetic operation. Display formatting rounds further to 2 digits.
const internalScale = 4

// displayScale is the number of fractional digits shown by String().
const displayScale = 2

// Money is a decimal-safe monetary amount. Values are stored with
// internalScale fractional digits of precision to absorb fee/rate
// multiplication without cent-level drift across many operations; String()
// rounds to displayScale for reporting.
type Money struct {
	d decimal.Decimal
}

// ZeroMoney is the additive identity.
func ZeroMoney() Money { return Money{d: decimal.Zero} }

// NewMoney constructs Money from a float64 (e.g. a literal in a config file
// or test). Prefer MoneyFromString for values read from untrusted input.
func NewMoney(v float64) Money {
	return Money{d: decimal.NewFromFloat(v).Round(internalScale)}
}

// MoneyFromString parses a decimal string into Money.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d: d.Round(internalScale)}, nil
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d).Round(internalScale)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d).Round(internalScale)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// Mul multiplies by a plain rate (e.g. exec_price, or a fee percentage).
func (m Money) Mul(rate float64) Money {
	return Money{d: m.d.Mul(decimal.NewFromFloat(rate)).Round(internalScale)}
}

// MulMoney multiplies two Money values. The engine's own price * volume
// products use Mul(float64(volume)) instead.
func (m Money) MulMoney(o Money) Money {
	return Money{d: m.d.Mul(o.d).Round(internalScale)}
}

// Div divides by a plain scalar divisor.
func (m Money) Div(divisor float64) Money {
	if divisor == 0 {
		return m
	}
	return Money{d: m.d.Div(decimal.NewFromFloat(divisor)).Round(internalScale)}
}

// eqTolerance is the absolute tolerance for Equal, matching the ±0.01
// comparison tolerance spec'd for money throughout the engine.
var eqTolerance = decimal.NewFromFloat(0.01)

func (m Money) Equal(o Money) bool       { return m.d.Sub(o.d).Abs().LessThanOrEqual(eqTolerance) }
func (m Money) GT(o Money) bool          { return m.d.GreaterThan(o.d) }
func (m Money) GTE(o Money) bool         { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) LT(o Money) bool          { return m.d.LessThan(o.d) }
func (m Money) LTE(o Money) bool         { return m.d.LessThanOrEqual(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) Float64() float64         { f, _ := m.d.Float64(); return f }
func (m Money) String() string           { return m.d.Round(displayScale).StringFixed(displayScale) }
func (m Money) Decimal() decimal.Decimal { return m.d }

// MaxMoney returns the larger of two Money values.
func MaxMoney(a, b Money) Money {
	if a.GT(b) {
		return a
	}
	return b
}

// MarshalJSON encodes Money as its underlying decimal string, so snapshot
// persistence and the live-adapter's JSON wire format never lose precision
// to a float round-trip. (The CSV trade log uses String(), rounded to
// displayScale digits.)
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

// UnmarshalJSON decodes Money from a decimal JSON number or string.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}

// ————————————————————————————————————————————————————————————————————————
// Shares / lot size
// ————————————————————————————————————————————————————————————————————————

// Shares is a non-negative integer share count.
type Shares int64

// RoundDownToLot rounds down to the nearest multiple of lot (the A-share
// "lot" is 100 shares for BUY orders).
func (s Shares) RoundDownToLot(lot int64) Shares {
	if lot <= 0 {
		return s
	}
	return Shares((int64(s) / lot) * lot)
}

// IsLotMultiple reports whether s is an exact multiple of lot.
func (s Shares) IsLotMultiple(lot int64) bool {
	if lot <= 0 {
		return true
	}
	return int64(s)%lot == 0
}

// ————————————————————————————————————————————————————————————————————————
// Bar
// ————————————————————————————————————————————————————————————————————————

// Timeframe is the bar's sampling period.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe30Min Timeframe = "30m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe1Day  Timeframe = "1d"
)

// Bar is an OHLCV record keyed by (symbol, timeframe, timestamp). Bars are
// front-adjusted for splits/dividends and immutable once loaded.
type Bar struct {
	Symbol    string
	Timeframe Timeframe
	Timestamp time.Time
	Open      Money
	High      Money
	Low       Money
	Close     Money
	Volume    int64
}

// Validate checks the invariants spec'd for a Bar: low <= open,close <= high
// and volume >= 0.
func (b Bar) Validate() error {
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume %d", b.Symbol, b.Timestamp, b.Volume)
	}
	if b.Low.GT(b.Open) || b.Open.GT(b.High) {
		return fmt.Errorf("bar %s@%s: open %s out of [low,high]=[%s,%s]", b.Symbol, b.Timestamp, b.Open, b.Low, b.High)
	}
	if b.Low.GT(b.Close) || b.Close.GT(b.High) {
		return fmt.Errorf("bar %s@%s: close %s out of [low,high]=[%s,%s]", b.Symbol, b.Timestamp, b.Close, b.Low, b.High)
	}
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Direction / order kind
// ————————————————————————————————————————————————————————————————————————

// Direction is BUY or SELL.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// OrderKind distinguishes limit from market orders.
type OrderKind string

const (
	Limit  OrderKind = "LIMIT"
	Market OrderKind = "MARKET"
)

// ————————————————————————————————————————————————————————————————————————
// Snapshots, trades, signals
// ————————————————————————————————————————————————————————————————————————

// DailySnapshot is the end-of-day portfolio record the backtest driver
// captures once per simulated day.
type DailySnapshot struct {
	Date          time.Time
	TotalAsset    Money
	AvailableCash Money
	MarketValue   Money
	PnLToday      Money
	ReturnToday   float64
}

// TradeRecord is a single executed fill.
type TradeRecord struct {
	Symbol      string
	Direction   Direction
	ExecutedAt  time.Time
	Price       Money
	Volume      Shares
	FeesTotal   Money
	RealizedPnL Money
	Remark      string
}

// Signal is emitted by a Strategy for the driver to normalize into an order.
type Signal struct {
	Symbol       string
	Direction    Direction
	TargetVolume Shares
	Confidence   float64
	StrategyName string
	Reason       string
}
