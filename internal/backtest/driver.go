// Package backtest wires the matching engine, settlement routine, market
// data source, and a strategy into the deterministic day-by-day loop that
// drives the trading simulation. New() wires every subsystem, Run() drives
// it to completion (there is no Stop() — a backtest isn't long-lived like a
// live bot, it runs start..end and returns a report).
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"ashare-backtest/internal/errs"
	"ashare-backtest/internal/evaluator"
	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/marketdata"
	"ashare-backtest/internal/matching"
	"ashare-backtest/internal/order"
	"ashare-backtest/internal/risk"
	"ashare-backtest/internal/settlement"
	"ashare-backtest/internal/strategy"
	"ashare-backtest/pkg/types"
)

// clockHour is the simulated time-of-day each bar is evaluated at: the
// daily clock advances to date @ 15:00 local before any signal is handled.
const clockHour = 15

// Config parameterizes a single backtest run.
type Config struct {
	AccountID      string
	InitialCapital types.Money
	Universe       []string // iteration order is authoritative for determinism
	Start          time.Time
	End            time.Time
	Location       *time.Location

	// Market rules and fee schedule, sourced from config.Config so that
	// config.yaml's market.* / fees.* options actually reach the matching
	// engine and settlement routine instead of being decorative.
	SlippageBuy        float64
	SlippageSell       float64
	CapacityLimitRatio float64
	LotSize            int64
	Fees               matching.FeeSchedule
}

// Driver runs the deterministic backtest loop. It exclusively owns the
// asset ledger, positions map, orders map, and trade log; the strategy and
// risk gate only ever see read-only views.
type Driver struct {
	cfg      Config
	market   *marketdata.Memory
	strategy strategy.Strategy
	gate     *risk.Gate
	engine   *matching.Engine
	settler  *settlement.Routine
	logger   *slog.Logger

	asset     *ledger.Asset
	positions map[string]*ledger.Position
	orders    map[string]*order.Order
	trades    []types.TradeRecord
	snapshots []types.DailySnapshot
}

// New wires a Driver from its subsystems. market must already have bars
// loaded for every symbol in cfg.Universe.
func New(cfg Config, market *marketdata.Memory, strat strategy.Strategy, logger *slog.Logger) *Driver {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	now := cfg.Start
	engine := &matching.Engine{
		SlippageBuy:        cfg.SlippageBuy,
		SlippageSell:       cfg.SlippageSell,
		CapacityLimitRatio: cfg.CapacityLimitRatio,
		LotSize:            cfg.LotSize,
		Fees:               cfg.Fees,
	}
	return &Driver{
		cfg:       cfg,
		market:    market,
		strategy:  strat,
		gate:      risk.NewGate(risk.DefaultPolicies()...),
		engine:    engine,
		settler:   &settlement.Routine{Fees: cfg.Fees},
		logger:    logger.With("component", "backtest_driver"),
		asset:     ledger.NewAsset(cfg.AccountID, cfg.InitialCapital, now),
		positions: make(map[string]*ledger.Position),
		orders:    make(map[string]*order.Order),
	}
}

// Trades returns the full trade log accumulated over the run so far.
func (d *Driver) Trades() []types.TradeRecord { return d.trades }

// Snapshots returns the daily snapshot history accumulated over the run so far.
func (d *Driver) Snapshots() []types.DailySnapshot { return d.snapshots }

// Run executes the full [start, end] date range and returns the
// performance report. It never aborts on a per-order rejection — those
// are logged and the loop advances to the next signal.
func (d *Driver) Run(ctx context.Context) (evaluator.Report, error) {
	for date := d.cfg.Start; !date.After(d.cfg.End); date = date.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return evaluator.Report{}, ctx.Err()
		default:
		}

		clock := time.Date(date.Year(), date.Month(), date.Day(), clockHour, 0, 0, 0, d.cfg.Location)
		d.settler.Run(d.orders, d.positions, d.asset, clock)

		bars := make(map[string][]types.Bar, len(d.cfg.Universe))
		currentPrice := make(map[string]types.Money, len(d.cfg.Universe))
		currentVolume := make(map[string]int64, len(d.cfg.Universe))
		for _, symbol := range d.cfg.Universe {
			recent, err := d.market.RecentBars(symbol, types.Timeframe1Day, clock, 100)
			if err != nil {
				return evaluator.Report{}, fmt.Errorf("recent bars for %s: %w", symbol, err)
			}
			if len(recent) == 0 {
				continue
			}
			bars[symbol] = recent
			last := recent[len(recent)-1]
			currentPrice[symbol] = last.Close
			currentVolume[symbol] = last.Volume
		}

		signals := d.strategy.GenerateSignals(d.cfg.Universe, bars, d.positions)

		for _, sig := range signals {
			d.handleSignal(sig, currentPrice, currentVolume, clock)
		}

		d.cancelAllOpenOrders(clock)
		d.recordSnapshot(clock, currentPrice)
		incDaysProcessed()
	}

	report := evaluator.Evaluate(d.snapshots, d.trades, d.cfg.InitialCapital, d.cfg.Start, d.cfg.End)
	return report, nil
}

func (d *Driver) handleSignal(sig types.Signal, currentPrice map[string]types.Money, currentVolume map[string]int64, clock time.Time) {
	price, ok := currentPrice[sig.Symbol]
	if !ok {
		return
	}

	volume := sig.TargetVolume
	if sig.Direction == types.Buy {
		volume = volume.RoundDownToLot(d.engine.LotSize)
		if volume < types.Shares(d.engine.LotSize) {
			return
		}
	}
	if volume <= 0 {
		return
	}

	o := &order.Order{
		OrderID:   uuid.NewString(),
		Symbol:    sig.Symbol,
		Direction: sig.Direction,
		Kind:      types.Market,
		Price:     price,
		Quantity:  volume,
		Status:    order.Created,
		CreatedAt: clock,
	}

	if err := d.gate.Check(o); err != nil {
		d.logger.Info("order rejected by risk gate", "symbol", o.Symbol, "error", err)
		recordRejection("risk_gate")
		return
	}

	d.orders[o.OrderID] = o

	pos, exists := d.positions[sig.Symbol]
	if !exists {
		pos = &ledger.Position{Symbol: sig.Symbol}
	}

	bar := types.Bar{Symbol: sig.Symbol, Close: price, Volume: currentVolume[sig.Symbol]}

	if err := d.engine.PlaceOrder(o, bar, d.asset, pos, &d.trades, clock); err != nil {
		d.logRejection(o, err)
		return
	}

	recordOrder(string(o.Direction), o.Status.String())
	recordTrade(string(o.Direction))

	if pos.IsEmpty() {
		delete(d.positions, sig.Symbol)
	} else {
		d.positions[sig.Symbol] = pos
	}
}

func (d *Driver) logRejection(o *order.Order, err error) {
	reason := "unknown"
	var subErr *errs.OrderSubmitError
	if errors.As(err, &subErr) {
		reason = o.Reason
	}
	d.logger.Info("order rejected by matching engine", "symbol", o.Symbol, "order_id", o.OrderID, "error", err)
	recordRejection(reason)
}

func (d *Driver) cancelAllOpenOrders(clock time.Time) {
	d.settler.Run(d.orders, map[string]*ledger.Position{}, d.asset, clock)
}

func (d *Driver) recordSnapshot(clock time.Time, currentPrice map[string]types.Money) {
	marketValue := types.ZeroMoney()
	symbols := make([]string, 0, len(d.positions))
	for symbol := range d.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		pos := d.positions[symbol]
		px, ok := currentPrice[symbol]
		if !ok {
			px = pos.AverageCost
		}
		marketValue = marketValue.Add(px.Mul(float64(pos.TotalVolume)))
	}

	d.asset.Snapshot(marketValue, clock)

	prevTotal := d.cfg.InitialCapital
	if n := len(d.snapshots); n > 0 {
		prevTotal = d.snapshots[n-1].TotalAsset
	}
	pnlToday := d.asset.TotalAsset.Sub(prevTotal)
	returnToday := 0.0
	if prevTotal.Float64() != 0 {
		returnToday = pnlToday.Float64() / prevTotal.Float64()
	}

	d.snapshots = append(d.snapshots, types.DailySnapshot{
		Date: clock, TotalAsset: d.asset.TotalAsset, AvailableCash: d.asset.AvailableCash,
		MarketValue: marketValue, PnLToday: pnlToday, ReturnToday: returnToday,
	})
	setTotalAsset(d.asset.TotalAsset.Float64())
}
