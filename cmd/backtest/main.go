// Command backtest runs a deterministic, single-threaded A-share equity
// backtest over a configured date range and universe, then prints a
// performance report and persists the trade log and daily snapshots.
//
// Architecture:
//
//	main.go                     — entry point: loads config, wires market
//	                              data + strategy + driver, runs to completion
//	internal/config             — YAML + env config (viper)
//	internal/marketdata         — in-memory bar store, CSV loader, no-look-ahead
//	internal/strategy           — dual moving-average crossover reference strategy
//	internal/risk               — composable pre-trade policy gate
//	internal/matching           — A-share slippage/capacity/fee execution model
//	internal/settlement         — T+1 position settlement, EOD order cancellation
//	internal/ledger             — cash and position bookkeeping
//	internal/evaluator          — total/annualized return, max drawdown, win rate
//	internal/backtest           — the daily driver loop and Prometheus metrics
//	internal/store              — trade-log CSV + snapshot JSON persistence
//	internal/liveadapter        — REST/WebSocket shell proving the Source/Gateway
//	                              abstractions have a second implementation
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ashare-backtest/internal/backtest"
	"ashare-backtest/internal/config"
	"ashare-backtest/internal/marketdata"
	"ashare-backtest/internal/matching"
	"ashare-backtest/internal/store"
	"ashare-backtest/internal/strategy"
	"ashare-backtest/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BACKTEST_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	start, err := time.Parse("2006-01-02", cfg.Run.Start)
	if err != nil {
		logger.Error("invalid run.start", "error", err)
		os.Exit(1)
	}
	end, err := time.Parse("2006-01-02", cfg.Run.End)
	if err != nil {
		logger.Error("invalid run.end", "error", err)
		os.Exit(1)
	}

	market := marketdata.NewMemory()
	for _, symbol := range cfg.Run.Universe {
		path := filepath.Join(cfg.Store.DataDir, symbol+".csv")
		bars, err := marketdata.LoadCSV(path, symbol, types.Timeframe1Day)
		if err != nil {
			logger.Error("failed to load bars", "symbol", symbol, "path", path, "error", err)
			os.Exit(1)
		}
		if err := market.LoadBars(symbol, bars); err != nil {
			logger.Error("failed to index bars", "symbol", symbol, "error", err)
			os.Exit(1)
		}
		logger.Info("loaded bars", "symbol", symbol, "count", len(bars))
	}

	strat := strategy.NewDualMovingAverage(logger)
	strat.FastWindow = cfg.Strategy.FastWindow
	strat.SlowWindow = cfg.Strategy.SlowWindow

	driverCfg := backtest.Config{
		AccountID:      "backtest",
		InitialCapital: types.NewMoney(cfg.InitialCapital),
		Universe:       cfg.Run.Universe,
		Start:          start,
		End:            end,

		SlippageBuy:        cfg.Market.SlippageBuy,
		SlippageSell:       cfg.Market.SlippageSell,
		CapacityLimitRatio: cfg.Market.CapacityLimitRatio,
		LotSize:            cfg.Market.LotSize,
		Fees: matching.FeeSchedule{
			CommissionRate:  cfg.Fees.CommissionRate,
			MinCommission:   types.NewMoney(cfg.Fees.MinCommission),
			TransferFeeRate: cfg.Fees.TransferFeeRate,
			StampDutyRate:   cfg.Fees.StampDutyRate,
		},
	}
	driver := backtest.New(driverCfg, market, strat, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting backtest",
		"universe", cfg.Run.Universe,
		"start", cfg.Run.Start,
		"end", cfg.Run.End,
		"initial_capital", cfg.InitialCapital,
	)

	report, err := driver.Run(ctx)
	if err != nil {
		logger.Error("backtest run failed", "error", err)
		os.Exit(1)
	}

	s, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.WriteTradeLog(driver.Trades()); err != nil {
		logger.Error("failed to write trade log", "error", err)
	}
	if err := s.SaveSnapshot(driver.Snapshots()); err != nil {
		logger.Error("failed to save snapshots", "error", err)
	}

	fmt.Printf("Initial capital:    %s\n", report.InitialCapital)
	fmt.Printf("Final capital:      %s\n", report.FinalCapital)
	fmt.Printf("Total return:       %.4f\n", report.TotalReturn)
	fmt.Printf("Annualized return:  %.4f\n", report.AnnualizedReturn)
	fmt.Printf("Max drawdown:       %.4f\n", report.MaxDrawdown)
	fmt.Printf("Win rate:           %.4f\n", report.WinRate)
	fmt.Printf("Trade count:        %d\n", report.TradeCount)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
