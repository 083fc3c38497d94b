// Package store persists the backtest's trade log and daily snapshots.
//
// Writes use atomic file replacement (write to .tmp, then rename) to
// prevent corruption from partial writes or crashes mid-save. The backtest
// driver owns positions in memory for the run's lifetime; only the trade
// log and the daily snapshot history need to survive it, so those are the
// two payloads persisted here.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"ashare-backtest/pkg/types"
)

// tradeLogHeader is the CSV schema for the persisted trade log:
// executed_at, symbol, direction, price, volume, fees_total, realized_pnl, remark.
var tradeLogHeader = []string{
	"executed_at", "symbol", "direction", "price", "volume", "fees_total", "realized_pnl", "remark",
}

// WriteTradeLog writes every executed fill to a CSV file at path, atomically
// (write to path+".tmp", then rename over path).
func WriteTradeLog(path string, trades []types.TradeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create trade log dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create trade log: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(tradeLogHeader); err != nil {
		f.Close()
		return fmt.Errorf("write trade log header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.ExecutedAt.Format("2006-01-02T15:04:05Z07:00"),
			t.Symbol,
			string(t.Direction),
			t.Price.String(),
			strconv.FormatInt(int64(t.Volume), 10),
			t.FeesTotal.String(),
			t.RealizedPnL.String(),
			t.Remark,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write trade log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush trade log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trade log: %w", err)
	}
	return os.Rename(tmp, path)
}

// SaveSnapshot atomically persists the daily snapshot history to path as
// JSON, so a long backtest can be resumed from its last completed day.
func SaveSnapshot(path string, snapshots []types.DailySnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.Marshal(snapshots)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot restores the daily snapshot history from path. Returns nil,
// nil if no snapshot file exists (fresh run).
func LoadSnapshot(path string) ([]types.DailySnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshots []types.DailySnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshots, nil
}

// Store bundles trade-log and snapshot persistence under a single,
// directory-scoped Open/Close lifecycle.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory, creating it if
// necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error { return nil }

// WriteTradeLog persists trades to "<dir>/trades.csv".
func (s *Store) WriteTradeLog(trades []types.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteTradeLog(filepath.Join(s.dir, "trades.csv"), trades)
}

// SaveSnapshot persists snapshots to "<dir>/snapshots.json".
func (s *Store) SaveSnapshot(snapshots []types.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SaveSnapshot(filepath.Join(s.dir, "snapshots.json"), snapshots)
}

// LoadSnapshot restores snapshots from "<dir>/snapshots.json".
func (s *Store) LoadSnapshot() ([]types.DailySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadSnapshot(filepath.Join(s.dir, "snapshots.json"))
}
