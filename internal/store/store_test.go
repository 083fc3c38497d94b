package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ashare-backtest/pkg/types"
)

func TestWriteTradeLogSchemaAndValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	trades := []types.TradeRecord{
		{
			Symbol: "600000.SH", Direction: types.Buy,
			ExecutedAt: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
			Price:      types.NewMoney(10.01), Volume: 100,
			FeesTotal: types.NewMoney(5.01), RealizedPnL: types.ZeroMoney(), Remark: "golden cross",
		},
	}

	if err := WriteTradeLog(path, trades); err != nil {
		t.Fatalf("WriteTradeLog: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trade log: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	wantHeader := []string{"executed_at", "symbol", "direction", "price", "volume", "fees_total", "realized_pnl", "remark"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][1] != "600000.SH" || rows[1][2] != "BUY" || rows[1][4] != "100" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestWriteTradeLogIsAtomic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	if err := WriteTradeLog(path, nil); err != nil {
		t.Fatalf("WriteTradeLog: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after a successful write")
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.json")

	snapshots := []types.DailySnapshot{
		{Date: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), TotalAsset: types.NewMoney(1005000)},
	}

	if err := SaveSnapshot(path, snapshots); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(loaded))
	}
	if !loaded[0].TotalAsset.Equal(types.NewMoney(1005000)) {
		t.Errorf("TotalAsset = %s, want 1005000", loaded[0].TotalAsset)
	}
}

func TestLoadSnapshotMissingFileReturnsNil(t *testing.T) {
	t.Parallel()
	loaded, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing snapshot file, got %v", loaded)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	trades := []types.TradeRecord{{Symbol: "600000.SH", Direction: types.Sell, Volume: 50}}
	if err := s.WriteTradeLog(trades); err != nil {
		t.Fatalf("WriteTradeLog: %v", err)
	}

	snapshots := []types.DailySnapshot{{TotalAsset: types.NewMoney(999000)}}
	if err := s.SaveSnapshot(snapshots); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 1 || !loaded[0].TotalAsset.Equal(types.NewMoney(999000)) {
		t.Errorf("unexpected loaded snapshots: %+v", loaded)
	}
}
