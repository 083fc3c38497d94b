package liveadapter

import (
	"testing"
	"time"

	"ashare-backtest/pkg/types"
)

func TestAppendBarAndRecentBarsNoLookAhead(t *testing.T) {
	t.Parallel()
	f := NewWSMarketFeed("ws://unused", testLogger())

	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f.appendBar(wireBar{Symbol: "600000.SH", Timestamp: base.Add(time.Duration(i) * time.Minute).Unix(), Close: 10 + float64(i)})
	}

	asOf := base.Add(3 * time.Minute)
	bars, err := f.RecentBars("600000.SH", types.Timeframe1Min, asOf, 10)
	if err != nil {
		t.Fatalf("RecentBars: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars at or before asOf, got %d", len(bars))
	}
	for _, b := range bars {
		if b.Timestamp.After(asOf) {
			t.Errorf("bar at %v is after asOf %v", b.Timestamp, asOf)
		}
	}
}

func TestRecentBarsUnknownSymbolIsEmpty(t *testing.T) {
	t.Parallel()
	f := NewWSMarketFeed("ws://unused", testLogger())
	bars, err := f.RecentBars("000001.SZ", types.Timeframe1Min, time.Now(), 10)
	if err != nil {
		t.Fatalf("RecentBars: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected no bars for unknown symbol, got %d", len(bars))
	}
}

func TestSubscribeWithoutConnectionIsNoop(t *testing.T) {
	t.Parallel()
	f := NewWSMarketFeed("ws://unused", testLogger())
	if err := f.Subscribe(nil, []string{"600000.SH"}); err != nil {
		t.Fatalf("Subscribe before connect should not error: %v", err)
	}
}
