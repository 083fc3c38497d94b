package marketdata

import (
	"sort"
	"time"

	"ashare-backtest/pkg/types"
)

// Memory is an in-process Source backed by bars already loaded for the
// whole backtest window. It is the only Source the deterministic backtest
// driver talks to; a live adapter would instead poll a broker feed through
// the same interface.
type Memory struct {
	bars map[string][]types.Bar // symbol -> ascending-by-timestamp bars
}

// NewMemory builds an empty in-memory source. Load bars with LoadBars.
func NewMemory() *Memory {
	return &Memory{bars: make(map[string][]types.Bar)}
}

// LoadBars installs bars for symbol, sorting them ascending by timestamp.
// Each bar is validated before being stored.
func (m *Memory) LoadBars(symbol string, bars []types.Bar) error {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	for _, b := range sorted {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	m.bars[symbol] = sorted
	return nil
}

// RecentBars returns up to limit bars for symbol with timestamp <= asOf,
// ascending by timestamp. It never looks past asOf.
func (m *Memory) RecentBars(symbol string, tf types.Timeframe, asOf time.Time, limit int) ([]types.Bar, error) {
	all := m.bars[symbol]

	cut := sort.Search(len(all), func(i int) bool { return all[i].Timestamp.After(asOf) })
	visible := all[:cut]

	if limit <= 0 || limit >= len(visible) {
		out := make([]types.Bar, len(visible))
		copy(out, visible)
		return out, nil
	}
	out := make([]types.Bar, limit)
	copy(out, visible[len(visible)-limit:])
	return out, nil
}
