// Package marketdata provides the bar-lookback interface the backtest
// driver reads bars through (the matching engine is handed a single Bar
// by the driver), and the in-memory/CSV-backed
// implementations used during a deterministic backtest. Every
// implementation must enforce no-look-ahead: RecentBars never returns a
// bar whose timestamp is after the caller's clock.
package marketdata

import (
	"time"

	"ashare-backtest/pkg/types"
)

// Source is the read-only market-data interface. Implementations MUST NOT
// return bars with Timestamp after asOf (no look-ahead); an empty slice is
// a valid response.
type Source interface {
	RecentBars(symbol string, tf types.Timeframe, asOf time.Time, limit int) ([]types.Bar, error)
}
