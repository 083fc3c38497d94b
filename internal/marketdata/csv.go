package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"ashare-backtest/pkg/types"
)

// LoadCSV reads an OHLCV history for symbol from a CSV file with headers
// time|timestamp|date, open, high, low, close, volume. Unknown columns are
// ignored; headers are matched case-insensitively. The timestamp column
// accepts RFC3339 or a bare YYYY-MM-DD date.
func LoadCSV(path, symbol string, tf types.Timeframe) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []types.Bar
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}

		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		rowIdx++

		ts := first(row, "time", "timestamp", "date")
		op := first(row, "open")
		cp := first(row, "close")
		vp := first(row, "volume", "vol")
		if ts == "" || op == "" || cp == "" {
			continue
		}

		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		open, err := types.MoneyFromString(op)
		if err != nil {
			continue
		}
		high, err := types.MoneyFromString(first(row, "high", "h"))
		if err != nil {
			high = open
		}
		low, err := types.MoneyFromString(first(row, "low", "l"))
		if err != nil {
			low = open
		}
		close_, err := types.MoneyFromString(cp)
		if err != nil {
			continue
		}
		volume, _ := strconv.ParseInt(vp, 10, 64)

		bar := types.Bar{
			Symbol: symbol, Timeframe: tf, Timestamp: tt,
			Open: open, High: high, Low: low, Close: close_, Volume: volume,
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// parseTimeFlexible accepts RFC3339 timestamps or bare YYYY-MM-DD dates.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}
