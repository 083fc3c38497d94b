// ws_feed.go implements a push-style market-data feed over an
// auto-reconnecting WebSocket connection. Unlike a typical multi-channel
// feed (book snapshots, trades, order events each on their own channel),
// this feed has one job: decode streamed bar ticks into types.Bar and
// buffer them per symbol, so WSMarketFeed can satisfy the same RecentBars
// shape marketdata.Source exposes to the backtest driver.
package liveadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ashare-backtest/internal/errs"
	"ashare-backtest/internal/marketdata"
	"ashare-backtest/pkg/types"
)

const (
	pingInterval     = 50 * time.Second // how often we send PING to keep alive
	readTimeout      = 90 * time.Second // ~2 missed pings triggers reconnect
	maxReconnectWait = 30 * time.Second // cap on exponential backoff
	writeTimeout     = 10 * time.Second // deadline for outgoing messages
	tickBufferSize   = 256              // per-connection inbound tick buffer
)

// wireBar is the JSON shape a broker's bar-tick stream is expected to send.
type wireBar struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"ts"` // unix seconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// WSMarketFeed streams live bar ticks and buffers them per symbol so
// callers can read them back through RecentBars, satisfying the same
// contract marketdata.Memory does for the backtest path. It auto-reconnects
// with exponential backoff and re-subscribes to all tracked symbols.
type WSMarketFeed struct {
	url  string
	conn *websocket.Conn
	connMu sync.Mutex

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	barsMu sync.RWMutex
	bars   map[string][]types.Bar

	tickCh chan wireBar

	logger *slog.Logger
}

// NewWSMarketFeed creates a feed that will stream from wsURL once Run is
// called.
func NewWSMarketFeed(wsURL string, logger *slog.Logger) *WSMarketFeed {
	return &WSMarketFeed{
		url:        wsURL,
		subscribed: make(map[string]bool),
		bars:       make(map[string][]types.Bar),
		tickCh:     make(chan wireBar, tickBufferSize),
		logger:     logger.With("component", "ws_market_feed"),
	}
}

// Subscribe adds symbols to the live stream.
func (f *WSMarketFeed) Subscribe(ctx context.Context, symbols []string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		f.subscribed[s] = true
	}
	f.subscribedMu.Unlock()
	return f.writeJSON(map[string]any{"op": "subscribe", "symbols": symbols})
}

// RecentBars satisfies marketdata.Source by reading from the live-buffered
// bars instead of a pre-loaded in-memory table. asOf is still enforced as
// a no-look-ahead cutoff, for symmetry with marketdata.Memory.
func (f *WSMarketFeed) RecentBars(symbol string, tf types.Timeframe, asOf time.Time, limit int) ([]types.Bar, error) {
	f.barsMu.RLock()
	defer f.barsMu.RUnlock()

	all := f.bars[symbol]
	cutoff := sort.Search(len(all), func(i int) bool { return all[i].Timestamp.After(asOf) })
	if cutoff == 0 {
		return nil, nil
	}
	start := cutoff - limit
	if start < 0 {
		start = 0
	}
	out := make([]types.Bar, cutoff-start)
	copy(out, all[start:cutoff])
	return out, nil
}

// Run connects and maintains the WebSocket connection with auto-reconnect.
// Blocks until ctx is cancelled. This is the only place in the codebase a
// goroutine/channel pattern is used — the deterministic backtest path never
// calls it.
func (f *WSMarketFeed) Run(ctx context.Context) error {
	go f.consumeTicks(ctx)

	backoff := time.Second
	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (f *WSMarketFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return &errs.GatewayError{Op: "ws_dial", Cause: err}
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.resubscribe(); err != nil {
		return &errs.GatewayError{Op: "ws_subscribe", Cause: err}
	}

	f.logger.Info("market feed connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var tick wireBar
		if err := json.Unmarshal(msg, &tick); err != nil {
			f.logger.Debug("ignoring malformed tick", "data", string(msg))
			continue
		}

		select {
		case f.tickCh <- tick:
		default:
			f.logger.Warn("tick channel full, dropping tick", "symbol", tick.Symbol)
		}
	}
}

func (f *WSMarketFeed) consumeTicks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-f.tickCh:
			f.appendBar(tick)
		}
	}
}

func (f *WSMarketFeed) appendBar(tick wireBar) {
	bar := types.Bar{
		Symbol:    tick.Symbol,
		Timeframe: types.Timeframe1Min,
		Timestamp: time.Unix(tick.Timestamp, 0).UTC(),
		Open:      types.NewMoney(tick.Open),
		High:      types.NewMoney(tick.High),
		Low:       types.NewMoney(tick.Low),
		Close:     types.NewMoney(tick.Close),
		Volume:    tick.Volume,
	}

	f.barsMu.Lock()
	defer f.barsMu.Unlock()
	f.bars[bar.Symbol] = append(f.bars[bar.Symbol], bar)
}

func (f *WSMarketFeed) resubscribe() error {
	f.subscribedMu.RLock()
	symbols := make([]string, 0, len(f.subscribed))
	for s := range f.subscribed {
		symbols = append(symbols, s)
	}
	f.subscribedMu.RUnlock()
	if len(symbols) == 0 {
		return nil
	}
	return f.writeJSON(map[string]any{"op": "subscribe", "symbols": symbols})
}

func (f *WSMarketFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *WSMarketFeed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *WSMarketFeed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}

var _ marketdata.Source = (*WSMarketFeed)(nil)
