// Package liveadapter provides a thin translation of the deterministic
// backtest interfaces (order.Gateway, marketdata.Source) onto a real
// broker's REST and WebSocket surface. Neither type here is reachable from
// the backtest driver's call graph — the driver talks to
// marketdata.Memory and matching.Engine directly. liveadapter gives the
// order.Gateway and marketdata.Source interfaces a second, non-test
// implementation. The backtest Driver holds concrete *marketdata.Memory and
// *matching.Engine fields, so it cannot be handed these two types as is.
package liveadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"ashare-backtest/internal/errs"
	"ashare-backtest/internal/ledger"
	"ashare-backtest/internal/order"
)

// RESTGateway implements order.Gateway against a broker's order-management
// REST API. Every mutating call is rate-limited and retried on 5xx exactly
// like the REST client it is adapted from; every failure is wrapped in
// errs.GatewayError so a caller can recover the same way it recovers from
// the in-process matching engine's OrderSubmitError.
type RESTGateway struct {
	http   *resty.Client
	rl     *RateLimiter
	logger *slog.Logger
}

// NewRESTGateway creates a gateway talking to baseURL.
func NewRESTGateway(baseURL string, logger *slog.Logger) *RESTGateway {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &RESTGateway{
		http:   httpClient,
		rl:     NewRateLimiter(),
		logger: logger.With("component", "rest_gateway"),
	}
}

// SubmitOrder POSTs an order for execution. The broker is expected to
// respond with the same order.Order shape, filled in with its assigned
// status/fills; the caller's *o is updated in place.
func (g *RESTGateway) SubmitOrder(o *order.Order) error {
	ctx := context.Background()
	if err := g.rl.Order.Wait(ctx); err != nil {
		return &errs.GatewayError{Op: "submit_order", Cause: err}
	}

	var result order.Order
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(o).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return &errs.GatewayError{Op: "submit_order", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &errs.GatewayError{Op: "submit_order", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}

	*o = result
	return nil
}

// CancelOrder cancels a single open order by ID.
func (g *RESTGateway) CancelOrder(orderID string) error {
	ctx := context.Background()
	if err := g.rl.Cancel.Wait(ctx); err != nil {
		return &errs.GatewayError{Op: "cancel_order", Cause: err}
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("order_id", orderID).
		Delete("/orders")
	if err != nil {
		return &errs.GatewayError{Op: "cancel_order", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &errs.GatewayError{Op: "cancel_order", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

// CancelAllOpenOrders cancels every open order for symbol. An empty symbol
// cancels across the whole account, an emergency cancel-all.
func (g *RESTGateway) CancelAllOpenOrders(symbol string) error {
	ctx := context.Background()
	if err := g.rl.Cancel.Wait(ctx); err != nil {
		return &errs.GatewayError{Op: "cancel_all", Cause: err}
	}

	req := g.http.R().SetContext(ctx)
	if symbol != "" {
		req.SetQueryParam("symbol", symbol)
	}
	resp, err := req.Delete("/cancel-all")
	if err != nil {
		return &errs.GatewayError{Op: "cancel_all", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &errs.GatewayError{Op: "cancel_all", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	g.logger.Warn("all open orders cancelled", "symbol", symbol)
	return nil
}

// GetAsset fetches the account's current cash ledger.
func (g *RESTGateway) GetAsset(accountID string) (*ledger.Asset, error) {
	ctx := context.Background()
	if err := g.rl.Query.Wait(ctx); err != nil {
		return nil, &errs.GatewayError{Op: "get_asset", Cause: err}
	}

	var result ledger.Asset
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("account_id", accountID).
		SetResult(&result).
		Get("/asset")
	if err != nil {
		return nil, &errs.GatewayError{Op: "get_asset", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &errs.GatewayError{Op: "get_asset", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return &result, nil
}

// GetPositions fetches the account's current holdings, keyed by symbol.
func (g *RESTGateway) GetPositions(accountID string) (map[string]*ledger.Position, error) {
	ctx := context.Background()
	if err := g.rl.Query.Wait(ctx); err != nil {
		return nil, &errs.GatewayError{Op: "get_positions", Cause: err}
	}

	var raw []ledger.Position
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParam("account_id", accountID).
		SetResult(&raw).
		Get("/positions")
	if err != nil {
		return nil, &errs.GatewayError{Op: "get_positions", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &errs.GatewayError{Op: "get_positions", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}

	out := make(map[string]*ledger.Position, len(raw))
	for i := range raw {
		p := raw[i]
		out[p.Symbol] = &p
	}
	return out, nil
}

// DailySettlement invokes the broker's own T+1 settlement run for
// accountID, the live-trading analogue of settlement.Routine.Run.
func (g *RESTGateway) DailySettlement(accountID string) error {
	ctx := context.Background()
	if err := g.rl.Cancel.Wait(ctx); err != nil {
		return &errs.GatewayError{Op: "daily_settlement", Cause: err}
	}

	body, err := json.Marshal(struct {
		AccountID string `json:"account_id"`
	}{AccountID: accountID})
	if err != nil {
		return &errs.GatewayError{Op: "daily_settlement", Cause: err}
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(json.RawMessage(body)).
		Post("/settlement/run")
	if err != nil {
		return &errs.GatewayError{Op: "daily_settlement", Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &errs.GatewayError{Op: "daily_settlement", Cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

var _ order.Gateway = (*RESTGateway)(nil)
