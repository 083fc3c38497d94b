// Package risk provides the pre-trade Risk Gate: a composable, stateless
// pipeline of policies that reject malformed orders before they reach the
// matching engine. A single-threaded, single-bar-synchronous backtest has
// no use for stateful, concurrently-aggregated exposure tracking — here
// each Policy is a pure predicate, and Check short-circuits on the first
// rejection.
package risk

import (
	"ashare-backtest/internal/errs"
	"ashare-backtest/internal/order"
	"ashare-backtest/pkg/types"
)

// Policy is a pure, stateless check against a single order. It returns nil
// to pass, or a ValidationError/OrderSubmitError-wrapping error to reject.
type Policy func(o *order.Order) error

// Gate runs a pipeline of policies, stopping at the first rejection.
type Gate struct {
	policies []Policy
}

// NewGate builds a Gate from the given policies, evaluated in order.
func NewGate(policies ...Policy) *Gate {
	return &Gate{policies: policies}
}

// Check runs every policy against o, returning the first rejection
// encountered, or nil if every policy passed.
func (g *Gate) Check(o *order.Order) error {
	for _, p := range g.policies {
		if err := p(o); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPolicies returns the minimal policy set: reject non-positive
// limit prices (zero is allowed only for MARKET orders, whose exec_price
// comes from the current bar, not the order itself), and reject
// non-positive volume.
func DefaultPolicies() []Policy {
	return []Policy{
		rejectNonPositivePrice,
		rejectNonPositiveVolume,
	}
}

func rejectNonPositivePrice(o *order.Order) error {
	if o.Price.IsPositive() {
		return nil
	}
	if o.Price.IsZero() && o.Kind == types.Market {
		return nil
	}
	return &errs.ValidationError{Symbol: o.Symbol, Reason: "limit price must be positive"}
}

func rejectNonPositiveVolume(o *order.Order) error {
	if o.Quantity <= 0 {
		return &errs.ValidationError{Symbol: o.Symbol, Reason: "volume must be positive"}
	}
	return nil
}
