// Package order models a single order's lifecycle: its state machine, the
// fills it accumulates, and the Gateway interface a matching engine or a
// live broker adapter implements to accept it.
package order

import (
	"time"

	"ashare-backtest/internal/errs"
	"ashare-backtest/pkg/types"
)

// Status is the lifecycle state of an order.
type Status int8

const (
	Created Status = iota
	Submitted
	PartialFilled
	Filled
	Canceled
	Rejected
	PartialCanceled
)

func (s Status) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Submitted:
		return "SUBMITTED"
	case PartialFilled:
		return "PARTIAL_FILLED"
	case Filled:
		return "FILLED"
	case Canceled:
		return "CANCELED"
	case Rejected:
		return "REJECTED"
	case PartialCanceled:
		return "PARTIAL_CANCELED"
	default:
		return "UNKNOWN"
	}
}

// validTransitions enumerates the legal next-states for each status. Any
// transition not listed here is a StateError.
var validTransitions = map[Status][]Status{
	Created:         {Submitted, Rejected},
	Submitted:       {PartialFilled, Filled, Canceled, Rejected},
	PartialFilled:   {PartialFilled, Filled, PartialCanceled},
	PartialCanceled: {},
	Filled:          {},
	Canceled:        {},
	Rejected:        {},
}

func (s Status) canTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a single buy or sell instruction moving through the matching
// engine. OrderID is minted once at creation and never reused.
type Order struct {
	OrderID   string
	Symbol    string
	Direction types.Direction
	Kind      types.OrderKind
	Price     types.Money // limit price; the backtest driver sets the bar close on Market orders
	Quantity  types.Shares
	Filled    types.Shares
	AvgFillPx types.Money
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Reason    string // set on Rejected
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() types.Shares {
	return o.Quantity - o.Filled
}

// IsClosed reports whether the order can no longer receive fills.
func (o *Order) IsClosed() bool {
	switch o.Status {
	case Filled, Canceled, Rejected, PartialCanceled:
		return true
	default:
		return false
	}
}

// Transition moves the order to next, returning a StateError if the
// transition isn't legal from the current status.
func (o *Order) Transition(next Status, at time.Time) error {
	if !o.Status.canTransitionTo(next) {
		return &errs.StateError{OrderID: o.OrderID, From: o.Status.String(), To: next.String()}
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// ApplyFill records a partial or full fill at fillPx for fillQty shares,
// updating the volume-weighted average fill price and transitioning to
// PartialFilled or Filled as appropriate.
func (o *Order) ApplyFill(fillQty types.Shares, fillPx types.Money, at time.Time) error {
	if fillQty <= 0 {
		return &errs.ValidationError{Symbol: o.Symbol, Reason: "fill quantity must be positive"}
	}
	if fillQty > o.Remaining() {
		return &errs.ValidationError{Symbol: o.Symbol, Reason: "fill quantity exceeds remaining order quantity"}
	}

	prevFilled := o.Filled
	prevNotional := o.AvgFillPx.Mul(float64(prevFilled))
	addNotional := fillPx.Mul(float64(fillQty))
	o.Filled = prevFilled + fillQty
	if o.Filled > 0 {
		o.AvgFillPx = prevNotional.Add(addNotional).Div(float64(o.Filled))
	}

	next := PartialFilled
	if o.Remaining() == 0 {
		next = Filled
	}
	return o.Transition(next, at)
}

// Gateway is implemented by anything that can submit and cancel orders
// against a real market, such as liveadapter.RESTGateway. The in-process
// matching.Engine does not implement it: the backtest driver calls
// Engine.PlaceOrder directly.
type Gateway interface {
	SubmitOrder(o *Order) error
	CancelOrder(orderID string) error
	CancelAllOpenOrders(symbol string) error
}
