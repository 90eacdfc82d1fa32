package model

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// Side is the direction of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// ParseSide converts a wire string to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

// OrderState is the lifecycle state an order event reports.
type OrderState uint8

const (
	StateNew OrderState = iota
	StatePartial
	StateFilled
	StateCancelled
)

// String returns the wire name of the state.
func (st OrderState) String() string {
	switch st {
	case StateNew:
		return "NEW"
	case StatePartial:
		return "PARTIAL"
	case StateFilled:
		return "FILLED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("OrderState(%d)", uint8(st))
	}
}

// ParseOrderState converts a wire string to an OrderState.
func ParseOrderState(s string) (OrderState, error) {
	switch s {
	case "NEW":
		return StateNew, nil
	case "PARTIAL":
		return StatePartial, nil
	case "FILLED":
		return StateFilled, nil
	case "CANCELLED":
		return StateCancelled, nil
	default:
		return 0, fmt.Errorf("unknown order state %q", s)
	}
}

// -----------------------------------------------------------------------------
// Order
// -----------------------------------------------------------------------------

// Order is a single order event. Orders are immutable once constructed;
// lifecycle changes arrive as new events for the same OrderID, which is what
// makes copying them into ring-buffer slots safe without reference tracking.
type Order struct {
	OrderID      uint64     // Exchange-assigned order identifier
	InstrumentID string     // Instrument the order trades (e.g., "AAPL")
	Side         Side       // BUY or SELL
	State        OrderState // Lifecycle state reported by this event
	Quantity     int64      // Contracts, must be positive
	Price        int64      // Limit price (ten-thousandths)
	Timestamp    int64      // Event time (µs since epoch)
}

// Validate reports whether the order is well formed enough to store.
func (o Order) Validate() error {
	if o.InstrumentID == "" {
		return errors.New("empty instrument id")
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", o.Quantity)
	}
	if o.Price < 0 {
		return fmt.Errorf("price must be non-negative, got %d", o.Price)
	}
	if o.Side > Sell {
		return fmt.Errorf("unknown side %d", uint8(o.Side))
	}
	if o.State > StateCancelled {
		return fmt.Errorf("unknown order state %d", uint8(o.State))
	}
	return nil
}
