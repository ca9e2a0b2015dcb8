// Package lob implements a price-time priority limit order book and its
// matching algorithm for a single symbol.
package lob

import "fmt"

// OrderId identifies a resting or in-flight order. Callers are
// responsible for uniqueness; the book rejects a duplicate id.
type OrderId uint64

// Price is a signed integer tick. There is no floating point anywhere
// in the book; callers own the conversion from real-world price to
// ticks.
type Price int64

// Qty is a signed integer quantity. Only positive quantities are ever
// accepted by the book; zero/negative are rejected at the boundary.
type Qty int64

// TimeNs is a caller-supplied monotonic timestamp used only to order
// diagnostics; the book itself never reads the clock.
type TimeNs int64

// TraderId identifies the owner of an order for self-trade prevention.
// Zero means "unknown owner" and is never subject to STP.
type TraderId uint64

// Side is which side of the book an order rests on or trades against.
type Side uint8

const (
	Bid Side = iota
	Ask
)

// Buy and Sell are aliases for Bid and Ask, matching order-entry
// terminology used at the engine boundary.
const (
	Buy  = Bid
	Sell = Ask
)

func (s Side) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// OrderType distinguishes resting limit orders from sweep-only market
// orders.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "Limit"
	}
	return "Market"
}

// TimeInForce controls what happens to any unfilled remainder after
// the matching loop runs once.
type TimeInForce uint8

const (
	// Day rests any unfilled remainder of a Limit order in the book.
	Day TimeInForce = iota
	// IOC (immediate-or-cancel) fills what it can and discards the rest.
	IOC
	// FOK (fill-or-kill) requires the full quantity to be fillable
	// before any mutation happens; otherwise the whole order is rejected.
	FOK
)

func (t TimeInForce) String() string {
	switch t {
	case Day:
		return "Day"
	case IOC:
		return "IOC"
	default:
		return "FOK"
	}
}

// STPPolicy selects the self-trade-prevention behavior applied when a
// taker would otherwise trade against a resting order owned by the
// same trader.
type STPPolicy uint8

const (
	// Allow disables self-trade prevention entirely.
	Allow STPPolicy = iota
	// CancelTaker drops the overlapping taker quantity, leaving the
	// resting maker order untouched.
	CancelTaker
	// CancelMaker cancels the overlapping resting maker quantity and
	// stops the taker from matching any further, even against
	// unrelated resting orders further down the book.
	CancelMaker
	// CancelBoth reduces both the taker and the maker by the
	// overlapping quantity and lets the taker continue matching.
	CancelBoth
)

func (p STPPolicy) String() string {
	switch p {
	case Allow:
		return "Allow"
	case CancelTaker:
		return "CancelTaker"
	case CancelMaker:
		return "CancelMaker"
	default:
		return "CancelBoth"
	}
}

// BookConfig is the book's runtime configuration.
type BookConfig struct {
	STP STPPolicy
}

// BestOfBook reports the best resting price on each side, if any.
type BestOfBook struct {
	Bid    Price
	HasBid bool
	Ask    Price
	HasAsk bool
}

// Mid returns the midpoint of the best bid/ask. ok is false unless both
// sides are populated.
func (b BestOfBook) Mid() (mid Price, ok bool) {
	if !b.HasBid || !b.HasAsk {
		return 0, false
	}
	return (b.Bid + b.Ask) / 2, true
}

// Spread returns Ask-Bid. ok is false unless both sides are populated.
func (b BestOfBook) Spread() (spread Price, ok bool) {
	if !b.HasBid || !b.HasAsk {
		return 0, false
	}
	return b.Ask - b.Bid, true
}

func (b BestOfBook) String() string {
	switch {
	case b.HasBid && b.HasAsk:
		return fmt.Sprintf("bid=%d ask=%d", b.Bid, b.Ask)
	case b.HasBid:
		return fmt.Sprintf("bid=%d ask=-", b.Bid)
	case b.HasAsk:
		return fmt.Sprintf("bid=- ask=%d", b.Ask)
	default:
		return "bid=- ask=-"
	}
}
