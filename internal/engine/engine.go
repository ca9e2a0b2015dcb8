// Package engine is the thin orchestrator between a matching book and
// its event bus: it has no matching logic of its own, only the rules
// for which book outcome turns into which bus event.
package engine

import (
	"github.com/rs/zerolog/log"

	"lobengine/internal/events"
	"lobengine/internal/lob"
)

// Engine owns one symbol's book and the bus its outcomes are published
// onto. It is not safe for concurrent use by more than one caller —
// the same single-writer discipline the book and bus themselves
// require.
type Engine struct {
	book *lob.Book
	bus  *events.Bus
}

// New constructs an Engine with its own event bus of the given
// capacity, which must be a power of two.
func New(cfg lob.BookConfig, busCapacity uint64) (*Engine, error) {
	bus, err := events.NewBus(busCapacity)
	if err != nil {
		return nil, err
	}
	return &Engine{book: lob.NewBook(cfg), bus: bus}, nil
}

// Book exposes the underlying book for read-only inspection (Best,
// Has, CheckInvariants) by callers such as tests and soak harnesses.
func (e *Engine) Book() *lob.Book { return e.book }

// Bus exposes the event bus for a consumer goroutine to drain.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Add submits a limit order and publishes the resulting fills plus, if
// anything posted or the book otherwise changed, a BookChangeEvent at
// (side, px).
func (e *Engine) Add(trader lob.TraderId, id lob.OrderId, side lob.Side, px lob.Price, qty lob.Qty, tif lob.TimeInForce, tsNs lob.TimeNs) lob.MatchResult {
	res := e.book.Submit(trader, side, px, qty, id, lob.Limit, tif, tsNs)
	e.publishFills(res, side)
	if res.PostedQty > 0 || res.BookChanged {
		e.publishBookChange(side, px)
	}
	return res
}

// AddDefault is Add for an anonymous trader with Day time-in-force.
func (e *Engine) AddDefault(id lob.OrderId, side lob.Side, px lob.Price, qty lob.Qty) lob.MatchResult {
	return e.Add(0, id, side, px, qty, lob.Day, 0)
}

// Market submits a market order. A market order never posts, so any
// BookChangeEvent it triggers uses the sentinel (side, 0, 0) rather
// than naming a specific level — a market sweep can touch many levels
// at once and there is no single level to report.
func (e *Engine) Market(trader lob.TraderId, id lob.OrderId, side lob.Side, qty lob.Qty, tif lob.TimeInForce, tsNs lob.TimeNs) lob.MatchResult {
	res := e.book.Submit(trader, side, 0, qty, id, lob.Market, tif, tsNs)
	e.publishFills(res, side)
	if res.BookChanged {
		e.bus.TryPublish(events.NewBookChangeEvent(events.BookChangeEvent{Side: side}))
	}
	return res
}

// MarketDefault is Market for an anonymous trader with IOC
// time-in-force.
func (e *Engine) MarketDefault(id lob.OrderId, side lob.Side, qty lob.Qty) lob.MatchResult {
	return e.Market(0, id, side, qty, lob.IOC, 0)
}

// Replace amends a resting order. On success it publishes a
// BookChangeEvent for the new price on both sides — conservative, but
// cheap, and correct whichever side the id turns out to be on.
func (e *Engine) Replace(trader lob.TraderId, id lob.OrderId, newPx lob.Price, newQty lob.Qty, tif lob.TimeInForce, tsNs lob.TimeNs) lob.ReplaceResult {
	rr := e.book.Replace(trader, id, newPx, newQty, tif, tsNs)
	if rr.Ok {
		e.publishBookChange(lob.Bid, newPx)
		e.publishBookChange(lob.Ask, newPx)
	} else {
		log.Debug().Uint64("id", uint64(id)).Msg("replace rejected")
	}
	return rr
}

// Cancel removes a resting order, publishing a CancelEvent followed by
// a BookChangeEvent for the level it left.
func (e *Engine) Cancel(id lob.OrderId) lob.CancelResult {
	cr := e.book.Cancel(id)
	if !cr.Ok {
		log.Debug().Uint64("id", uint64(id)).Msg("cancel on unknown id")
		return cr
	}
	e.bus.TryPublish(events.NewCancelEvent(events.CancelEvent{
		Id: id, Side: cr.Side, Px: cr.Px, QtyCanceled: cr.QtyCanceled,
	}))
	e.publishBookChange(cr.Side, cr.Px)
	return cr
}

func (e *Engine) publishFills(res lob.MatchResult, side lob.Side) {
	for _, f := range res.Fills {
		e.bus.TryPublish(events.NewFillEvent(events.FillEvent{
			TakerId: f.TakerId, MakerId: f.MakerId, Side: side, Px: f.Px, Qty: f.Qty,
		}))
	}
}

func (e *Engine) publishBookChange(side lob.Side, px lob.Price) {
	e.bus.TryPublish(events.NewBookChangeEvent(events.BookChangeEvent{
		Side: side, Px: px, LevelQty: e.book.LevelQty(side, px),
	}))
}
