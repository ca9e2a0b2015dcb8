// Package events defines the engine's outward-facing event types and
// the single-producer/single-consumer bus they travel over.
package events

import "lobengine/internal/lob"

// Kind discriminates the Event tagged union. Event is a plain struct
// rather than an interface so it can be stored by value in the ring
// buffer with no allocation per event.
type Kind uint8

const (
	KindFill Kind = iota
	KindCancel
	KindBookChange
)

// FillEvent reports one resting order being lifted by a taker.
type FillEvent struct {
	TakerId lob.OrderId
	MakerId lob.OrderId
	Side    lob.Side
	Px      lob.Price
	Qty     lob.Qty
}

// CancelEvent reports an order leaving the book via Cancel.
type CancelEvent struct {
	Id          lob.OrderId
	Side        lob.Side
	Px          lob.Price
	QtyCanceled lob.Qty
}

// BookChangeEvent reports that a price level's resting quantity
// changed. A Side/Px of (side, 0) with LevelQty 0 is the market-order
// sentinel: it tells a consumer "the book may have changed on this
// side" without naming a specific level.
type BookChangeEvent struct {
	Side     lob.Side
	Px       lob.Price
	LevelQty lob.Qty
}

// Event is the tagged union published onto the bus. Only the field
// matching Kind is meaningful.
type Event struct {
	Kind       Kind
	Fill       FillEvent
	Cancel     CancelEvent
	BookChange BookChangeEvent
}

func NewFillEvent(f FillEvent) Event {
	return Event{Kind: KindFill, Fill: f}
}

func NewCancelEvent(c CancelEvent) Event {
	return Event{Kind: KindCancel, Cancel: c}
}

func NewBookChangeEvent(b BookChangeEvent) Event {
	return Event{Kind: KindBookChange, BookChange: b}
}
