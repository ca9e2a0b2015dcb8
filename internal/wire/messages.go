// Package wire is the binary framing for the TCP front-end: a thin
// boundary collaborator with no matching or transport design content
// of its own, in the same fixed-header-plus-BigEndian style the
// original exchange prototype used for its own message framing.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"lobengine/internal/lob"
)

var (
	ErrInvalidMessageType = errors.New("wire: invalid message type")
	ErrMessageTooShort    = errors.New("wire: message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ReplaceOrder
)

type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	CancelReport
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

const (
	baseHeaderLen         = 2
	newOrderBodyLen       = 8 + 8 + 1 + 1 + 1 + 8 + 8 // trader+id+side+type+tif+px+qty
	cancelOrderBodyLen    = 8
	replaceOrderBodyLen   = 8 + 8 + 8 + 8 + 1 // trader+id+newPx+newQty+tif
	reportFixedHeaderLen  = 1 + 8 + 8 + 1 + 8 + 8 + 4 // kind+id1+id2+side+px+qty+errlen
)

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// ParseMessage decodes the type-tagged frame msg into a concrete
// Message.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[baseHeaderLen:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case ReplaceOrder:
		return parseReplaceOrder(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage places a limit or market order.
type NewOrderMessage struct {
	BaseMessage
	Trader lob.TraderId
	Id     lob.OrderId
	Side   lob.Side
	Type   lob.OrderType
	TIF    lob.TimeInForce
	Px     lob.Price
	Qty    lob.Qty
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderBodyLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Trader:      lob.TraderId(binary.BigEndian.Uint64(msg[0:8])),
		Id:          lob.OrderId(binary.BigEndian.Uint64(msg[8:16])),
		Side:        lob.Side(msg[16]),
		Type:        lob.OrderType(msg[17]),
		TIF:         lob.TimeInForce(msg[18]),
		Px:          lob.Price(int64(binary.BigEndian.Uint64(msg[19:27]))),
		Qty:         lob.Qty(int64(binary.BigEndian.Uint64(msg[27:35]))),
	}, nil
}

// Serialize encodes m for the wire.
func (m NewOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+newOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.Trader))
	binary.BigEndian.PutUint64(buf[10:18], uint64(m.Id))
	buf[18] = byte(m.Side)
	buf[19] = byte(m.Type)
	buf[20] = byte(m.TIF)
	binary.BigEndian.PutUint64(buf[21:29], uint64(m.Px))
	binary.BigEndian.PutUint64(buf[29:37], uint64(m.Qty))
	return buf
}

// CancelOrderMessage cancels a resting order by id.
type CancelOrderMessage struct {
	BaseMessage
	Id lob.OrderId
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderBodyLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Id:          lob.OrderId(binary.BigEndian.Uint64(msg[0:8])),
	}, nil
}

func (m CancelOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+cancelOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.Id))
	return buf
}

// ReplaceOrderMessage amends a resting order's price/quantity.
type ReplaceOrderMessage struct {
	BaseMessage
	Trader lob.TraderId
	Id     lob.OrderId
	NewPx  lob.Price
	NewQty lob.Qty
	TIF    lob.TimeInForce
}

func parseReplaceOrder(msg []byte) (ReplaceOrderMessage, error) {
	if len(msg) < replaceOrderBodyLen {
		return ReplaceOrderMessage{}, ErrMessageTooShort
	}
	return ReplaceOrderMessage{
		BaseMessage: BaseMessage{TypeOf: ReplaceOrder},
		Trader:      lob.TraderId(binary.BigEndian.Uint64(msg[0:8])),
		Id:          lob.OrderId(binary.BigEndian.Uint64(msg[8:16])),
		NewPx:       lob.Price(int64(binary.BigEndian.Uint64(msg[16:24]))),
		NewQty:      lob.Qty(int64(binary.BigEndian.Uint64(msg[24:32]))),
		TIF:         lob.TimeInForce(msg[32]),
	}, nil
}

func (m ReplaceOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+replaceOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(ReplaceOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.Trader))
	binary.BigEndian.PutUint64(buf[10:18], uint64(m.Id))
	binary.BigEndian.PutUint64(buf[18:26], uint64(m.NewPx))
	binary.BigEndian.PutUint64(buf[26:34], uint64(m.NewQty))
	buf[34] = byte(m.TIF)
	return buf
}

// Report is a fill/cancel/error notification sent back to a client.
type Report struct {
	Kind ReportMessageType
	Id1  lob.OrderId // taker id (fill) or canceled id (cancel)
	Id2  lob.OrderId // maker id (fill only)
	Side lob.Side
	Px   lob.Price
	Qty  lob.Qty
	Err  string
}

// Serialize encodes r for the wire.
func (r Report) Serialize() []byte {
	errBytes := []byte(r.Err)
	buf := make([]byte, reportFixedHeaderLen+len(errBytes))
	buf[0] = byte(r.Kind)
	binary.BigEndian.PutUint64(buf[1:9], uint64(r.Id1))
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Id2))
	buf[17] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[18:26], uint64(r.Px))
	binary.BigEndian.PutUint64(buf[26:34], uint64(r.Qty))
	binary.BigEndian.PutUint32(buf[34:38], uint32(len(errBytes)))
	copy(buf[reportFixedHeaderLen:], errBytes)
	return buf
}

// ParseReport decodes a Report frame, the client side of Serialize.
func ParseReport(msg []byte) (Report, error) {
	if len(msg) < reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	errLen := binary.BigEndian.Uint32(msg[34:38])
	if len(msg) < reportFixedHeaderLen+int(errLen) {
		return Report{}, fmt.Errorf("%w: declared error string longer than frame", ErrMessageTooShort)
	}
	return Report{
		Kind: ReportMessageType(msg[0]),
		Id1:  lob.OrderId(binary.BigEndian.Uint64(msg[1:9])),
		Id2:  lob.OrderId(binary.BigEndian.Uint64(msg[9:17])),
		Side: lob.Side(msg[17]),
		Px:   lob.Price(int64(binary.BigEndian.Uint64(msg[18:26]))),
		Qty:  lob.Qty(int64(binary.BigEndian.Uint64(msg[26:34]))),
		Err:  string(msg[reportFixedHeaderLen : reportFixedHeaderLen+int(errLen)]),
	}, nil
}
