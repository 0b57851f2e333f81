package net

import (
	"encoding/binary"
	"errors"

	"tyr/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	SubmitOrder
	CancelOrder
	ModifyOrder
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen  = 2
	SubmitOrderMessageLen = 2 + 2 + 1 + 4 + 4 + 8
	CancelOrderMessageLen = 2 + 8
	ModifyOrderMessageLen = 2 + 1 + 4 + 4 + 8
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case SubmitOrder:
		return parseSubmitOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case ModifyOrder:
		return parseModifyOrder(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type SubmitOrderMessage struct {
	BaseMessage
	OrderType common.OrderType // 2 bytes
	Side      common.Side      // 1 byte
	Price     common.Price     // 4 bytes, ignored for market orders
	Quantity  common.Quantity  // 4 bytes
	OrderID   common.OrderID   // 8 bytes
}

// Order translates the wire message into an engine submission record.
func (m *SubmitOrderMessage) Order() *common.Order {
	if m.OrderType == common.Market {
		return common.NewMarketOrder(m.OrderID, m.Side, m.Quantity)
	}
	return common.NewOrder(m.OrderType, m.OrderID, m.Side, m.Price, m.Quantity)
}

func parseSubmitOrder(msg []byte) (*SubmitOrderMessage, error) {
	if len(msg) < SubmitOrderMessageLen-BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}

	m := &SubmitOrderMessage{BaseMessage: BaseMessage{TypeOf: SubmitOrder}}
	m.OrderType = common.OrderType(binary.BigEndian.Uint16(msg[0:2]))
	m.Side = common.Side(msg[2])
	m.Price = common.Price(binary.BigEndian.Uint32(msg[3:7]))
	m.Quantity = common.Quantity(binary.BigEndian.Uint32(msg[7:11]))
	m.OrderID = binary.BigEndian.Uint64(msg[11:19])
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID common.OrderID // 8 bytes
}

func parseCancelOrder(msg []byte) (*CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageLen-BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}

	m := &CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.OrderID = binary.BigEndian.Uint64(msg[0:8])
	return m, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	Side     common.Side     // 1 byte
	Price    common.Price    // 4 bytes
	Quantity common.Quantity // 4 bytes
	OrderID  common.OrderID  // 8 bytes
}

// Modify translates the wire message into the engine's replacement record.
func (m *ModifyOrderMessage) Modify() common.OrderModify {
	return common.OrderModify{
		ID:       m.OrderID,
		Side:     m.Side,
		Price:    m.Price,
		Quantity: m.Quantity,
	}
}

func parseModifyOrder(msg []byte) (*ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderMessageLen-BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}

	m := &ModifyOrderMessage{BaseMessage: BaseMessage{TypeOf: ModifyOrder}}
	m.Side = common.Side(msg[0])
	m.Price = common.Price(binary.BigEndian.Uint32(msg[1:5]))
	m.Quantity = common.Quantity(binary.BigEndian.Uint32(msg[5:9]))
	m.OrderID = binary.BigEndian.Uint64(msg[9:17])
	return m, nil
}

// Report is the fixed-layout frame sent back to a client: one execution
// report per trade the client's submission produced, or an error report for
// a malformed message.
type Report struct {
	MessageType    ReportMessageType // 1 byte
	Side           common.Side       // 1 byte
	Price          common.Price      // 4 bytes
	Quantity       common.Quantity   // 4 bytes
	OrderID        common.OrderID    // 8 bytes
	CounterpartyID common.OrderID    // 8 bytes
	ErrStrLen      uint32            // 4 bytes
	Err            string            // n bytes
}

const reportFixedHeaderLen = 1 + 1 + 4 + 4 + 8 + 8 + 4

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() []byte {
	buf := make([]byte, reportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint32(buf[2:6], uint32(r.Price))
	binary.BigEndian.PutUint32(buf[6:10], uint32(r.Quantity))
	binary.BigEndian.PutUint64(buf[10:18], r.OrderID)
	binary.BigEndian.PutUint64(buf[18:26], r.CounterpartyID)
	binary.BigEndian.PutUint32(buf[26:30], r.ErrStrLen)
	copy(buf[reportFixedHeaderLen:], r.Err)
	return buf
}

// executionReport frames one trade from the submitting client's
// perspective: their leg's price and quantity plus the counterparty's id.
func executionReport(trade common.Trade, submitted common.OrderID) Report {
	leg, counter := trade.Bid, trade.Ask
	side := common.Buy
	if trade.Ask.OrderID == submitted {
		leg, counter = trade.Ask, trade.Bid
		side = common.Sell
	}
	return Report{
		MessageType:    ExecutionReport,
		Side:           side,
		Price:          leg.Price,
		Quantity:       leg.Quantity,
		OrderID:        leg.OrderID,
		CounterpartyID: counter.OrderID,
	}
}

func errorReport(err error) Report {
	errStr := err.Error()
	return Report{
		MessageType: ErrorReport,
		ErrStrLen:   uint32(len(errStr)),
		Err:         errStr,
	}
}
