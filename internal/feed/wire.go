package feed

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/orderflow/internal/model"
)

// dataMessage is the envelope for every server frame.
type dataMessage struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

// orderMsg is the payload of a "type":"order" frame. Prices arrive as
// decimal strings and are converted to internal ten-thousandths.
type orderMsg struct {
	OrderID      uint64 `json:"order_id"`
	InstrumentID string `json:"instrument_id"`
	Side         string `json:"side"`
	State        string `json:"state"`
	Quantity     int64  `json:"quantity"`
	Price        string `json:"price"`
	Timestamp    int64  `json:"ts"`
}

// ParseOrder decodes one raw frame. The second return value reports whether
// the frame carried an order at all: heartbeats, command responses and other
// message types are skipped without error.
func ParseOrder(data []byte) (model.Order, bool, error) {
	var env dataMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Order{}, false, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != "order" {
		return model.Order{}, false, nil
	}

	var msg orderMsg
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		return model.Order{}, true, fmt.Errorf("decode order: %w", err)
	}

	side, err := model.ParseSide(msg.Side)
	if err != nil {
		return model.Order{}, true, err
	}
	state, err := model.ParseOrderState(msg.State)
	if err != nil {
		return model.Order{}, true, err
	}
	price, err := parsePrice(msg.Price)
	if err != nil {
		return model.Order{}, true, err
	}

	o := model.Order{
		OrderID:      msg.OrderID,
		InstrumentID: msg.InstrumentID,
		Side:         side,
		State:        state,
		Quantity:     msg.Quantity,
		Price:        price,
		Timestamp:    msg.Timestamp,
	}
	if err := o.Validate(); err != nil {
		return model.Order{}, true, err
	}
	return o, true, nil
}

// parsePrice converts a decimal price string to internal ten-thousandths.
// "12.3456" -> 123456. Excess precision is truncated toward zero.
func parsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return d.Shift(4).IntPart(), nil
}

// subscribeCommand encodes the subscribe frame for the orders channel.
func subscribeCommand(id int64, instruments []string) ([]byte, error) {
	cmd := Command{
		ID: id,
		Op: "subscribe",
		Params: SubscribeParams{
			Channels:    []string{"orders"},
			Instruments: instruments,
		},
	}
	return json.Marshal(cmd)
}
