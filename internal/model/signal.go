package model

import "time"

/*
来源于外部策略的标准化信号

	{
	  "signal_id": "momentum_v2_20250812_103001_001",
	  "strategy_id": "momentum_v2",
	  "instrument": "AAPL",
	  "direction": "LONG",
	  "action": "BUY",
	  "order_type": "MARKET",
	  "price": 175.5,
	  "quantity": 0,
	  "signal_type": "ENTRY"
	}
*/

// Direction 仓位方向
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite 返回相反方向
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// Action 买卖动作
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// SignalType 信号类型，显式给出时分类器无条件采信
type SignalType string

const (
	SignalEntry    SignalType = "ENTRY"
	SignalExit     SignalType = "EXIT"
	SignalScaleIn  SignalType = "SCALE_IN"
	SignalScaleOut SignalType = "SCALE_OUT"
	SignalUnknown  SignalType = "UNKNOWN"
)

// Valid 是否是四种可识别类型之一
func (t SignalType) Valid() bool {
	switch t {
	case SignalEntry, SignalExit, SignalScaleIn, SignalScaleOut:
		return true
	}
	return false
}

// InstrumentType 品种类型，决定保证金率和最小交易单位
type InstrumentType string

const (
	InstrumentStock   InstrumentType = "stock"
	InstrumentForex   InstrumentType = "forex"
	InstrumentCrypto  InstrumentType = "crypto"
	InstrumentFutures InstrumentType = "futures"
	InstrumentOptions InstrumentType = "options"
)

// Leg 多腿合约的单腿描述
type Leg struct {
	Instrument string    `json:"instrument"`
	Action     Action    `json:"action"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	OrderType  OrderType `json:"order_type"`
}

// Signal 标准化后的交易信号，创建后不可变，由分类器消费一次
type Signal struct {
	SignalID      string         `json:"signal_id"`
	StrategyID    string         `json:"strategy_id"`
	Instrument    string         `json:"instrument"`
	Direction     Direction      `json:"direction"`
	Action        Action         `json:"action"`
	OrderType     OrderType      `json:"order_type"`
	Price         float64        `json:"price"`
	Quantity      float64        `json:"quantity"`
	StopLoss      float64        `json:"stop_loss"`
	TakeProfit    float64        `json:"take_profit"`
	SignalType    SignalType     `json:"signal_type"`
	EntrySignalID string         `json:"entry_signal_id"` // 回指开仓信号
	Legs          []Leg          `json:"legs,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// MultiLeg 是否为多腿信号
func (s *Signal) MultiLeg() bool { return len(s.Legs) > 1 }
