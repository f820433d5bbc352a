package model

import "time"

type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
)

// Terminal 是否为终态
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	}
	return false
}

// Order 由执行协调器创建，状态只随券商响应迁移
type Order struct {
	ID            uint64      `gorm:"primaryKey" json:"id"`
	OrderID       string      `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex:uk_order_id" json:"order_id"`
	SignalID      string      `gorm:"column:signal_id;type:varchar(128);not null;index:idx_signal" json:"signal_id"`
	Symbol        string      `gorm:"column:symbol;type:varchar(32);not null" json:"symbol"`
	Side          Action      `gorm:"column:side;type:varchar(8);not null" json:"side"`
	Quantity      float64     `gorm:"column:quantity;type:decimal(20,8);not null" json:"quantity"`
	OrderType     OrderType   `gorm:"column:order_type;type:varchar(8);not null" json:"order_type"`
	Status        OrderStatus `gorm:"column:status;type:varchar(20);not null" json:"status"`
	BrokerOrderID string      `gorm:"column:broker_order_id;type:varchar(64)" json:"broker_order_id"`
	AvgFillPrice  float64     `gorm:"column:avg_fill_price;type:decimal(20,8)" json:"avg_fill_price"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderRequest 发给券商的下单请求
type OrderRequest struct {
	Symbol         string         `json:"symbol"`
	Side           Action         `json:"side"`
	Quantity       float64        `json:"quantity"`
	OrderType      OrderType      `json:"order_type"`
	InstrumentType InstrumentType `json:"instrument_type"`
	SuggestedPrice float64        `json:"suggested_price"` // 市价单用作模拟成交参考价
	LimitPrice     float64        `json:"limit_price"`
}

// OrderResult 券商下单/查询响应，真实券商的差异在适配层归一到这一词汇表
type OrderResult struct {
	BrokerOrderID     string      `json:"broker_order_id"`
	Status            OrderStatus `json:"status"`
	AvgFillPrice      float64     `json:"avg_fill_price"`
	FilledQuantity    float64     `json:"filled_quantity"`
	RemainingQuantity float64     `json:"remaining_quantity"`
}
