package model

import "time"

// Fill 成交回写台账
// order_id唯一索引使ApplyFill天然幂等：同一订单的重复回写会被拒绝
type Fill struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	OrderID    string    `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex:uk_fill_order" json:"order_id"`
	SignalID   string    `gorm:"column:signal_id;type:varchar(128);not null" json:"signal_id"`
	PositionID uint64    `gorm:"column:position_id;not null;index:idx_fill_position" json:"position_id"`
	Quantity   float64   `gorm:"column:quantity;type:decimal(20,8);not null" json:"quantity"`
	Price      float64   `gorm:"column:price;type:decimal(20,8);not null" json:"price"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Fill) TableName() string { return "position_fills" }
