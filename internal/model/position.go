package model

import (
	"fmt"
	"time"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position 持仓记录
// 不变式：同一 (strategy_id, instrument, direction) 最多只有一条OPEN记录，
// 由open_key的唯一索引在存储层保证（MySQL没有partial index，
// OPEN时open_key=strategy|instrument|direction，平仓时置NULL释放约束）
type Position struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	StrategyID    string         `gorm:"column:strategy_id;type:varchar(64);not null" json:"strategy_id"`
	Instrument    string         `gorm:"column:instrument;type:varchar(32);not null" json:"instrument"`
	Direction     Direction      `gorm:"column:direction;type:varchar(8);not null" json:"direction"`
	Quantity      float64        `gorm:"column:quantity;type:decimal(20,8);not null" json:"quantity"`
	AvgEntryPrice float64        `gorm:"column:avg_entry_price;type:decimal(20,8);not null" json:"avg_entry_price"`
	Status        PositionStatus `gorm:"column:status;type:varchar(8);not null;index:idx_strategy_status" json:"status"`
	OpenKey       *string        `gorm:"column:open_key;type:varchar(128);uniqueIndex:uk_open_position" json:"-"`
	OpenedAt      time.Time      `gorm:"column:opened_at" json:"opened_at"`
	ClosedAt      *time.Time     `gorm:"column:closed_at" json:"closed_at,omitempty"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Position) TableName() string { return "positions" }

// PositionKey open_key的取值
func PositionKey(strategy, instrument string, dir Direction) string {
	return fmt.Sprintf("%s|%s|%s", strategy, instrument, dir)
}

// CostBasis 持仓成本，用于计算策略已部署资金
func (p *Position) CostBasis() float64 {
	return p.Quantity * p.AvgEntryPrice
}
