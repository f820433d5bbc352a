package model

import "time"

type DecisionOutcome string

const (
	DecisionApproved DecisionOutcome = "APPROVED"
	DecisionRejected DecisionOutcome = "REJECTED"
	DecisionModified DecisionOutcome = "MODIFIED"
)

// 决策的拒绝/修改原因码，写入审计记录供下游看板消费
const (
	ReasonMarginLimitExceeded   = "MARGIN_LIMIT_EXCEEDED"
	ReasonInsufficientMargin    = "INSUFFICIENT_MARGIN"
	ReasonInvalidPrice          = "INVALID_PRICE"
	ReasonMalformedSignal       = "MALFORMED_SIGNAL"
	ReasonAmbiguousSignalType   = "AMBIGUOUS_SIGNAL_TYPE"
	ReasonStoreUnavailable      = "STORE_UNAVAILABLE"
	ReasonBrokerUnavailable     = "BROKER_UNAVAILABLE"
	ReasonUnsupportedInstrument = "UNSUPPORTED_INSTRUMENT"
	ReasonMarginReduced         = "MARGIN_HEADROOM_REDUCED"
	ReasonApproved              = "APPROVED"
)

// Decision 每个信号有且仅有一条决策记录，创建后不再变更
type Decision struct {
	ID               uint64          `gorm:"primaryKey" json:"id"`
	SignalID         string          `gorm:"column:signal_id;type:varchar(128);not null;uniqueIndex:uk_signal_id" json:"signal_id"`
	StrategyID       string          `gorm:"column:strategy_id;type:varchar(64);index:idx_strategy" json:"strategy_id"`
	Instrument       string          `gorm:"column:instrument;type:varchar(32)" json:"instrument"`
	SignalType       SignalType      `gorm:"column:signal_type;type:varchar(16)" json:"signal_type"`
	Outcome          DecisionOutcome `gorm:"column:outcome;type:varchar(16);not null" json:"decision"`
	Reason           string          `gorm:"column:reason;type:varchar(64)" json:"reason"`
	OriginalQuantity float64         `gorm:"column:original_quantity;type:decimal(20,8)" json:"original_quantity"`
	FinalQuantity    float64         `gorm:"column:final_quantity;type:decimal(20,8)" json:"final_quantity"`
	MarginRequired   float64         `gorm:"column:margin_required;type:decimal(20,8)" json:"margin_required"`
	AllocatedCapital float64         `gorm:"column:allocated_capital;type:decimal(20,8)" json:"allocated_capital"`
	LowConfidence    bool            `gorm:"column:low_confidence" json:"low_confidence"` // 分配比例走了兜底值
	CreatedAt        time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Decision) TableName() string { return "decisions" }

// Approved 决策是否放行（含改量放行）
func (d *Decision) Approved() bool {
	return d.Outcome == DecisionApproved || d.Outcome == DecisionModified
}
