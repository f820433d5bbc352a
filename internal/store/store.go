package store

import (
	"context"

	"tradeflow/internal/model"
)

// 存储接口在进程启动时构造一次，按引用传给各组件，不做进程级单例

// PositionStore 持仓的唯一归属方，仓位生命周期变更只能经过这里
type PositionStore interface {
	// GetOpenPosition 查询OPEN仓位，带有限重试以吸收读写复制延迟
	// 重试耗尽返回(nil, nil)，调用方解释为"无仓位"（文档化的最终一致性风险）
	GetOpenPosition(ctx context.Context, strategy, instrument string, dir model.Direction) (*model.Position, error)
	// ListOpenPositions 某策略的全部OPEN仓位，用于计算已部署资金
	// strategy传空串表示不过滤策略
	ListOpenPositions(ctx context.Context, strategy string) ([]model.Position, error)
	// ApplyFill 幂等回写成交：同向加仓按成交量加权更新均价，减仓到0置CLOSED
	// CLOSED是终态，新开仓永远创建新记录
	ApplyFill(ctx context.Context, sig *model.Signal, ord *model.Order) (*model.Position, error)
}

// DecisionStore 决策审计记录，每个signal_id有且仅有一条
type DecisionStore interface {
	// SaveDecision 插入决策；signal_id已存在时返回已有记录和found=true（幂等路径）
	SaveDecision(ctx context.Context, d *model.Decision) (existing *model.Decision, found bool, err error)
	GetBySignalID(ctx context.Context, signalID string) (*model.Decision, error)
	ListByStrategy(ctx context.Context, strategy string, limit int) ([]model.Decision, error)
}

// OrderStore 订单记录
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	Update(ctx context.Context, o *model.Order) error
	GetOrderBySignalID(ctx context.Context, signalID string) (*model.Order, error)
}
