package store

import (
	"context"
	"errors"
	"math"
	"time"

	"tradeflow/internal/model"
	"tradeflow/pkg/backoff"

	"gorm.io/gorm"
)

// applyFill在写冲突（唯一索引被并发写抢先）时重做read-decide-write的次数
const applyFillRetries = 3

const closedEpsilon = 1e-9

// GormStore 持仓/决策/订单的MySQL实现
// 唯一性约束uk_open_position是并发正确性的真正机制，读重试只负责吸收复制延迟
type GormStore struct {
	db    *gorm.DB
	read  backoff.Policy
	write backoff.Policy
	now   func() time.Time
}

func NewGormStore(db *gorm.DB, read, write backoff.Policy) *GormStore {
	return &GormStore{db: db, read: read, write: write, now: time.Now}
}

// AutoMigrate 建表，唯一索引随模型定义创建
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Position{},
		&model.Fill{},
		&model.Decision{},
		&model.Order{},
	)
}

func (s *GormStore) GetOpenPosition(ctx context.Context, strategy, instrument string, dir model.Direction) (*model.Position, error) {
	var pos *model.Position
	err := s.read.Retry(ctx, func() error {
		var p model.Position
		res := s.db.WithContext(ctx).
			Where("strategy_id = ?", strategy).
			Where("instrument = ?", instrument).
			Where("direction = ?", dir).
			Where("status = ?", model.PositionOpen).
			Limit(1).
			Find(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 可能是复制延迟，留给下一次重试
			return gorm.ErrRecordNotFound
		}
		pos = &p
		return nil
	})
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 重试耗尽仍未读到，按"无仓位"处理
		return nil, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, model.ErrStoreUnavailable
	}
	return nil, errors.Join(model.ErrStoreUnavailable, err)
}

func (s *GormStore) ListOpenPositions(ctx context.Context, strategy string) ([]model.Position, error) {
	var positions []model.Position
	q := s.db.WithContext(ctx).Where("status = ?", model.PositionOpen)
	if strategy != "" {
		q = q.Where("strategy_id = ?", strategy)
	}
	err := q.Find(&positions).Error
	if err != nil {
		return nil, errors.Join(model.ErrStoreUnavailable, err)
	}
	return positions, nil
}

func (s *GormStore) ApplyFill(ctx context.Context, sig *model.Signal, ord *model.Order) (*model.Position, error) {
	var result *model.Position
	var lastErr error

	for attempt := 0; attempt < applyFillRetries; attempt++ {
		result, lastErr = s.applyFillOnce(ctx, sig, ord)
		if lastErr == nil {
			return result, nil
		}
		// 输掉并发写竞争的一方重做整个read-decide-write循环
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if lastErr != nil {
		if errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return nil, errors.Join(model.ErrStoreUnavailable, lastErr)
		}
		return nil, lastErr
	}
	return result, nil
}

func (s *GormStore) applyFillOnce(ctx context.Context, sig *model.Signal, ord *model.Order) (*model.Position, error) {
	var out *model.Position

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 幂等台账：同一订单只回写一次
		fill := &model.Fill{
			OrderID:   ord.OrderID,
			SignalID:  sig.SignalID,
			Quantity:  ord.Quantity,
			Price:     ord.AvgFillPrice,
			CreatedAt: s.now(),
		}
		if err := tx.Create(fill).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// 已经回写过，返回当前仓位，不再变更
				existing, ferr := s.currentPosition(tx, sig)
				if ferr != nil {
					return ferr
				}
				out = existing
				return nil
			}
			return err
		}

		pos, err := s.lockOpen(tx, sig.StrategyID, sig.Instrument, sig.Direction)
		if err != nil {
			return err
		}

		if pos != nil {
			if reinforces(ord.Side, pos.Direction) {
				out, err = s.accumulate(tx, pos, ord)
			} else {
				out, err = s.reduce(tx, pos, ord)
			}
			if err != nil {
				return err
			}
			fill.PositionID = out.ID
			return tx.Model(fill).Update("position_id", out.ID).Error
		}

		// 本方向没有OPEN仓位，反向有则视为平反向（反手信号）
		opposite, err := s.lockOpen(tx, sig.StrategyID, sig.Instrument, sig.Direction.Opposite())
		if err != nil {
			return err
		}
		if opposite != nil && !reinforces(ord.Side, opposite.Direction) {
			out, err = s.reduce(tx, opposite, ord)
			if err != nil {
				return err
			}
			fill.PositionID = out.ID
			return tx.Model(fill).Update("position_id", out.ID).Error
		}

		// 新开仓。open_key的唯一索引兜底并发双开
		dir := sig.Direction
		if !reinforces(ord.Side, dir) {
			if ord.Side == model.ActionBuy {
				dir = model.DirectionLong
			} else {
				dir = model.DirectionShort
			}
		}
		key := model.PositionKey(sig.StrategyID, sig.Instrument, dir)
		created := &model.Position{
			StrategyID:    sig.StrategyID,
			Instrument:    sig.Instrument,
			Direction:     dir,
			Quantity:      ord.Quantity,
			AvgEntryPrice: ord.AvgFillPrice,
			Status:        model.PositionOpen,
			OpenKey:       &key,
			OpenedAt:      s.now(),
			UpdatedAt:     s.now(),
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		out = created
		return tx.Model(fill).Update("position_id", created.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		return nil, errors.Join(model.ErrStoreUnavailable, err)
	}
	return out, nil
}

// lockOpen SELECT ... FOR UPDATE读取OPEN仓位，事务内串行化同键更新
func (s *GormStore) lockOpen(tx *gorm.DB, strategy, instrument string, dir model.Direction) (*model.Position, error) {
	var p model.Position
	res := tx.
		Set("gorm:query_option", "FOR UPDATE").
		Where("strategy_id = ?", strategy).
		Where("instrument = ?", instrument).
		Where("direction = ?", dir).
		Where("status = ?", model.PositionOpen).
		Limit(1).
		Find(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &p, nil
}

func (s *GormStore) currentPosition(tx *gorm.DB, sig *model.Signal) (*model.Position, error) {
	p, err := s.lockOpen(tx, sig.StrategyID, sig.Instrument, sig.Direction)
	if err != nil || p != nil {
		return p, err
	}
	return s.lockOpen(tx, sig.StrategyID, sig.Instrument, sig.Direction.Opposite())
}

// accumulate 同向加仓：数量累加，均价按成交量加权
func (s *GormStore) accumulate(tx *gorm.DB, pos *model.Position, ord *model.Order) (*model.Position, error) {
	total := pos.Quantity + ord.Quantity
	if total > 0 {
		pos.AvgEntryPrice = (pos.Quantity*pos.AvgEntryPrice + ord.Quantity*ord.AvgFillPrice) / total
	}
	pos.Quantity = total
	pos.UpdatedAt = s.now()
	err := tx.Model(pos).Updates(map[string]any{
		"quantity":        pos.Quantity,
		"avg_entry_price": pos.AvgEntryPrice,
		"updated_at":      pos.UpdatedAt,
	}).Error
	return pos, err
}

// reduce 减仓，减到0即CLOSED并释放open_key，CLOSED不可复活
func (s *GormStore) reduce(tx *gorm.DB, pos *model.Position, ord *model.Order) (*model.Position, error) {
	remaining := pos.Quantity - ord.Quantity
	if math.Abs(remaining) < closedEpsilon || remaining < 0 {
		now := s.now()
		pos.Quantity = 0
		pos.Status = model.PositionClosed
		pos.OpenKey = nil
		pos.ClosedAt = &now
		pos.UpdatedAt = now
		err := tx.Model(pos).Updates(map[string]any{
			"quantity":   0,
			"status":     model.PositionClosed,
			"open_key":   gorm.Expr("NULL"),
			"closed_at":  now,
			"updated_at": now,
		}).Error
		return pos, err
	}
	pos.Quantity = remaining
	pos.UpdatedAt = s.now()
	err := tx.Model(pos).Updates(map[string]any{
		"quantity":   remaining,
		"updated_at": pos.UpdatedAt,
	}).Error
	return pos, err
}

// reinforces BUY加强LONG，SELL加强SHORT
func reinforces(side model.Action, dir model.Direction) bool {
	return (side == model.ActionBuy && dir == model.DirectionLong) ||
		(side == model.ActionSell && dir == model.DirectionShort)
}
