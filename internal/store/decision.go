package store

import (
	"context"
	"errors"
	"time"

	"tradeflow/internal/model"

	"gorm.io/gorm"
)

// 决策与订单记录走同一个GormStore，共享连接与写重试策略

func (s *GormStore) SaveDecision(ctx context.Context, d *model.Decision) (*model.Decision, bool, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	err := s.write.Retry(ctx, func() error {
		err := s.db.WithContext(ctx).Create(d).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 幂等路径：同signal_id的决策已存在，不算失败不重试
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, errors.Join(model.ErrStoreUnavailable, err)
	}
	if d.ID != 0 {
		return nil, false, nil
	}

	existing, err := s.GetBySignalID(ctx, d.SignalID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, model.ErrStoreUnavailable
	}
	return existing, true, nil
}

func (s *GormStore) GetBySignalID(ctx context.Context, signalID string) (*model.Decision, error) {
	var d model.Decision
	res := s.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Limit(1).
		Find(&d)
	if res.Error != nil {
		return nil, errors.Join(model.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &d, nil
}

func (s *GormStore) ListByStrategy(ctx context.Context, strategy string, limit int) ([]model.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	var decisions []model.Decision
	q := s.db.WithContext(ctx).Model(&model.Decision{})
	if strategy != "" {
		q = q.Where("strategy_id = ?", strategy)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&decisions).Error
	if err != nil {
		return nil, errors.Join(model.ErrStoreUnavailable, err)
	}
	return decisions, nil
}

func (s *GormStore) Create(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	o.UpdatedAt = s.now()
	err := s.write.Retry(ctx, func() error {
		return s.db.WithContext(ctx).Create(o).Error
	})
	if err != nil {
		return errors.Join(model.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, o *model.Order) error {
	o.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Model(o).Updates(map[string]any{
		"status":          o.Status,
		"broker_order_id": o.BrokerOrderID,
		"avg_fill_price":  o.AvgFillPrice,
		"updated_at":      o.UpdatedAt,
	}).Error
	if err != nil {
		return errors.Join(model.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormStore) GetOrderBySignalID(ctx context.Context, signalID string) (*model.Order, error) {
	var o model.Order
	res := s.db.WithContext(ctx).
		Where("signal_id = ?", signalID).
		Limit(1).
		Find(&o)
	if res.Error != nil {
		return nil, errors.Join(model.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &o, nil
}
