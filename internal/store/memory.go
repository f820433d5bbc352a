package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradeflow/internal/model"
)

// MemoryStore 内存实现，语义与GormStore一致
// 用于模拟券商和单元测试，open key冲突用同一把锁串行化解决
type MemoryStore struct {
	mu        sync.Mutex
	seq       uint64
	positions map[uint64]*model.Position
	openKeys  map[string]uint64 // open_key -> position id，对应唯一索引
	fills     map[string]bool   // 已回写过的order_id
	decisions map[string]*model.Decision
	orders    map[string]*model.Order
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[uint64]*model.Position),
		openKeys:  make(map[string]uint64),
		fills:     make(map[string]bool),
		decisions: make(map[string]*model.Decision),
		orders:    make(map[string]*model.Order),
		now:       time.Now,
	}
}

func (s *MemoryStore) GetOpenPosition(_ context.Context, strategy, instrument string, dir model.Direction) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(strategy, instrument, dir), nil
}

func (s *MemoryStore) openLocked(strategy, instrument string, dir model.Direction) *model.Position {
	id, ok := s.openKeys[model.PositionKey(strategy, instrument, dir)]
	if !ok {
		return nil
	}
	p := *s.positions[id]
	return &p
}

func (s *MemoryStore) ListOpenPositions(_ context.Context, strategy string) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Position
	for _, p := range s.positions {
		if (strategy == "" || p.StrategyID == strategy) && p.Status == model.PositionOpen {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ApplyFill(_ context.Context, sig *model.Signal, ord *model.Order) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fills[ord.OrderID] {
		// 重复回写：返回当前仓位，不做任何变更
		if p := s.openLocked(sig.StrategyID, sig.Instrument, sig.Direction); p != nil {
			return p, nil
		}
		return s.openLocked(sig.StrategyID, sig.Instrument, sig.Direction.Opposite()), nil
	}
	s.fills[ord.OrderID] = true

	if pos := s.openRef(sig.StrategyID, sig.Instrument, sig.Direction); pos != nil {
		if reinforces(ord.Side, pos.Direction) {
			return s.accumulateLocked(pos, ord), nil
		}
		return s.reduceLocked(pos, ord), nil
	}

	if opp := s.openRef(sig.StrategyID, sig.Instrument, sig.Direction.Opposite()); opp != nil && !reinforces(ord.Side, opp.Direction) {
		return s.reduceLocked(opp, ord), nil
	}

	dir := sig.Direction
	if !reinforces(ord.Side, dir) {
		if ord.Side == model.ActionBuy {
			dir = model.DirectionLong
		} else {
			dir = model.DirectionShort
		}
	}
	s.seq++
	key := model.PositionKey(sig.StrategyID, sig.Instrument, dir)
	created := &model.Position{
		ID:            s.seq,
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
	s.positions[created.ID] = created
	s.openKeys[key] = created.ID
	cp := *created
	return &cp, nil
}

func (s *MemoryStore) openRef(strategy, instrument string, dir model.Direction) *model.Position {
	id, ok := s.openKeys[model.PositionKey(strategy, instrument, dir)]
	if !ok {
		return nil
	}
	return s.positions[id]
}

func (s *MemoryStore) accumulateLocked(pos *model.Position, ord *model.Order) *model.Position {
	total := pos.Quantity + ord.Quantity
	if total > 0 {
		pos.AvgEntryPrice = (pos.Quantity*pos.AvgEntryPrice + ord.Quantity*ord.AvgFillPrice) / total
	}
	pos.Quantity = total
	pos.UpdatedAt = s.now()
	cp := *pos
	return &cp
}

func (s *MemoryStore) reduceLocked(pos *model.Position, ord *model.Order) *model.Position {
	remaining := pos.Quantity - ord.Quantity
	if remaining < closedEpsilon {
		now := s.now()
		pos.Quantity = 0
		pos.Status = model.PositionClosed
		pos.ClosedAt = &now
		if pos.OpenKey != nil {
			delete(s.openKeys, *pos.OpenKey)
			pos.OpenKey = nil
		}
	} else {
		pos.Quantity = remaining
	}
	pos.UpdatedAt = s.now()
	cp := *pos
	return &cp
}

func (s *MemoryStore) SaveDecision(_ context.Context, d *model.Decision) (*model.Decision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.decisions[d.SignalID]; ok {
		cp := *existing
		return &cp, true, nil
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.seq++
	d.ID = s.seq
	cp := *d
	s.decisions[d.SignalID] = &cp
	return nil, false, nil
}

func (s *MemoryStore) GetBySignalID(_ context.Context, signalID string) (*model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.decisions[signalID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListByStrategy(_ context.Context, strategy string, limit int) ([]model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Decision
	for _, d := range s.decisions {
		if strategy == "" || d.StrategyID == strategy {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now()
	}
	o.UpdatedAt = s.now()
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

func (s *MemoryStore) Update(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.UpdatedAt = s.now()
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

func (s *MemoryStore) GetOrderBySignalID(_ context.Context, signalID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.SignalID == signalID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

// ensure interface compliance
var (
	_ PositionStore = (*MemoryStore)(nil)
	_ DecisionStore = (*MemoryStore)(nil)
	_ OrderStore    = (*MemoryStore)(nil)
	_ PositionStore = (*GormStore)(nil)
	_ DecisionStore = (*GormStore)(nil)
	_ OrderStore    = (*GormStore)(nil)
)
