package account

import (
	"context"
	"sync"
	"time"

	"tradeflow/internal/broker"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// 账户快照服务：保证金闸门读的是这里的快照，不直接打券商
// 快照更新必须是原子的，闸门绝不能读到半新半旧的状态

type Service struct {
	mu      sync.RWMutex
	state   model.AccountState
	broker  broker.Adapter
	refresh time.Duration
}

func NewService(b broker.Adapter, refresh time.Duration) *Service {
	if refresh <= 0 {
		refresh = 30 * time.Second
	}
	return &Service{broker: b, refresh: refresh}
}

// Snapshot 当前账户状态，整体拷贝返回
func (s *Service) Snapshot() model.AccountState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Refresh 从券商拉一次余额并整体替换快照
func (s *Service) Refresh(ctx context.Context) error {
	state, err := s.broker.GetAccountBalance(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// ApplyMargin 成交后就地占用/释放保证金，下一次Refresh会以券商为准纠偏
func (s *Service) ApplyMargin(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MarginUsed += delta
	s.state.MarginAvailable -= delta
	if s.state.MarginUsed < 0 {
		s.state.MarginUsed = 0
	}
}

// Run 周期刷新直到ctx取消，失败只告警，旧快照继续用
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				logger.Warn("账户快照刷新失败", logger.Pair("err", err))
			}
		}
	}
}
