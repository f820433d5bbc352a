package broker

import (
	"context"
	"sync"

	"tradeflow/internal/model"
	"tradeflow/internal/store"

	"github.com/google/uuid"
)

// Mock 模拟券商，本地联调和测试用
// 市价单按建议价立即全量成交，限价单按限价成交，撤单永远成功
type Mock struct {
	mu        sync.Mutex
	connected bool
	orders    map[string]*model.OrderResult
	account   model.AccountState
	positions store.PositionStore
}

func NewMock(positions store.PositionStore) *Mock {
	return &Mock{
		orders:    make(map[string]*model.OrderResult),
		positions: positions,
		account: model.AccountState{
			Equity:          100000,
			CashBalance:     100000,
			MarginAvailable: 100000,
		},
	}
}

// SetAccountState 测试前置账户状态
func (m *Mock) SetAccountState(s model.AccountState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account = s
}

func (m *Mock) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) PlaceOrder(_ context.Context, req *model.OrderRequest) (*model.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, model.ErrBrokerNotReady
	}

	price := req.SuggestedPrice
	if req.OrderType == model.OrderTypeLimit && req.LimitPrice > 0 {
		price = req.LimitPrice
	}
	if price <= 0 {
		return nil, &model.BrokerAPIError{Code: "51000", Message: "invalid price"}
	}

	result := &model.OrderResult{
		BrokerOrderID:  uuid.NewString(),
		Status:         model.OrderFilled,
		AvgFillPrice:   price,
		FilledQuantity: req.Quantity,
	}
	m.orders[result.BrokerOrderID] = result
	cp := *result
	return &cp, nil
}

func (m *Mock) GetOrderStatus(_ context.Context, brokerOrderID, _ string) (*model.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.orders[brokerOrderID]
	if !ok {
		return nil, &model.BrokerAPIError{Code: "51603", Message: "order not found"}
	}
	cp := *result
	return &cp, nil
}

func (m *Mock) CancelOrder(_ context.Context, brokerOrderID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if result, ok := m.orders[brokerOrderID]; ok && !result.Status.Terminal() {
		result.Status = model.OrderCancelled
	}
	return nil
}

func (m *Mock) GetAccountBalance(_ context.Context) (model.AccountState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account, nil
}

func (m *Mock) GetOpenPositions(ctx context.Context) ([]model.Position, error) {
	// 仓位以共享仓储为准，模拟券商不自己记账
	return m.positions.ListOpenPositions(ctx, "")
}

var _ Adapter = (*Mock)(nil)
