package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradeflow/conf"
	"tradeflow/internal/account"
	"tradeflow/internal/broker"
	"tradeflow/internal/model"
	"tradeflow/internal/store"
)

// stubBroker 按脚本返回下单和查询结果
type stubBroker struct {
	placeResult *model.OrderResult
	placeErr    error
	pollResults []*model.OrderResult
	polls       int
}

func (s *stubBroker) Connect(context.Context) error { return nil }
func (s *stubBroker) IsConnected() bool             { return true }

func (s *stubBroker) PlaceOrder(context.Context, *model.OrderRequest) (*model.OrderResult, error) {
	return s.placeResult, s.placeErr
}

func (s *stubBroker) GetOrderStatus(context.Context, string, string) (*model.OrderResult, error) {
	s.polls++
	if s.polls <= len(s.pollResults) {
		return s.pollResults[s.polls-1], nil
	}
	return s.placeResult, nil
}

func (s *stubBroker) CancelOrder(context.Context, string, string) error { return nil }

func (s *stubBroker) GetAccountBalance(context.Context) (model.AccountState, error) {
	return model.AccountState{}, nil
}

func (s *stubBroker) GetOpenPositions(context.Context) ([]model.Position, error) { return nil, nil }

var _ broker.Adapter = (*stubBroker)(nil)

func testSignal() *model.Signal {
	return &model.Signal{
		SignalID: "sig-1", StrategyID: "s1", Instrument: "AAPL",
		Direction: model.DirectionLong, Action: model.ActionBuy,
		OrderType: model.OrderTypeMarket, Price: 100,
		SignalType: model.SignalEntry,
	}
}

func newCoordinator(t *testing.T, b broker.Adapter, ms *store.MemoryStore) (*Coordinator, *account.Service) {
	t.Helper()
	acct := account.NewService(b, time.Minute)
	c, err := New(conf.ExecutionConfig{PollAttempts: 3, PollInterval: time.Millisecond}, b, ms, ms, acct)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.wait = func(context.Context, time.Duration) error { return nil }
	return c, acct
}

func TestExecuteFilled(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	mb := broker.NewMock(ms)
	mb.Connect(ctx)
	c, acct := newCoordinator(t, mb, ms)

	res, err := c.Execute(ctx, testSignal(), 10, 500)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Order.Status != model.OrderFilled {
		t.Errorf("status = %s", res.Order.Status)
	}
	if res.Position == nil || res.Position.Quantity != 10 || res.Position.AvgEntryPrice != 100 {
		t.Errorf("position = %+v", res.Position)
	}

	state := acct.Snapshot()
	if state.MarginUsed != 500 {
		t.Errorf("margin used = %v", state.MarginUsed)
	}

	ord, _ := ms.GetOrderBySignalID(ctx, "sig-1")
	if ord == nil || ord.Status != model.OrderFilled || ord.BrokerOrderID == "" {
		t.Errorf("persisted order = %+v", ord)
	}
}

func TestExecutePlaceFailure(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	sb := &stubBroker{placeErr: &model.BrokerAPIError{Code: "50001", Message: "service unavailable"}}
	c, acct := newCoordinator(t, sb, ms)

	res, err := c.Execute(ctx, testSignal(), 10, 500)
	var apiErr *model.BrokerAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want BrokerAPIError, got %v", err)
	}
	if res.Order.Status != model.OrderRejected {
		t.Errorf("status = %s", res.Order.Status)
	}
	if res.Position != nil {
		t.Error("rejected order must not touch positions")
	}
	if acct.Snapshot().MarginUsed != 0 {
		t.Error("rejected order must not occupy margin")
	}

	ord, _ := ms.GetOrderBySignalID(ctx, "sig-1")
	if ord == nil || ord.Status != model.OrderRejected {
		t.Errorf("persisted order = %+v", ord)
	}
}

func TestExecutePartialFillLeftOpen(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	partial := &model.OrderResult{
		BrokerOrderID: "bk-1", Status: model.OrderPartiallyFilled,
		AvgFillPrice: 100, FilledQuantity: 4, RemainingQuantity: 6,
	}
	sb := &stubBroker{placeResult: partial}
	c, acct := newCoordinator(t, sb, ms)

	res, err := c.Execute(ctx, testSignal(), 10, 500)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// 轮询打满仍未终结：保持PARTIALLY_FILLED留待对账，不回写仓位
	if res.Order.Status != model.OrderPartiallyFilled {
		t.Errorf("status = %s", res.Order.Status)
	}
	if res.Position != nil {
		t.Error("non-terminal order must not touch positions")
	}
	if acct.Snapshot().MarginUsed != 0 {
		t.Error("non-terminal order must not occupy margin")
	}
	if sb.polls != 3 {
		t.Errorf("poll attempts = %d", sb.polls)
	}
}

func TestExecuteFilledAfterPolling(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	sb := &stubBroker{
		placeResult: &model.OrderResult{BrokerOrderID: "bk-1", Status: model.OrderSubmitted},
		pollResults: []*model.OrderResult{
			{BrokerOrderID: "bk-1", Status: model.OrderSubmitted},
			{BrokerOrderID: "bk-1", Status: model.OrderFilled, AvgFillPrice: 101, FilledQuantity: 10},
		},
	}
	c, _ := newCoordinator(t, sb, ms)

	res, err := c.Execute(ctx, testSignal(), 10, 500)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Order.Status != model.OrderFilled || res.Order.AvgFillPrice != 101 {
		t.Errorf("order = %+v", res.Order)
	}
	if res.Position == nil || res.Position.AvgEntryPrice != 101 {
		t.Errorf("position = %+v", res.Position)
	}
}
