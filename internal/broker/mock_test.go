package broker

import (
	"context"
	"errors"
	"testing"

	"tradeflow/internal/model"
	"tradeflow/internal/store"
)

func TestMockRequiresConnect(t *testing.T) {
	m := NewMock(store.NewMemoryStore())
	_, err := m.PlaceOrder(context.Background(), &model.OrderRequest{
		Symbol: "AAPL", Side: model.ActionBuy,
		OrderType: model.OrderTypeMarket, Quantity: 10, SuggestedPrice: 100,
	})
	if !errors.Is(err, model.ErrBrokerNotReady) {
		t.Fatalf("want ErrBrokerNotReady, got %v", err)
	}
}

func TestMockPlaceAndQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMock(store.NewMemoryStore())
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !m.IsConnected() {
		t.Fatal("expected connected")
	}

	res, err := m.PlaceOrder(ctx, &model.OrderRequest{
		Symbol: "AAPL", Side: model.ActionBuy,
		OrderType: model.OrderTypeMarket, Quantity: 10, SuggestedPrice: 100,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.Status != model.OrderFilled || res.AvgFillPrice != 100 || res.FilledQuantity != 10 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.BrokerOrderID == "" {
		t.Error("empty broker order id")
	}

	got, err := m.GetOrderStatus(ctx, res.BrokerOrderID, "AAPL")
	if err != nil {
		t.Fatalf("GetOrderStatus: %v", err)
	}
	if got.Status != model.OrderFilled {
		t.Errorf("status = %s", got.Status)
	}
}

func TestMockLimitPriceWins(t *testing.T) {
	ctx := context.Background()
	m := NewMock(store.NewMemoryStore())
	m.Connect(ctx)

	res, err := m.PlaceOrder(ctx, &model.OrderRequest{
		Symbol: "AAPL", Side: model.ActionBuy,
		OrderType: model.OrderTypeLimit, Quantity: 5,
		SuggestedPrice: 100, LimitPrice: 99.5,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.AvgFillPrice != 99.5 {
		t.Errorf("fill price = %v", res.AvgFillPrice)
	}
}

func TestMockInvalidPrice(t *testing.T) {
	ctx := context.Background()
	m := NewMock(store.NewMemoryStore())
	m.Connect(ctx)

	_, err := m.PlaceOrder(ctx, &model.OrderRequest{
		Symbol: "AAPL", Side: model.ActionBuy,
		OrderType: model.OrderTypeMarket, Quantity: 10,
	})
	var apiErr *model.BrokerAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want BrokerAPIError, got %v", err)
	}
}

func TestMockOrderNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMock(store.NewMemoryStore())
	m.Connect(ctx)

	_, err := m.GetOrderStatus(ctx, "no-such-order", "AAPL")
	var apiErr *model.BrokerAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want BrokerAPIError, got %v", err)
	}
}

func TestMockCancelTerminalNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMock(store.NewMemoryStore())
	m.Connect(ctx)

	res, _ := m.PlaceOrder(ctx, &model.OrderRequest{
		Symbol: "AAPL", Side: model.ActionBuy,
		OrderType: model.OrderTypeMarket, Quantity: 10, SuggestedPrice: 100,
	})
	// 已成交的单撤不动
	if err := m.CancelOrder(ctx, res.BrokerOrderID, "AAPL"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	got, _ := m.GetOrderStatus(ctx, res.BrokerOrderID, "AAPL")
	if got.Status != model.OrderFilled {
		t.Errorf("status = %s", got.Status)
	}
}
