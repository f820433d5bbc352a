package broker

import (
	"context"
	"fmt"

	"tradeflow/conf"
	"tradeflow/internal/model"
	"tradeflow/internal/store"
	"tradeflow/pkg/backoff"
)

// 券商适配层：真实券商的状态词汇在这里归一，上层只认model里的那套
// 下单失败绝不在本层自动重试，重试与否由执行协调器决定

type Adapter interface {
	// Connect 建立会话，失败由调用方决定是否致命
	Connect(ctx context.Context) error
	IsConnected() bool

	// PlaceOrder 提交订单。券商侧拒绝返回*model.BrokerAPIError
	PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResult, error)
	GetOrderStatus(ctx context.Context, brokerOrderID, symbol string) (*model.OrderResult, error)
	CancelOrder(ctx context.Context, brokerOrderID, symbol string) error

	GetAccountBalance(ctx context.Context) (model.AccountState, error)
	GetOpenPositions(ctx context.Context) ([]model.Position, error)
}

// New 按配置选择实现；mock不依赖任何外部服务
func New(cfg conf.BrokerConfig, positions store.PositionStore) (Adapter, error) {
	switch cfg.Driver {
	case "", "mock":
		return NewMock(positions), nil
	case "okx":
		retries := backoff.Default()
		if cfg.ConnectRetries > 0 {
			retries.MaxAttempts = cfg.ConnectRetries
		}
		return NewOkx(cfg, retries), nil
	default:
		return nil, fmt.Errorf("unsupported broker driver: %s", cfg.Driver)
	}
}
