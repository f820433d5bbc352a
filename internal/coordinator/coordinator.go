package coordinator

import (
	"context"
	"time"

	"tradeflow/conf"
	"tradeflow/internal/account"
	"tradeflow/internal/broker"
	"tradeflow/internal/model"
	"tradeflow/internal/store"
	"tradeflow/pkg/logger"

	"github.com/bwmarrin/snowflake"
)

// 执行协调器：把已批准的决策推过订单状态机
// 仓位只在FILLED时回写；PARTIALLY_FILLED轮询有界次数后保持原状，绝不擅自终结

type Coordinator struct {
	cfg       conf.ExecutionConfig
	broker    broker.Adapter
	positions store.PositionStore
	orders    store.OrderStore
	account   *account.Service
	node      *snowflake.Node
	// 测试替换用，默认按PollInterval真实等待
	wait func(ctx context.Context, d time.Duration) error
}

type Result struct {
	Order    *model.Order
	Position *model.Position
}

func New(cfg conf.ExecutionConfig, b broker.Adapter, positions store.PositionStore, orders store.OrderStore, acct *account.Service) (*Coordinator, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:       cfg,
		broker:    b,
		positions: positions,
		orders:    orders,
		account:   acct,
		node:      node,
		wait:      sleepCtx,
	}, nil
}

// BrokerReady 券商会话是否可用，管道在出决策前检查
func (c *Coordinator) BrokerReady() bool {
	return c.broker.IsConnected()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute 下单并推进到终态或轮询上限
// quantity是闸门定出的最终数量，marginRequired用于成交后的账户保证金占用
func (c *Coordinator) Execute(ctx context.Context, sig *model.Signal, quantity, marginRequired float64) (*Result, error) {
	ord := &model.Order{
		OrderID:   c.node.Generate().String(),
		SignalID:  sig.SignalID,
		Symbol:    sig.Instrument,
		Side:      sig.Action,
		Quantity:  quantity,
		OrderType: sig.OrderType,
		Status:    model.OrderPending,
	}
	if err := c.orders.Create(ctx, ord); err != nil {
		return nil, err
	}

	req := &model.OrderRequest{
		Symbol:         sig.Instrument,
		Side:           sig.Action,
		Quantity:       quantity,
		OrderType:      sig.OrderType,
		SuggestedPrice: sig.Price,
	}
	if sig.OrderType == model.OrderTypeLimit {
		req.LimitPrice = sig.Price
	}

	placeCtx := ctx
	if c.cfg.OrderTimeout > 0 {
		var cancel context.CancelFunc
		placeCtx, cancel = context.WithTimeout(ctx, c.cfg.OrderTimeout)
		defer cancel()
	}

	res, err := c.broker.PlaceOrder(placeCtx, req)
	if err != nil {
		// 券商拒单或不可达：订单置REJECTED，仓位不动
		ord.Status = model.OrderRejected
		if uerr := c.orders.Update(ctx, ord); uerr != nil {
			logger.Error("拒单状态落库失败", logger.Pair("order_id", ord.OrderID), logger.Pair("err", uerr))
		}
		return &Result{Order: ord}, err
	}

	c.apply(ord, res)
	if uerr := c.orders.Update(ctx, ord); uerr != nil {
		logger.Error("订单状态落库失败", logger.Pair("order_id", ord.OrderID), logger.Pair("err", uerr))
	}

	// 非终态有界轮询
	for attempt := 0; attempt < c.cfg.PollAttempts && !ord.Status.Terminal(); attempt++ {
		if werr := c.wait(ctx, c.cfg.PollInterval); werr != nil {
			break
		}
		res, err = c.broker.GetOrderStatus(ctx, ord.BrokerOrderID, ord.Symbol)
		if err != nil {
			logger.Warn("订单状态查询失败",
				logger.Pair("order_id", ord.OrderID),
				logger.Pair("attempt", attempt+1),
				logger.Pair("err", err))
			continue
		}
		c.apply(ord, res)
		if uerr := c.orders.Update(ctx, ord); uerr != nil {
			logger.Error("订单状态落库失败", logger.Pair("order_id", ord.OrderID), logger.Pair("err", uerr))
		}
	}

	switch ord.Status {
	case model.OrderFilled:
		pos, err := c.positions.ApplyFill(ctx, sig, ord)
		if err != nil {
			return &Result{Order: ord}, err
		}
		// 成交即占用保证金，单次原子更新
		c.account.ApplyMargin(marginRequired)
		return &Result{Order: ord, Position: pos}, nil
	case model.OrderRejected:
		return &Result{Order: ord}, &model.BrokerAPIError{Code: "rejected", Message: "order rejected by broker"}
	default:
		// SUBMITTED/PARTIALLY_FILLED留给对账，这里不终结
		logger.Warn("订单未到终态，留待对账",
			logger.Pair("order_id", ord.OrderID),
			logger.Pair("status", ord.Status))
		return &Result{Order: ord}, nil
	}
}

// apply 用券商响应推进本地订单，只有券商响应能改状态
func (c *Coordinator) apply(ord *model.Order, res *model.OrderResult) {
	if res.BrokerOrderID != "" {
		ord.BrokerOrderID = res.BrokerOrderID
	}
	ord.Status = res.Status
	if res.AvgFillPrice > 0 {
		ord.AvgFillPrice = res.AvgFillPrice
	}
}
