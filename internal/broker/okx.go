package broker

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tradeflow/conf"
	"tradeflow/internal/model"
	"tradeflow/pkg/backoff"
	"tradeflow/pkg/logger"

	goexv2 "github.com/nntaoli-project/goex/v2"
	goexmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/options"
)

// 结算币种，账户权益按它折算
const settleCoin = "USDT"

// Okx 真实券商适配，现货私有API
// goex的状态码在这里归一到本地订单词汇，外层看不到goex的类型
type Okx struct {
	mu        sync.Mutex
	connected bool
	cfg       conf.BrokerConfig
	retry     backoff.Policy
	prv       goexv2.IPrvRest
	pub       goexv2.IPubRest
}

func NewOkx(cfg conf.BrokerConfig, retry backoff.Policy) *Okx {
	return &Okx{cfg: cfg, retry: retry}
}

// Connect 初始化API并拉取可交易币对，带有限重试
// 重试耗尽由调用方决定是否致命，本层不兜底
func (e *Okx) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected {
		return nil
	}
	if e.cfg.Simulated {
		logger.Warn("okx连接的是模拟盘环境")
	}

	opts := []options.ApiOption{
		options.WithApiKey(e.cfg.ApiKey),
		options.WithApiSecretKey(e.cfg.SecretKey),
		options.WithPassphrase(e.cfg.Password),
	}
	pub := goexv2.OKx.Spot
	prv := pub.NewPrvApi(opts...)

	// 拉币对表既是连接测试也是后续下单的前提，goex内部会缓存
	err := e.retry.Retry(ctx, func() error {
		if _, _, err := pub.GetExchangeInfo(); err != nil {
			logger.Warn("okx GetExchangeInfo失败", logger.Pair("err", err))
			return err
		}
		return nil
	})
	if err != nil {
		return errors.Join(model.ErrBrokerNotReady, err)
	}

	e.pub = pub
	e.prv = prv
	e.connected = true
	return nil
}

func (e *Okx) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Okx) PlaceOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResult, error) {
	if !e.IsConnected() {
		return nil, model.ErrBrokerNotReady
	}
	pair, err := e.toCurrencyPair(req.Symbol)
	if err != nil {
		return nil, &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}

	var side goexmodel.OrderSide
	switch req.Side {
	case model.ActionBuy:
		side = goexmodel.Spot_Buy
	case model.ActionSell:
		side = goexmodel.Spot_Sell
	default:
		return nil, &model.BrokerAPIError{Code: "okx", Message: "invalid order side"}
	}

	orderType := goexmodel.OrderType_Market
	price := req.SuggestedPrice
	if req.OrderType == model.OrderTypeLimit {
		orderType = goexmodel.OrderType_Limit
		price = req.LimitPrice
	}

	created, _, err := e.prv.CreateOrder(pair, req.Quantity, price, side, orderType)
	if err != nil {
		// 券商拒单不重试，原因要原样进决策记录
		return nil, &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	return e.toResult(created), nil
}

func (e *Okx) GetOrderStatus(ctx context.Context, brokerOrderID, symbol string) (*model.OrderResult, error) {
	if !e.IsConnected() {
		return nil, model.ErrBrokerNotReady
	}
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	info, _, err := e.prv.GetOrderInfo(pair, brokerOrderID)
	if err != nil {
		return nil, &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	return e.toResult(info), nil
}

func (e *Okx) CancelOrder(ctx context.Context, brokerOrderID, symbol string) error {
	if !e.IsConnected() {
		return model.ErrBrokerNotReady
	}
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	if _, err := e.prv.CancelOrder(pair, brokerOrderID); err != nil {
		return &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	return nil
}

func (e *Okx) GetAccountBalance(ctx context.Context) (model.AccountState, error) {
	if !e.IsConnected() {
		return model.AccountState{}, model.ErrBrokerNotReady
	}
	balances, _, err := e.prv.GetAccount(settleCoin)
	if err != nil {
		return model.AccountState{}, &model.BrokerAPIError{Code: "okx", Message: err.Error()}
	}
	acct, ok := balances[settleCoin]
	if !ok {
		return model.AccountState{}, &model.BrokerAPIError{Code: "okx", Message: "no balance for " + settleCoin}
	}
	return model.AccountState{
		Equity:          acct.Balance,
		CashBalance:     acct.AvailableBalance,
		MarginUsed:      acct.FrozenBalance,
		MarginAvailable: acct.AvailableBalance,
	}, nil
}

// GetOpenPositions 现货没有保证金仓位概念，仓位事实在本地仓储
func (e *Okx) GetOpenPositions(ctx context.Context) ([]model.Position, error) {
	return nil, nil
}

// toCurrencyPair "BTC/USDT"或"BTC-USDT"转goex币对
func (e *Okx) toCurrencyPair(symbol string) (goexmodel.CurrencyPair, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) == 1 {
		parts = strings.Split(symbol, "-")
	}
	if len(parts) < 2 {
		return goexmodel.CurrencyPair{}, errors.New("invalid symbol: " + symbol)
	}
	return e.pub.NewCurrencyPair(parts[0], parts[1])
}

func (e *Okx) toResult(o *goexmodel.Order) *model.OrderResult {
	return &model.OrderResult{
		BrokerOrderID:     o.Id,
		Status:            normalizeStatus(o.Status),
		AvgFillPrice:      o.PriceAvg,
		FilledQuantity:    o.ExecutedQty,
		RemainingQuantity: o.Qty - o.ExecutedQty,
	}
}

// normalizeStatus goex状态到本地订单状态
func normalizeStatus(s goexmodel.OrderStatus) model.OrderStatus {
	switch s {
	case goexmodel.OrderStatus_Pending:
		return model.OrderSubmitted
	case goexmodel.OrderStatus_PartFinished:
		return model.OrderPartiallyFilled
	case goexmodel.OrderStatus_Finished:
		return model.OrderFilled
	case goexmodel.OrderStatus_Canceled, goexmodel.OrderStatus_Canceling:
		return model.OrderCancelled
	}
	return model.OrderSubmitted
}

var _ Adapter = (*Okx)(nil)
