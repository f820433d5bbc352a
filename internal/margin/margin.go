package margin

import (
	"context"
	"math"

	"tradeflow/conf"
	"tradeflow/internal/model"
	"tradeflow/internal/normalizer"
	"tradeflow/internal/store"
)

// 仓位大小计算与保证金闸门
// 除了读账户快照和分配来源，这里是纯函数，不做任何写操作

// SizingResult 定量结果，调用方无法忽略拒绝分支
type SizingResult struct {
	Approved         bool
	Modified         bool // 因保证金余量被等比例缩减
	Reason           string
	OriginalQuantity float64
	FinalQuantity    float64
	MarginRequired   float64
	AllocatedCapital float64
	LowConfidence    bool // 分配比例走了兜底值
}

func rejected(reason string) SizingResult {
	return SizingResult{Approved: false, Reason: reason}
}

type Gate struct {
	cfg       conf.MarginConfig
	allocator Allocator
	positions store.PositionStore
}

func NewGate(cfg conf.MarginConfig, allocator Allocator, positions store.PositionStore) *Gate {
	return &Gate{cfg: cfg, allocator: allocator, positions: positions}
}

// Size 计算下单数量并套用保证金上限
// 算法顺序固定：占用率硬上限 -> 分配比例 -> 价格校验 -> 数量 -> 保证金估算 -> 余量缩减
func (g *Gate) Size(ctx context.Context, sig *model.Signal, account model.AccountState) (SizingResult, error) {
	// 1. 占用率已越线直接拒绝
	if account.MarginUtilization() > g.cfg.MaxMarginUtilizationPct {
		return rejected(model.ReasonMarginLimitExceeded), nil
	}

	// 2. 策略分配比例，解析不到用兜底值并标记低置信
	pct, ok, err := g.allocator.Resolve(ctx, sig.StrategyID)
	if err != nil {
		return rejected(model.ReasonStoreUnavailable), err
	}
	lowConfidence := false
	if !ok {
		pct = g.cfg.DefaultPositionSizePct
		lowConfidence = true
	}

	// 3. 分配资金；SCALE_IN时扣掉该策略已部署部分
	allocated := account.Equity * pct
	if sig.SignalType == model.SignalScaleIn {
		deployed, err := g.DeployedCapital(ctx, sig.StrategyID)
		if err != nil {
			return rejected(model.ReasonStoreUnavailable), err
		}
		allocated -= deployed
		if allocated <= 0 {
			return rejected(model.ReasonInsufficientMargin), nil
		}
	}

	if sig.Price <= 0 {
		return rejected(model.ReasonInvalidPrice), nil
	}

	// 4. 连续数量，按品种最小单位取整
	instrumentType := g.instrumentType(sig)
	quantity := g.roundLot(allocated/sig.Price, instrumentType)
	if quantity <= 0 {
		return rejected(model.ReasonInsufficientMargin), nil
	}

	// 5. 保证金估算。期货/期权的保证金依赖具体策略，必须由券商给出，
	// 这里显式失败而不是猜一个费率
	rate, ok := g.marginRate(instrumentType)
	if !ok {
		return rejected(model.ReasonUnsupportedInstrument), nil
	}
	marginRequired := quantity * sig.Price * rate

	// 6. 余量不足时等比例缩量
	ceiling := account.Equity * g.cfg.MaxMarginUtilizationPct
	headroom := ceiling - account.MarginUsed
	if headroom <= 0 {
		return rejected(model.ReasonInsufficientMargin), nil
	}

	result := SizingResult{
		Approved:         true,
		Reason:           model.ReasonApproved,
		OriginalQuantity: quantity,
		FinalQuantity:    quantity,
		MarginRequired:   marginRequired,
		AllocatedCapital: allocated,
		LowConfidence:    lowConfidence,
	}

	if marginRequired > headroom {
		factor := headroom / marginRequired
		reducedQty := g.roundLot(quantity*factor, instrumentType)
		if reducedQty <= 0 {
			return rejected(model.ReasonInsufficientMargin), nil
		}
		result.Modified = true
		result.Reason = model.ReasonMarginReduced
		result.FinalQuantity = reducedQty
		// 取整后的数量重算，不能沿用缩减前的估算值
		result.MarginRequired = reducedQty * sig.Price * rate
	}
	return result, nil
}

// DeployedCapital 策略已部署资金 = 各OPEN仓位成本之和
func (g *Gate) DeployedCapital(ctx context.Context, strategy string) (float64, error) {
	positions, err := g.positions.ListOpenPositions(ctx, strategy)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, p := range positions {
		total += p.CostBasis()
	}
	return total, nil
}

// instrumentType metadata优先，其次配置的品种映射，默认按股票处理
func (g *Gate) instrumentType(sig *model.Signal) model.InstrumentType {
	if t := normalizer.MetadataString(sig.Metadata, "instrument_type"); t != "" {
		return model.InstrumentType(t)
	}
	return model.InstrumentStock
}

func (g *Gate) marginRate(t model.InstrumentType) (float64, bool) {
	if rate, ok := g.cfg.MarginRates[string(t)]; ok && rate > 0 {
		return rate, true
	}
	// Reg-T风格的默认表；期货/期权有意缺席
	switch t {
	case model.InstrumentStock:
		return 0.50, true
	case model.InstrumentForex:
		return 0.02, true
	case model.InstrumentCrypto:
		return 0.10, true
	}
	return 0, false
}

// roundLot 按品种最小交易单位向下取整，未配置的品种保留连续数量
func (g *Gate) roundLot(quantity float64, t model.InstrumentType) float64 {
	lot := g.cfg.LotSizes[string(t)]
	if lot <= 0 && t == model.InstrumentStock {
		lot = 1 // 股票默认整股
	}
	if lot <= 0 {
		return quantity
	}
	return math.Floor(quantity/lot) * lot
}
