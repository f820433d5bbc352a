package classifier

import (
	"context"
	"strings"

	"tradeflow/internal/model"
	"tradeflow/internal/normalizer"
	"tradeflow/internal/store"
)

// 信号分类：ENTRY / EXIT / SCALE_IN / SCALE_OUT
// 显式signal_type永远优先于推断，推断只读仓位，从不改状态

// Result 分类结果，UNKNOWN是合法但需要告警的终态
type Result struct {
	Type     model.SignalType
	Explicit bool // 类型来自信号本身而非推断
	Reason   string
	// 推断时读到的仓位快照，交给后续环节复用，避免二次查询
	SamePosition     *model.Position
	OppositePosition *model.Position
}

type Classifier struct {
	positions store.PositionStore
}

func New(positions store.PositionStore) *Classifier {
	return &Classifier{positions: positions}
}

// Classify 决定信号的类型
// 判定顺序是承重结构：显式标注 > 仓位推断，顺序不可调整
func (c *Classifier) Classify(ctx context.Context, sig *model.Signal) (Result, error) {
	// 1. 显式类型：顶层字段，其次metadata.original_signal.signal_type
	if sig.SignalType.Valid() {
		return Result{Type: sig.SignalType, Explicit: true, Reason: "explicit signal_type"}, nil
	}
	if t := explicitFromMetadata(sig.Metadata); t.Valid() {
		return Result{Type: t, Explicit: true, Reason: "explicit metadata.original_signal"}, nil
	}

	// 2. 推断：读取本方向和反方向的OPEN仓位
	same, err := c.positions.GetOpenPosition(ctx, sig.StrategyID, sig.Instrument, sig.Direction)
	if err != nil {
		return Result{Type: model.SignalUnknown}, err
	}
	opposite, err := c.positions.GetOpenPosition(ctx, sig.StrategyID, sig.Instrument, sig.Direction.Opposite())
	if err != nil {
		return Result{Type: model.SignalUnknown}, err
	}

	res := Result{SamePosition: same, OppositePosition: opposite}

	switch {
	case same == nil && opposite == nil:
		res.Type = model.SignalEntry
		res.Reason = "no open position in either direction"
	case same != nil:
		if reinforces(sig.Action, sig.Direction) {
			res.Type = model.SignalScaleIn
			res.Reason = "action reinforces open position"
		} else {
			res.Type = model.SignalScaleOut
			res.Reason = "action reduces open position"
		}
	case opposite != nil:
		// 反向有仓位：视为平反向（反手）
		res.Type = model.SignalExit
		res.Reason = "closes opposite-direction position"
	default:
		// 走不到这里，但绝不继续猜
		res.Type = model.SignalUnknown
		res.Reason = model.ReasonAmbiguousSignalType
	}
	return res, nil
}

func explicitFromMetadata(meta map[string]any) model.SignalType {
	raw := normalizer.MetadataString(meta, "original_signal", "signal_type")
	if raw == "" {
		raw = normalizer.MetadataString(meta, "original_signal", "type")
	}
	return model.SignalType(strings.ToUpper(strings.TrimSpace(raw)))
}

func reinforces(action model.Action, dir model.Direction) bool {
	return (action == model.ActionBuy && dir == model.DirectionLong) ||
		(action == model.ActionSell && dir == model.DirectionShort)
}
