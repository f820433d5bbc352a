package normalizer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tradeflow/internal/consts"
	"tradeflow/internal/model"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// 信号标准化：把外部payload整理成统一的Signal
// 纯转换，不写任何状态也不打日志

// rawSignal 外部payload的宽松形态，字段名存在多种写法，未知字段直接忽略
type rawSignal struct {
	SignalID      string          `json:"signal_id"`
	StrategyID    string          `json:"strategy_id"`
	Strategy      string          `json:"strategy"` // strategy_id的别名
	Instrument    string          `json:"instrument"`
	Symbol        string          `json:"symbol"` // instrument的别名
	Direction     string          `json:"direction"`
	Action        string          `json:"action"`
	Side          string          `json:"side"` // action的别名
	OrderType     string          `json:"order_type"`
	Price         float64         `json:"price"`
	Quantity      float64         `json:"quantity"`
	StopLoss      float64         `json:"stop_loss"`
	TakeProfit    float64         `json:"take_profit"`
	SignalType    string          `json:"signal_type"`
	EntrySignalID string          `json:"entry_signal_id"`
	Legs          []model.Leg     `json:"legs"`
	Metadata      map[string]any  `json:"metadata"`
	Timestamp     json.RawMessage `json:"timestamp"`
}

type Normalizer struct {
	mu   sync.Mutex
	now  func() time.Time
	seqs map[string]seqState // strategy -> 同一秒内的序号
}

type seqState struct {
	second int64
	seq    int
}

func New() *Normalizer {
	return &Normalizer{
		now:  time.Now,
		seqs: make(map[string]seqState),
	}
}

// NewWithClock 测试用，注入时钟
func NewWithClock(now func() time.Time) *Normalizer {
	n := New()
	n.now = now
	return n
}

// Normalize 解析原始payload
// 支持单腿对象、数组包装的单腿、多腿三种形态；缺少instrument或action返回ErrMalformedSignal
func (n *Normalizer) Normalize(payload []byte) (*model.Signal, error) {
	raw, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedSignal, err)
	}

	sig := &model.Signal{
		SignalID:      strings.TrimSpace(raw.SignalID),
		StrategyID:    firstNonEmpty(raw.StrategyID, raw.Strategy),
		Instrument:    firstNonEmpty(raw.Instrument, raw.Symbol),
		Direction:     model.Direction(strings.ToUpper(raw.Direction)),
		Action:        model.Action(strings.ToUpper(firstNonEmpty(raw.Action, raw.Side))),
		OrderType:     model.OrderType(strings.ToUpper(raw.OrderType)),
		Price:         raw.Price,
		Quantity:      raw.Quantity,
		StopLoss:      raw.StopLoss,
		TakeProfit:    raw.TakeProfit,
		SignalType:    model.SignalType(strings.ToUpper(raw.SignalType)),
		EntrySignalID: raw.EntrySignalID,
		Legs:          raw.Legs,
		Metadata:      raw.Metadata,
		Timestamp:     parseTimestamp(raw.Timestamp, n.now),
	}

	// 多腿payload：顶层字段缺失时从第一腿补齐
	if len(sig.Legs) > 0 {
		first := sig.Legs[0]
		if sig.Instrument == "" {
			sig.Instrument = first.Instrument
		}
		if sig.Action == "" {
			sig.Action = model.Action(strings.ToUpper(string(first.Action)))
		}
		if sig.Price == 0 {
			sig.Price = first.Price
		}
		if sig.Quantity == 0 {
			sig.Quantity = first.Quantity
		}
		if sig.OrderType == "" {
			sig.OrderType = first.OrderType
		}
	}

	if sig.Instrument == "" || (sig.Action != model.ActionBuy && sig.Action != model.ActionSell) {
		return nil, model.ErrMalformedSignal
	}

	if sig.Direction != model.DirectionLong && sig.Direction != model.DirectionShort {
		// 方向缺失时按动作推导：BUY视为做多意图，SELL视为做空
		if sig.Action == model.ActionBuy {
			sig.Direction = model.DirectionLong
		} else {
			sig.Direction = model.DirectionShort
		}
	}
	if sig.OrderType != model.OrderTypeMarket && sig.OrderType != model.OrderTypeLimit {
		sig.OrderType = model.OrderTypeMarket
	}

	// 幂等锚点：来源带了id原样使用，上游重试会复用同一个id
	if sig.SignalID == "" {
		sig.SignalID = n.deriveID(sig.StrategyID, sig.Timestamp)
	}
	return sig, nil
}

// Identify 从无法标准化的报文中尽力提取身份，决策审计用
// 带signal_id的原样返回；只有strategy的派生一个id；连JSON都不是的返回零值
func (n *Normalizer) Identify(payload []byte) (signalID, strategyID, instrument string) {
	raw, err := decode(payload)
	if err != nil {
		return "", "", ""
	}
	signalID = strings.TrimSpace(raw.SignalID)
	strategyID = firstNonEmpty(raw.StrategyID, raw.Strategy)
	instrument = firstNonEmpty(raw.Instrument, raw.Symbol)
	if signalID == "" && strategyID != "" {
		signalID = n.deriveID(strategyID, parseTimestamp(raw.Timestamp, n.now))
	}
	return signalID, strategyID, instrument
}

// decode 依次尝试 单个对象 / 数组包装 两种形态
func decode(payload []byte) (*rawSignal, error) {
	var raw rawSignal
	if err := json.Unmarshal(payload, &raw); err == nil {
		return &raw, nil
	}

	var wrapped []rawSignal
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped) == 0 {
		return nil, fmt.Errorf("empty signal array")
	}
	return &wrapped[0], nil
}

// deriveID {strategy}_{yyyyMMdd}_{HHmmss}_{seq}，seq在同一策略同一秒内递增
func (n *Normalizer) deriveID(strategy string, ts time.Time) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	sec := ts.Unix()
	st := n.seqs[strategy]
	if st.second == sec {
		st.seq++
	} else {
		st = seqState{second: sec, seq: 1}
	}
	n.seqs[strategy] = st

	return fmt.Sprintf("%s_%s_%s_%03d",
		strategy,
		ts.Format(consts.SignalIDDateLayout),
		ts.Format(consts.SignalIDTimeLayout),
		st.seq,
	)
}

// parseTimestamp 兼容RFC3339字符串和毫秒时间戳
func parseTimestamp(raw json.RawMessage, now func() time.Time) time.Time {
	if len(raw) == 0 {
		return now()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse(consts.TimeLayout, s); err == nil {
			return t
		}
		return now()
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		if ms > 1e12 {
			return time.UnixMilli(ms)
		}
		return time.Unix(ms, 0)
	}
	return now()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// MetadataString 从metadata中提取字符串字段，供分类器读取original_signal
func MetadataString(meta map[string]any, keys ...string) string {
	cur := meta
	for i, key := range keys {
		if cur == nil {
			return ""
		}
		v, ok := cur[key]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			return cast.ToString(v)
		}
		cur = cast.ToStringMap(v)
	}
	return ""
}
