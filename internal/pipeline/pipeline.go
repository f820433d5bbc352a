package pipeline

import (
	"context"
	"errors"
	"time"

	"tradeflow/conf"
	"tradeflow/internal/classifier"
	"tradeflow/internal/consts"
	"tradeflow/internal/coordinator"
	"tradeflow/internal/margin"
	"tradeflow/internal/model"
	"tradeflow/internal/normalizer"
	"tradeflow/internal/store"
	"tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// 信号处理主链路：标准化 -> 幂等检查 -> 分类 -> 定量 -> 执行 -> 决策落库
// 每个信号一条goroutine，一个信号有且仅有一条决策

type Service struct {
	cfg        conf.Config
	normalizer *normalizer.Normalizer
	classifier *classifier.Classifier
	gate       *margin.Gate
	coord      *coordinator.Coordinator
	account    AccountSource
	positions  store.PositionStore
	decisions  store.DecisionStore
	producer   kafka.ProducerService
	rdb        *redis.Client // 可为nil，幂等快路径降级到数据库
}

// AccountSource 保证金闸门读的账户快照来源
type AccountSource interface {
	Snapshot() model.AccountState
}

func NewService(
	cfg conf.Config,
	n *normalizer.Normalizer,
	c *classifier.Classifier,
	g *margin.Gate,
	coord *coordinator.Coordinator,
	acct AccountSource,
	positions store.PositionStore,
	decisions store.DecisionStore,
	producer kafka.ProducerService,
	rdb *redis.Client,
) *Service {
	if producer == nil {
		producer = kafka.NopProducer{}
	}
	return &Service{
		cfg:        cfg,
		normalizer: n,
		classifier: c,
		gate:       g,
		coord:      coord,
		account:    acct,
		positions:  positions,
		decisions:  decisions,
		producer:   producer,
		rdb:        rdb,
	}
}

// Accept webhook入口：同步标准化（坏报文立即拒绝），其余链路异步
// 返回标准化后的信号，decision稍后可按signal_id查询
func (s *Service) Accept(payload []byte) (*model.Signal, error) {
	metrics.SignalsReceived.Inc()
	sig, err := s.normalizer.Normalize(payload)
	if err != nil {
		metrics.SignalsMalformed.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.recordMalformed(ctx, payload)
		return nil, err
	}
	go func() {
		started := time.Now()
		defer func() { metrics.PipelineDuration.Observe(time.Since(started).Seconds()) }()
		ctx, cancel := context.WithTimeout(context.Background(), s.signalTimeout())
		defer cancel()
		if _, err := s.processSignal(ctx, sig); err != nil {
			logger.Warn("信号处理失败", logger.Pair("signal_id", sig.SignalID), logger.Pair("err", err))
		}
	}()
	return sig, nil
}

func (s *Service) signalTimeout() time.Duration {
	if t := s.cfg.Execution.OrderTimeout; t > 0 {
		return t
	}
	return 30 * time.Second
}

// Process 同步处理一条原始信号，返回该信号的决策
func (s *Service) Process(ctx context.Context, payload []byte) (*model.Decision, error) {
	sig, err := s.normalizer.Normalize(payload)
	if err != nil {
		s.recordMalformed(ctx, payload)
		return nil, err
	}
	return s.processSignal(ctx, sig)
}

// recordMalformed 坏报文也要留痕：能提取或派生出signal_id就落一条拒绝决策
// 连身份都拿不到的报文只能计数，无从审计
func (s *Service) recordMalformed(ctx context.Context, payload []byte) {
	signalID, strategyID, instrument := s.normalizer.Identify(payload)
	if signalID == "" {
		return
	}
	sig := &model.Signal{SignalID: signalID, StrategyID: strategyID, Instrument: instrument}
	if _, err := s.reject(ctx, sig, model.ReasonMalformedSignal); err != nil {
		logger.Warn("坏报文决策落库失败", logger.Pair("signal_id", signalID), logger.Pair("err", err))
	}
}

func (s *Service) processSignal(ctx context.Context, sig *model.Signal) (*model.Decision, error) {
	// 幂等：同signal_id直接返回已有决策，绝不二次下单
	if existing, err := s.lookupExisting(ctx, sig.SignalID); err != nil {
		return s.reject(ctx, sig, model.ReasonStoreUnavailable)
	} else if existing != nil {
		logger.Info("重复信号，返回已有决策",
			logger.Pair("signal_id", sig.SignalID),
			logger.Pair("outcome", existing.Outcome))
		return existing, nil
	}

	cls, err := s.classifier.Classify(ctx, sig)
	if err != nil {
		return s.reject(ctx, sig, model.ReasonStoreUnavailable)
	}
	sig.SignalType = cls.Type
	if cls.Type == model.SignalUnknown {
		return s.reject(ctx, sig, model.ReasonAmbiguousSignalType)
	}

	switch cls.Type {
	case model.SignalEntry, model.SignalScaleIn:
		return s.processEntry(ctx, sig)
	default:
		return s.processExit(ctx, sig, cls)
	}
}

// processEntry ENTRY/SCALE_IN走保证金闸门定量
func (s *Service) processEntry(ctx context.Context, sig *model.Signal) (*model.Decision, error) {
	// 券商断连时不产生注定无法执行的放行决策
	if !s.coord.BrokerReady() {
		return s.reject(ctx, sig, model.ReasonBrokerUnavailable)
	}
	sizing, err := s.gate.Size(ctx, sig, s.account.Snapshot())
	if err != nil {
		logger.Warn("定量失败", logger.Pair("signal_id", sig.SignalID), logger.Pair("err", err))
	}
	if !sizing.Approved {
		return s.reject(ctx, sig, sizing.Reason)
	}

	d := &model.Decision{
		SignalID:         sig.SignalID,
		StrategyID:       sig.StrategyID,
		Instrument:       sig.Instrument,
		SignalType:       sig.SignalType,
		Outcome:          model.DecisionApproved,
		Reason:           sizing.Reason,
		OriginalQuantity: sizing.OriginalQuantity,
		FinalQuantity:    sizing.FinalQuantity,
		MarginRequired:   sizing.MarginRequired,
		AllocatedCapital: sizing.AllocatedCapital,
		LowConfidence:    sizing.LowConfidence,
	}
	if sizing.Modified {
		d.Outcome = model.DecisionModified
	}
	return s.finalize(ctx, sig, d, sizing.MarginRequired)
}

// processExit EXIT全平，SCALE_OUT按信号数量减仓（缺省减半）
// 平仓不占新保证金，不走闸门
func (s *Service) processExit(ctx context.Context, sig *model.Signal, cls classifier.Result) (*model.Decision, error) {
	if !s.coord.BrokerReady() {
		return s.reject(ctx, sig, model.ReasonBrokerUnavailable)
	}
	target := cls.SamePosition
	if sig.SignalType == model.SignalExit && cls.OppositePosition != nil {
		target = cls.OppositePosition
	}
	if target == nil {
		// 分类走的显式标注，仓位还没读过
		var err error
		target, err = s.lookupExitTarget(ctx, sig)
		if err != nil {
			return s.reject(ctx, sig, model.ReasonStoreUnavailable)
		}
	}
	if target == nil {
		// 平仓信号但无仓可平
		return s.reject(ctx, sig, model.ReasonAmbiguousSignalType)
	}

	quantity := target.Quantity
	if sig.SignalType == model.SignalScaleOut {
		switch {
		case sig.Quantity > 0 && sig.Quantity < target.Quantity:
			quantity = sig.Quantity
		default:
			quantity = target.Quantity / 2
		}
	}

	d := &model.Decision{
		SignalID:         sig.SignalID,
		StrategyID:       sig.StrategyID,
		Instrument:       sig.Instrument,
		SignalType:       sig.SignalType,
		Outcome:          model.DecisionApproved,
		Reason:           model.ReasonApproved,
		OriginalQuantity: quantity,
		FinalQuantity:    quantity,
	}
	return s.finalize(ctx, sig, d, 0)
}

// finalize 决策落库（幂等），放行的交给执行协调器
func (s *Service) finalize(ctx context.Context, sig *model.Signal, d *model.Decision, marginRequired float64) (*model.Decision, error) {
	existing, found, err := s.decisions.SaveDecision(ctx, d)
	if err != nil {
		return nil, err
	}
	if found {
		// 并发重复信号输给了先写的一方
		return existing, nil
	}
	s.cacheSignalID(ctx, sig.SignalID)
	s.publish(d)

	if !d.Approved() {
		return d, nil
	}

	res, err := s.coord.Execute(ctx, sig, d.FinalQuantity, marginRequired)
	if err != nil {
		logger.Error("订单执行失败",
			logger.Pair("signal_id", sig.SignalID),
			logger.Pair("err", err))
	}
	if res != nil && res.Order != nil {
		metrics.Orders.WithLabelValues(string(res.Order.Status)).Inc()
	}
	return d, nil
}

// reject 写拒绝决策并返回
func (s *Service) reject(ctx context.Context, sig *model.Signal, reason string) (*model.Decision, error) {
	d := &model.Decision{
		SignalID:   sig.SignalID,
		StrategyID: sig.StrategyID,
		Instrument: sig.Instrument,
		SignalType: sig.SignalType,
		Outcome:    model.DecisionRejected,
		Reason:     reason,
	}
	existing, found, err := s.decisions.SaveDecision(ctx, d)
	if err != nil {
		logger.Error("拒绝决策落库失败",
			logger.Pair("signal_id", sig.SignalID),
			logger.Pair("reason", reason),
			logger.Pair("err", err))
		return d, errors.Join(model.ErrStoreUnavailable, err)
	}
	if found {
		return existing, nil
	}
	s.cacheSignalID(ctx, sig.SignalID)
	s.publish(d)
	return d, nil
}

// lookupExisting 幂等检查，数据库是权威
// redis命中说明上游在重发，直接打日志方便排查重发风暴
func (s *Service) lookupExisting(ctx context.Context, signalID string) (*model.Decision, error) {
	if s.rdb != nil {
		if n, err := s.rdb.Exists(ctx, consts.SignalDecisionPrefix+signalID).Result(); err == nil && n > 0 {
			logger.Info("信号命中幂等缓存", logger.Pair("signal_id", signalID))
		}
	}
	return s.decisions.GetBySignalID(ctx, signalID)
}

// lookupExitTarget 显式标注的平仓信号没经过仓位推断，这里补查
// 先按信号方向找，找不到再找反向（反手信号的方向指向新方向）
func (s *Service) lookupExitTarget(ctx context.Context, sig *model.Signal) (*model.Position, error) {
	p, err := s.positions.GetOpenPosition(ctx, sig.StrategyID, sig.Instrument, sig.Direction)
	if err != nil || p != nil {
		return p, err
	}
	return s.positions.GetOpenPosition(ctx, sig.StrategyID, sig.Instrument, sig.Direction.Opposite())
}

func (s *Service) cacheSignalID(ctx context.Context, signalID string) {
	if s.rdb == nil {
		return
	}
	ttl := s.cfg.Store.SignalIDCache
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.rdb.Set(ctx, consts.SignalDecisionPrefix+signalID, 1, ttl).Err(); err != nil {
		logger.Warn("幂等缓存写入失败", logger.Pair("signal_id", signalID), logger.Pair("err", err))
	}
}

func (s *Service) publish(d *model.Decision) {
	metrics.Decisions.WithLabelValues(string(d.Outcome), d.Reason).Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.producer.Produce(ctx, []byte(d.SignalID), d); err != nil {
		logger.Warn("决策审计消息发送失败", logger.Pair("signal_id", d.SignalID), logger.Pair("err", err))
	}
}
