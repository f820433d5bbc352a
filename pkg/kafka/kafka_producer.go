package kafka

import (
	"context"
	"time"

	"tradeflow/pkg/logger"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// Kafka 生产者服务，决策审计流走这里
// 定义接口，方便测试和替换
type ProducerService interface {
	Produce(ctx context.Context, key []byte, msg any) error
	Close()
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokerURL, topic string) ProducerService {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // 同key保序
		RequiredAcks: kafka.RequireOne,
		Async:        true, // 审计流允许异步，不阻塞交易路径
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka审计消息写入失败", logger.Pair("err", err))
			}
		},
	}
	return &kafkaProducer{writer: w}
}

func (p *kafkaProducer) Produce(ctx context.Context, key []byte, msg any) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *kafkaProducer) Close() {
	if err := p.writer.Close(); err != nil {
		logger.Warn("kafka producer关闭失败", logger.Pair("err", err))
	}
}

// NopProducer 本地联调用，不外发
type NopProducer struct{}

func (NopProducer) Produce(context.Context, []byte, any) error { return nil }
func (NopProducer) Close()                                     {}
