package conf

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（API密钥、风控参数等）

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// BrokerConfig 选择券商实现：mock 或 okx
type BrokerConfig struct {
	Driver         string `yaml:"driver"` // mock / okx
	ApiKey         string `yaml:"apiKey"`
	SecretKey      string `yaml:"secretKey"`
	Password       string `yaml:"password"`
	Simulated      bool   `yaml:"simulated"`
	ConnectRetries int    `yaml:"connect-retries"` // 连接失败重试次数，超过即终止进程

	BalanceRefresh time.Duration `yaml:"balance-refresh"` // 账户余额轮询周期
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MarginConfig 仓位/保证金相关参数
type MarginConfig struct {
	MaxMarginUtilizationPct float64 `yaml:"max-margin-utilization-pct"` // 保证金占用率硬上限，如0.40
	DefaultPositionSizePct  float64 `yaml:"default-position-size-pct"`  // 策略没有配置分配比例时的兜底，如0.05

	// 策略资金分配比例 strategy_id -> pct (0~1)
	Allocations map[string]float64 `yaml:"allocations"`

	// 各品种的保证金率，期货/期权必须由券商返回，表中不配置
	MarginRates map[string]float64 `yaml:"margin-rates"`

	// 各品种的最小交易单位，股票=1股，外汇/加密货币可为小数
	LotSizes map[string]float64 `yaml:"lot-sizes"`
}

// StoreConfig 仓位存储的读重试参数
type StoreConfig struct {
	ReadRetries   int           `yaml:"read-retries"`    // 默认3
	ReadBackoff   time.Duration `yaml:"read-backoff"`    // 默认500ms
	WriteRetries  int           `yaml:"write-retries"`   // 连接类错误的写重试上限
	QueryTimeout  time.Duration `yaml:"query-timeout"`   // 单次查询超时
	SignalIDCache time.Duration `yaml:"signal-id-cache"` // redis幂等缓存的TTL
}

// ExecutionConfig 订单执行参数
type ExecutionConfig struct {
	OrderTimeout time.Duration `yaml:"order-timeout"` // 单笔信号处理超时
	PollAttempts int           `yaml:"poll-attempts"` // 部分成交时的轮询次数
	PollInterval time.Duration `yaml:"poll-interval"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"` // 秒
}

type KafkaConfig struct {
	Broker        string `yaml:"broker"`
	DecisionTopic string `yaml:"decision-topic"`
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	MaxPingCount int    `yaml:"max-ping-count"`

	Webhook   WebhookConfig `yaml:"webhook"`
	Broker    BrokerConfig  `yaml:"broker"`
	Db        `yaml:"database"`
	Margin    MarginConfig    `yaml:"margin"`
	Store     StoreConfig     `yaml:"store"`
	Execution ExecutionConfig `yaml:"execution"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	applyDefaults(&AppConfig)
	return nil
}

func applyDefaults(c *Config) {
	if c.Margin.MaxMarginUtilizationPct <= 0 {
		c.Margin.MaxMarginUtilizationPct = 0.40
	}
	if c.Margin.DefaultPositionSizePct <= 0 {
		c.Margin.DefaultPositionSizePct = 0.05
	}
	if c.Store.ReadRetries <= 0 {
		c.Store.ReadRetries = 3
	}
	if c.Store.ReadBackoff <= 0 {
		c.Store.ReadBackoff = 500 * time.Millisecond
	}
	if c.Execution.OrderTimeout <= 0 {
		c.Execution.OrderTimeout = 30 * time.Second
	}
	if c.Execution.PollAttempts <= 0 {
		c.Execution.PollAttempts = 5
	}
	if c.Execution.PollInterval <= 0 {
		c.Execution.PollInterval = time.Second
	}
	if c.Broker.ConnectRetries <= 0 {
		c.Broker.ConnectRetries = 3
	}
	if c.Broker.BalanceRefresh <= 0 {
		c.Broker.BalanceRefresh = 30 * time.Second
	}
	if c.Store.SignalIDCache <= 0 {
		c.Store.SignalIDCache = 24 * time.Hour
	}
}
