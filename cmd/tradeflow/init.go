package main

import (
	"context"

	"tradeflow/conf"
	"tradeflow/internal/account"
	"tradeflow/internal/broker"
	"tradeflow/internal/classifier"
	"tradeflow/internal/coordinator"
	decisionhandler "tradeflow/internal/handler/decision"
	positionhandler "tradeflow/internal/handler/position"
	webhookhandler "tradeflow/internal/handler/webhook"
	"tradeflow/internal/margin"
	"tradeflow/internal/normalizer"
	"tradeflow/internal/pipeline"
	"tradeflow/internal/router"
	"tradeflow/internal/store"
	"tradeflow/pkg/backoff"
	"tradeflow/pkg/cache"
	"tradeflow/pkg/db"
	"tradeflow/pkg/kafka"
	"tradeflow/pkg/logger"
	"tradeflow/pkg/recorder"

	"github.com/redis/go-redis/v9"
)

// InitRouter 组装整条信号处理链路并返回API路由
func InitRouter(ctx context.Context) (Router, func()) {
	appCfg := conf.AppConfig

	gdb := db.Init(db.NewConfig(
		appCfg.Db.Username,
		appCfg.Db.Password,
		appCfg.Db.Host,
		appCfg.Db.Port,
		appCfg.Db.DbName,
	))

	readPolicy := backoff.Policy{MaxAttempts: appCfg.Store.ReadRetries, BaseDelay: appCfg.Store.ReadBackoff}
	writePolicy := backoff.Policy{MaxAttempts: appCfg.Store.WriteRetries, BaseDelay: appCfg.Store.ReadBackoff}
	if writePolicy.MaxAttempts <= 0 {
		writePolicy.MaxAttempts = 1
	}
	gstore := store.NewGormStore(gdb, readPolicy, writePolicy)
	if err := gstore.AutoMigrate(); err != nil {
		logger.Fatal("建表失败", logger.Pair("err", err))
	}

	// 券商连接失败是致命错误，交易系统不能在断连状态下静默运行
	bk, err := broker.New(appCfg.Broker, gstore)
	if err != nil {
		logger.Fatal("券商初始化失败", logger.Pair("err", err))
	}
	if err := bk.Connect(ctx); err != nil {
		logger.Fatal("券商连接失败", logger.Pair("err", err))
	}

	acct := account.NewService(bk, appCfg.Broker.BalanceRefresh)
	if err := acct.Refresh(ctx); err != nil {
		logger.Warn("首次账户快照拉取失败", logger.Pair("err", err))
	}
	go acct.Run(ctx)

	var rdb *redis.Client
	if appCfg.Redis.Addr != "" {
		cache.InitRedis(appCfg.Redis)
		rdb = cache.GetRedisClient()
	}

	// 审计流优先走kafka，没配就退化到本地JSON文件
	var producer kafka.ProducerService = recorder.NewJSONFileRecorder("logs/decisions.json")
	if appCfg.Kafka.Broker != "" {
		producer = kafka.NewKafkaProducer(appCfg.Kafka.Broker, appCfg.Kafka.DecisionTopic)
	}

	gate := margin.NewGate(appCfg.Margin, margin.NewConfigAllocator(appCfg.Margin.Allocations), gstore)
	coord, err := coordinator.New(appCfg.Execution, bk, gstore, gstore, acct)
	if err != nil {
		logger.Fatal("执行协调器初始化失败", logger.Pair("err", err))
	}

	svc := pipeline.NewService(
		appCfg,
		normalizer.New(),
		classifier.New(gstore),
		gate,
		coord,
		acct,
		gstore,
		gstore,
		producer,
		rdb,
	)

	apiRouter := router.NewApiRouter(
		webhookhandler.NewHandler(svc),
		decisionhandler.NewHandler(gstore),
		positionhandler.NewHandler(gstore),
	)

	cleanup := func() {
		producer.Close()
		cache.CloseRedis()
		logger.Sync()
	}
	return apiRouter, cleanup
}
