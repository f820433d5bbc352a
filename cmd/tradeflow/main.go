package main

import (
	"context"
	"flag"
	"log"

	"tradeflow/conf"
	"tradeflow/pkg/logger"
)

// 启动服务（监听webhook）

/*
测试

BODY='{"strategy":"tv-breakout-v2","symbol":"BTC/USDT","side":"buy","price":65000,"signal_type":"ENTRY"}'
SECRET="ab12cd34ef56abcdef1234567890abcdef1234567890abcdef1234567890"
SIGNATURE=$(echo -n $BODY | openssl dgst -sha256 -hmac $SECRET | sed 's/^.* //')

curl -X POST http://localhost:8090/webhook \
  -H "Content-Type: application/json" \
  -H "X-Signature: $SIGNATURE" \
  -d "$BODY"

*/

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	if err := conf.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := conf.AppConfig

	logger.Init(logger.Config{
		Level:      appCfg.Log.Level,
		FileName:   appCfg.Log.FileName,
		TimeFormat: appCfg.Log.TimeFormat,
		MaxSize:    appCfg.Log.MaxSize,
		MaxBackups: appCfg.Log.MaxBackups,
		MaxAge:     appCfg.Log.MaxAge,
		Compress:   appCfg.Log.Compress,
		LocalTime:  appCfg.Log.LocalTime,
		Console:    appCfg.Log.Console,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiRouter, cleanup := InitRouter(ctx)

	srv := NewServer(&appCfg)
	srv.RegisterOnShutdown(func() {
		cancel()
		cleanup()
	})
	srv.Run(apiRouter)
}
