package router

import (
	"tradeflow/internal/handler/decision"
	"tradeflow/internal/handler/ping"
	"tradeflow/internal/handler/position"
	"tradeflow/internal/handler/webhook"
	"tradeflow/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ApiRouter struct {
	webhookHandler  *webhook.Handler
	decisionHandler *decision.Handler
	positionHandler *position.Handler
}

func NewApiRouter(wh *webhook.Handler, dh *decision.Handler, ph *position.Handler) *ApiRouter {
	return &ApiRouter{webhookHandler: wh, decisionHandler: dh, positionHandler: ph}
}

func (api *ApiRouter) Load(g *gin.Engine) {

	g.GET("/ping", ping.Ping())

	// 信号入口只做验签，不做防抖（上游重试是幂等锚点）
	g.POST("/webhook", middleware.VerifySignature(), api.webhookHandler.HandleSignal())

	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := g.Group("/api/v1")

	d := base.Group("/decisions", middleware.AntiDuplicateMiddleware())
	{
		d.GET("/list", api.decisionHandler.List())
		d.GET("/:signal_id", api.decisionHandler.Get())
	}

	p := base.Group("/positions", middleware.AntiDuplicateMiddleware())
	{
		p.GET("/open", api.positionHandler.ListOpen())
	}
}
