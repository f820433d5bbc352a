package webhook

import (
	"errors"
	"io"

	"tradeflow/internal/model"
	"tradeflow/internal/pipeline"
	"tradeflow/pkg/ecode"
	pkgerrors "tradeflow/pkg/errors"
	"tradeflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// TradingView Webhook 的接收器

type Handler struct {
	svc *pipeline.Service
}

func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// HandleSignal 接收POST请求并解析为策略信号
// 验签在middleware完成；坏报文同步拒绝，决策链路异步跑
func (h *Handler) HandleSignal() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil || len(body) == 0 {
			response.JSON(ctx, pkgerrors.New(ecode.InvalidParams, "empty request body"), nil)
			return
		}

		sig, err := h.svc.Accept(body)
		if err != nil {
			if errors.Is(err, model.ErrMalformedSignal) {
				response.JSON(ctx, pkgerrors.Wrap(err, ecode.MalformedSignal, ""), nil)
				return
			}
			response.JSON(ctx, pkgerrors.Wrap(err, ecode.InternalErr, ""), nil)
			return
		}
		response.JSON(ctx, nil, gin.H{"signal_id": sig.SignalID})
	}
}
