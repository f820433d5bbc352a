package decision

import (
	"tradeflow/internal/store"
	"tradeflow/pkg/ecode"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Handler struct {
	decisions store.DecisionStore
}

func NewHandler(decisions store.DecisionStore) *Handler {
	return &Handler{decisions: decisions}
}

type listReq struct {
	Strategy string `form:"strategy"`
	Limit    int    `form:"limit" validate:"gte=0,lte=500"`
}

// List 决策审计列表，下游看板消费
func (h *Handler) List() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req listReq
		if err := ctx.ShouldBindQuery(&req); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InvalidParams, ""), nil)
			return
		}
		if err := validate.Struct(&req); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.InvalidParams, ""), nil)
			return
		}
		list, err := h.decisions.ListByStrategy(ctx, req.Strategy, req.Limit)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.StoreUnavailable, ""), nil)
			return
		}
		response.JSON(ctx, nil, list)
	}
}

// Get 按signal_id查询单条决策
func (h *Handler) Get() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		signalID := ctx.Param("signal_id")
		if signalID == "" {
			response.JSON(ctx, errors.New(ecode.InvalidParams, "signal_id is required"), nil)
			return
		}
		d, err := h.decisions.GetBySignalID(ctx, signalID)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.StoreUnavailable, ""), nil)
			return
		}
		if d == nil {
			response.JSON(ctx, errors.New(ecode.InvalidParams, "decision not found"), nil)
			return
		}
		response.JSON(ctx, nil, d)
	}
}
