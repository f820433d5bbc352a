package position

import (
	"tradeflow/internal/store"
	"tradeflow/pkg/ecode"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	positions store.PositionStore
}

func NewHandler(positions store.PositionStore) *Handler {
	return &Handler{positions: positions}
}

// ListOpen 某策略（或全部）的OPEN仓位
func (h *Handler) ListOpen() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		strategy := ctx.Query("strategy")
		list, err := h.positions.ListOpenPositions(ctx, strategy)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.StoreUnavailable, ""), nil)
			return
		}
		response.JSON(ctx, nil, list)
	}
}
