package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// StockReader is the read side of the stock service.
type StockReader interface {
	Breakdown(ctx context.Context, q stock.Query) (stock.Breakdown, error)
	Levels(ctx context.Context, articleID int64, warehouseID *int64) ([]stock.Level, error)
}

// StockHandler serves stock queries.
type StockHandler struct {
	*BaseHandler
	service StockReader
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service StockReader) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// RegisterRoutes mounts the stock endpoints on rg.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	articles := rg.Group("/stock/articles")
	articles.GET("/:articleId", h.Get)
	articles.GET("/:articleId/units", h.Units)
	articles.GET("/:articleId/breakdown", h.Breakdown)
}

// Get handles GET /stock/articles/:articleId?unitId=&warehouseId=
func (h *StockHandler) Get(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	b, err := h.service.Breakdown(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockQuery(q, b))
}

// Units handles GET /stock/articles/:articleId/units?warehouseId=
func (h *StockHandler) Units(c *gin.Context) {
	articleID, ok := h.ParseIDParam(c, "articleId")
	if !ok {
		return
	}
	warehouseID, ok := h.OptionalIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	levels, err := h.service.Levels(c.Request.Context(), articleID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLevels(articleID, warehouseID, levels))
}

// Breakdown handles GET /stock/articles/:articleId/breakdown?unitId=&warehouseId=
func (h *StockHandler) Breakdown(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	b, err := h.service.Breakdown(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBreakdown(b))
}

func (h *StockHandler) parseQuery(c *gin.Context) (stock.Query, bool) {
	articleID, ok := h.ParseIDParam(c, "articleId")
	if !ok {
		return stock.Query{}, false
	}
	unitID, ok := h.RequireIDQuery(c, "unitId")
	if !ok {
		return stock.Query{}, false
	}
	warehouseID, ok := h.OptionalIDQuery(c, "warehouseId")
	if !ok {
		return stock.Query{}, false
	}
	return stock.Query{ArticleID: articleID, DisplayUnitID: unitID, WarehouseID: warehouseID}, true
}
