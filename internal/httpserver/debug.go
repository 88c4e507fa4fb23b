package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/pkg/logging"
)

// DebugHTTP serves development helpers. Every handler refuses to run
// when Production is set.
type DebugHTTP struct {
	Catalog    *service.CatalogService
	Production bool
}

func (h *DebugHTTP) guard() error {
	if h.Production {
		return echo.NewHTTPError(http.StatusForbidden, "debug endpoints disabled")
	}
	return nil
}

func (h *DebugHTTP) ReduceStock(c echo.Context) error {
	if err := h.guard(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "debug.reduce_stock")

	var req transport.ReduceStockRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("reduce_stock_error", "status", 400, "error", err)
		return err
	}

	stock, err := h.Catalog.ReduceStock(ctx, req)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("reduce_stock_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, transport.StockResponse{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Stock:     stock,
	})
}

func (h *DebugHTTP) Seed(c echo.Context) error {
	if err := h.guard(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "debug.seed")

	created := make([]uint, 0, len(demoProducts))
	for _, req := range demoProducts {
		prod, err := h.Catalog.CreateProduct(ctx, req)
		if err != nil {
			l.Error("seed_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		created = append(created, prod.ID)
	}

	l.Info("seed_success", "count", len(created))
	return c.JSON(http.StatusCreated, echo.Map{"product_ids": created})
}

func (h *DebugHTTP) Error(c echo.Context) error {
	if err := h.guard(); err != nil {
		return err
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "debug error")
}

var demoProducts = []transport.CreateProductRequest{
	{
		Name:        "Classic Tee",
		Description: "Plain cotton t-shirt",
		Price:       decimal.NewFromInt(19),
		Stock:       100,
		Variants: []transport.CreateVariantRequest{
			{Name: "S", Price: decimal.NewFromInt(19), Stock: 30},
			{Name: "M", Price: decimal.NewFromInt(19), Stock: 40},
			{Name: "L", Price: decimal.NewFromInt(21), Stock: 30},
		},
	},
	{
		Name:        "Canvas Tote",
		Description: "Heavy duty shopping bag",
		Price:       decimal.NewFromFloat(12.50),
		Stock:       200,
	},
	{
		Name:        "Enamel Mug",
		Description: "350ml camping mug",
		Price:       decimal.NewFromFloat(9.90),
		Stock:       80,
	},
}
