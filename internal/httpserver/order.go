package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/internal/util"
	"github.com/nmalenkov/storefront/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return err
	}

	// Authenticated shoppers own their order; everyone else checks
	// out as a guest.
	var userID *uint
	if uid, err := userIDFromContext(c); err == nil {
		userID = &uid
	}

	result, err := h.Svc.CreateOrder(ctx, req, userID)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("create_order_failed", "status", he.Code, "error", err)
		return he
	}

	resp := transport.CreateOrderResponse{
		OrderID:      result.Order.ID,
		PaymentToken: result.PaymentToken,
		RedirectURL:  result.RedirectURL,
	}
	if userID == nil {
		resp.GuestKey = result.Order.GuestKey
	}

	l.Info("create_order_success", "order_id", result.Order.ID)
	return c.JSON(http.StatusCreated, resp)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	userID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListUserOrders(ctx, userID, offset, limit)
	if err != nil {
		l.Error("list_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": orders,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	userID, err := userIDFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetUserOrder(ctx, id, userID)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("get_order_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, order)
}

// GetGuestOrder has no ownership check; possession of the access key
// issued at checkout is the whole credential.
func (h *OrderHTTP) GetGuestOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_guest")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	key := c.QueryParam("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	order, err := h.Svc.GetGuestOrder(ctx, id, key)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("get_guest_order_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, order)
}
