package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/payment"
	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/pkg/logging"
)

type PaymentHTTP struct {
	Svc       *service.OrderService
	ServerKey string
}

func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	var n payment.Notification
	if err := c.Bind(&n); err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if !n.Verify(h.ServerKey) {
		l.Warn("webhook_error", "status", 403, "reason", "bad signature", "order_id", n.OrderID)
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	if err := h.Svc.HandleNotification(ctx, n); err != nil {
		he := mapServiceError(err)
		l.Warn("webhook_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
