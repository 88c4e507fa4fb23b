package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/metrics"
	"github.com/nmalenkov/storefront/internal/middleware/auth"
	"github.com/nmalenkov/storefront/internal/middleware/ratelimit"
)

type Deps struct {
	Auth     *AuthHTTP
	Products *ProductHTTP
	Orders   *OrderHTTP
	Payments *PaymentHTTP
	Admin    *AdminHTTP
	Debug    *DebugHTTP

	AuthMW  *auth.Middleware
	Limiter *ratelimit.Limiter

	// SearchEnabled gates the search route; it stays unregistered when
	// elasticsearch is not configured.
	SearchEnabled bool
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")

	authGroup := api.Group("/auth", d.Limiter.Limit(ratelimit.BucketAuth, 10, time.Minute))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/logout", d.Auth.Logout)

	products := api.Group("/products")
	products.GET("", d.Products.GetProducts)
	if d.SearchEnabled {
		products.GET("/search", d.Products.Search)
	}
	products.GET("/:id", d.Products.GetProduct)
	products.GET("/:id/stock", d.Products.GetStock)

	// OptionalAuth runs ahead of the limiter so authenticated callers
	// are keyed by user id rather than by client IP.
	orders := api.Group("/orders", d.AuthMW.OptionalAuth, d.Limiter.Limit(ratelimit.BucketAPI, 60, time.Minute))
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("", d.Orders.ListOrders, d.AuthMW.RequireAuth)
	orders.GET("/guest/:id", d.Orders.GetGuestOrder)
	orders.GET("/:id", d.Orders.GetOrder, d.AuthMW.RequireAuth)

	api.POST("/payments/webhook", d.Payments.Webhook)

	admin := api.Group("/admin", d.AuthMW.RequireAdmin)
	admin.GET("/users", d.Admin.ListUsers)
	admin.POST("/users", d.Admin.CreateUser)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PATCH("/products/:id", d.Admin.PatchProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)
	admin.PATCH("/orders/:id/status", d.Admin.UpdateOrderStatus)

	debug := api.Group("/debug")
	debug.POST("/reduce-stock", d.Debug.ReduceStock)
	debug.POST("/seed", d.Debug.Seed)
	debug.GET("/error", d.Debug.Error)
}
