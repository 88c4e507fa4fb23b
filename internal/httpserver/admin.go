package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/repo"
	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/internal/util"
	pkg_hash "github.com/nmalenkov/storefront/pkg/hash"
	"github.com/nmalenkov/storefront/pkg/logging"
)

// AdminHTTP backs the admin console. Routes are registered behind
// RequireAdmin; user management talks to the repo directly.
type AdminHTTP struct {
	Repo    *repo.GormRepo
	Catalog *service.CatalogService
	Orders  *service.OrderService
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, users, err := h.Repo.ListUsers(ctx, offset, limit)
	if err != nil {
		l.Error("list_users_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": users,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *AdminHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_user")

	var req transport.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return err
	}

	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		l.Error("create_user_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         req.Role,
	}
	if err := h.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "already exists")
		}
		l.Error("create_user_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("create_user_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusCreated, user)
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_product_error", "status", 400, "error", err)
		return err
	}

	prod, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("create_product_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_product")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Catalog.PatchProduct(ctx, req, id)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("patch_product_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, prod)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		he := mapServiceError(err)
		l.Warn("delete_product_failed", "status", he.Code, "error", err)
		return he
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order_status")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.UpdateOrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("update_status_error", "status", 400, "error", err)
		return err
	}

	if err := h.Orders.UpdateStatus(ctx, id, req.Status); err != nil {
		he := mapServiceError(err)
		l.Warn("update_status_failed", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusOK, echo.Map{"order_id": id, "status": req.Status})
}
