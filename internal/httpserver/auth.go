package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/pkg/jwtutil"
	"github.com/nmalenkov/storefront/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("register_failed", "status", he.Code, "error", err)
		return he
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("login_failed", "status", he.Code, "error", err)
		return he
	}

	c.SetCookie(jwtutil.CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwtutil.CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))

	l.Info("login_success")
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"is_admin":      res.IsAdmin,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	raw := refreshFromRequest(c)
	if raw == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		he := mapServiceError(err)
		l.Warn("refresh_failed", "status", he.Code, "error", err)
		return he
	}

	c.SetCookie(jwtutil.CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(jwtutil.CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))

	l.Info("refresh_success")
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if raw := refreshFromRequest(c); raw != "" {
		if err := h.Svc.Logout(ctx, raw); err != nil {
			l.Error("logout_failed", "status", 500, "error", err)
			c.SetCookie(jwtutil.DeleteCookie("accessToken", "/"))
			c.SetCookie(jwtutil.DeleteCookie("refreshToken", "/"))
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	c.SetCookie(jwtutil.DeleteCookie("accessToken", "/"))
	c.SetCookie(jwtutil.DeleteCookie("refreshToken", "/"))

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func refreshFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&body); err == nil {
		return body.RefreshToken
	}
	return ""
}
