package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nmalenkov/storefront/internal/config"
	"github.com/nmalenkov/storefront/internal/db"
	"github.com/nmalenkov/storefront/internal/events"
	"github.com/nmalenkov/storefront/internal/httpserver"
	"github.com/nmalenkov/storefront/internal/metrics"
	authmw "github.com/nmalenkov/storefront/internal/middleware/auth"
	"github.com/nmalenkov/storefront/internal/middleware/ratelimit"
	"github.com/nmalenkov/storefront/internal/payment"
	"github.com/nmalenkov/storefront/internal/repo"
	"github.com/nmalenkov/storefront/internal/search"
	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	"github.com/nmalenkov/storefront/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(config.EnvDefault("LOG_LEVEL", "info"))

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	config.MustNonEmpty(cfg.PaymentBaseURL, "PAYMENT_BASE_URL")
	config.MustNonEmpty(cfg.PaymentServerKey, "PAYMENT_SERVER_KEY")

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(database); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	var index *search.Index
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			logger.Error("elasticsearch connect failed", "error", err)
			os.Exit(1)
		}
		index = search.NewIndex(esClient, "products")
	}

	var limiter *ratelimit.Limiter
	var redisCounter *ratelimit.RedisCounter
	if cfg.RedisAddr != "" {
		redisCounter = ratelimit.NewRedisCounter(cfg.RedisAddr)
		limiter = ratelimit.New(redisCounter)
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting disabled")
		limiter = ratelimit.New(nil)
	}

	repository := repo.NewGormRepo(database)
	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentServerKey)

	authSvc := &service.AuthService{
		Repo:          repository,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		Producer:      producer,
	}
	catalogSvc := &service.CatalogService{Repo: repository, Producer: producer, Index: index}
	orderSvc := &service.OrderService{Repo: repository, Gateway: gateway, Producer: producer}

	e := echo.New()
	e.HideBanner = true
	e.Validator = transport.NewValidator()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(metrics.Middleware())

	deps := httpserver.Deps{
		Auth:     &httpserver.AuthHTTP{Svc: authSvc},
		Products: &httpserver.ProductHTTP{Svc: catalogSvc},
		Orders:   &httpserver.OrderHTTP{Svc: orderSvc},
		Payments: &httpserver.PaymentHTTP{Svc: orderSvc, ServerKey: cfg.PaymentServerKey},
		Admin:    &httpserver.AdminHTTP{Repo: repository, Catalog: catalogSvc, Orders: orderSvc},
		Debug:    &httpserver.DebugHTTP{Catalog: catalogSvc, Production: cfg.IsProduction()},

		AuthMW:  authmw.New(cfg.JWTAccessSecret),
		Limiter: limiter,

		SearchEnabled: index != nil,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if redisCounter != nil {
		if err := redisCounter.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
