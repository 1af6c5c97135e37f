package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handlers "github.com/Peluchemoreno/esti-mate-billing/internal/adapter/handler/http"
	"github.com/Peluchemoreno/esti-mate-billing/internal/config"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/auth"
	"github.com/Peluchemoreno/esti-mate-billing/internal/middleware/entitlement"
	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/logger"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/validation"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Webhook     handlers.WebhookProcessor
	Sessions    handlers.SessionStarter
	Idempotency *usecase.RequestIdempotency
	Accounts    entitlement.AccountReader
	Gatherer    prometheus.Gatherer
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	deps   Dependencies
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.NewEchoValidator()
	logger.WithEchoLogger(e, log)

	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.FrontendURL},
		AllowMethods: []string{echo.GET, echo.POST},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, handlers.IdempotencyKeyHeader},
	}))

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	webhookHandler := handlers.NewWebhookHandler(s.logger, s.deps.Webhook,
		s.config.Billing.MaxWebhookBody, s.config.Billing.WebhookTimeout)
	billingHandler := handlers.NewBillingHandler(s.logger, s.deps.Sessions, s.deps.Idempotency)

	// Webhook route (outside API versioning, authenticated by signature)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	billing := s.echo.Group("/api/v1/billing", auth.JWTMiddleware(jwtConfig))
	billing.POST("/checkout", billingHandler.CreateCheckout)
	billing.POST("/portal", billingHandler.CreatePortal)
	billing.GET("/me", billingHandler.GetMe)
	billing.GET("/entitlement", billingHandler.GetEntitlement, entitlement.RequireTier(s.deps.Accounts, s.logger))
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": config.ServiceName,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": config.ServiceName,
		"version": s.config.Service.Version,
	})
}
