package server

import (
	"bookstore-payments/internal/config"
	"bookstore-payments/internal/handler"
	appmw "bookstore-payments/internal/middleware"
	"bookstore-payments/internal/service"
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type Services struct {
	Catalog service.CatalogService
	Orders  service.OrderService
	Payment service.PaymentService
	Proofs  service.ProofService
	Access  service.AccessService
	Stats   service.StatsService
}

type Server struct {
	echo           *echo.Echo
	catalogHandler *handler.CatalogHandler
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
	statsHandler   *handler.StatsHandler
}

func NewServer(cfg *config.Config, services Services, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	if cfg.Tracing.Enabled {
		e.Use(otelecho.Middleware(cfg.Tracing.ServiceName))
	}
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.Secure())
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.HTTP.RequestTimeout,
	}))
	e.Use(appmw.Metrics())
	e.Use(appmw.Auth([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer))

	e.Static("/files", cfg.Storage.Dir)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s := &Server{
		echo:           e,
		catalogHandler: handler.NewCatalogHandler(services.Catalog, services.Access),
		orderHandler:   handler.NewOrderHandler(services.Orders),
		paymentHandler: handler.NewPaymentHandler(services.Payment, services.Proofs),
		statsHandler:   handler.NewStatsHandler(services.Stats, log),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- catalog, access gate, stats (anonymous allowed) --------
	books := api.Group("/books")
	books.GET("", s.catalogHandler.ListBooks)
	books.GET("/:id", s.catalogHandler.GetBook)
	books.GET("/:id/access", s.catalogHandler.CheckAccess)
	books.GET("/:id/download", s.catalogHandler.Download)
	books.GET("/:id/stats", s.statsHandler.GetStats)
	books.GET("/:id/reviews", s.statsHandler.ListReviews)
	books.POST("/:id/views", s.statsHandler.IncrementView)
	books.POST("/:id/reviews", s.statsHandler.AddReview, appmw.RequireAuth())

	// -------- checkout --------
	orders := api.Group("/orders", appmw.RequireAuth())
	orders.POST("", s.orderHandler.CreateOrder)
	orders.GET("", s.orderHandler.ListOrders)
	orders.GET("/:id", s.orderHandler.GetOrder)

	// -------- payment notifications --------
	notifications := api.Group("/notifications", appmw.RequireAuth())
	notifications.GET("", s.paymentHandler.ListNotifications)
	notifications.GET("/:id", s.paymentHandler.GetNotification)
	notifications.POST("/:id/proof", s.paymentHandler.SubmitProof)
	notifications.POST("/:id/cancel", s.paymentHandler.Cancel)
	notifications.PATCH("/:id/status", s.paymentHandler.UpdateStatus)
	notifications.POST("/:id/confirm", s.paymentHandler.Confirm, appmw.RequireStaff())
	notifications.POST("/:id/reject", s.paymentHandler.Reject, appmw.RequireStaff())
}

// Handler exposes the routed echo instance, mainly for httptest.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
