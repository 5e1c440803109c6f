package router

import (
	"context"
	"database/sql"
	"time"

	"swaad_backend/internal/events"
	"swaad_backend/internal/gateway"
	"swaad_backend/internal/handlers"
	"swaad_backend/internal/middleware"
	"swaad_backend/internal/notifier"
	"swaad_backend/internal/realtime"
	"swaad_backend/internal/repositories"
	"swaad_backend/internal/scheduler"
	"swaad_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Config carries the runtime settings the wiring needs.
type Config struct {
	GatewayBaseURL      string
	GatewayClientID     string
	GatewayClientSecret string
	WebhookSecret       string
	ResponseWindow      time.Duration
	SweepInterval       time.Duration
	FeePolicy           services.FeePolicy
	PushEndpoint        string
	PushAPIKey          string
	EventBufferSize     int
}

// Runtime holds the background workers started by Setup so main can stop
// them on shutdown.
type Runtime struct {
	Bus     *events.Bus
	Sweeper *scheduler.Sweeper
	Stop    func()
}

// Setup wires repositories, services and handlers onto the engine and starts
// the notifier loop and the deadline sweeper.
func Setup(engine *gin.Engine, db *sql.DB, cfg Config) *Runtime {
	// Repositories
	orderRepo := repositories.NewOrderRepository(db)
	menuRepo := repositories.NewMenuRepository(db)
	restaurantRepo := repositories.NewRestaurantRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)

	// Shared infrastructure
	bus := events.NewBus(cfg.EventBufferSize)
	hub := realtime.NewHub()
	windows := scheduler.NewResponseWindow(cfg.ResponseWindow)
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayClientID, cfg.GatewayClientSecret)

	// Services
	pricingService := services.NewPricingService(menuRepo, cfg.FeePolicy)
	orderService := services.NewOrderService(db, orderRepo, restaurantRepo, customerRepo, pricingService, gw, bus, windows)
	paymentService := services.NewPaymentService(db, orderRepo, restaurantRepo, gw, bus, windows, orderService.AutoReject, cfg.WebhookSecret)
	authService := services.NewAuthService(restaurantRepo, customerRepo)

	// Background workers
	push := notifier.NewHTTPPushSender(cfg.PushEndpoint, cfg.PushAPIKey)
	notif := notifier.NewNotifier(bus, hub, push, restaurantRepo)
	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	go notif.Run(notifierCtx)

	sweeper := scheduler.NewSweeper(orderRepo, windows, cfg.SweepInterval, orderService.AutoReject)
	sweeper.Start()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	restaurantHandler := handlers.NewRestaurantHandler(orderService)
	wsHandler := handlers.NewWSHandler(hub)

	apiV1 := engine.Group("/api/v1")

	SetupAuthRoutes(apiV1, authHandler)
	SetupWebhookRoutes(apiV1, paymentHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupOrderRoutes(authenticated, orderHandler, paymentHandler)
		SetupRestaurantRoutes(authenticated, restaurantHandler)
		SetupRealtimeRoutes(authenticated, wsHandler)
	}

	return &Runtime{
		Bus:     bus,
		Sweeper: sweeper,
		Stop: func() {
			sweeper.Stop()
			stopNotifier()
			bus.Close()
		},
	}
}
