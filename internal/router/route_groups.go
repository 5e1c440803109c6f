package router

import (
	"swaad_backend/internal/handlers"
	"swaad_backend/internal/middleware"
	"swaad_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up the public login routes.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/restaurant/login", authHandler.LoginRestaurant)
		authRoutes.POST("/customer/login", authHandler.LoginCustomer)
	}
}

// SetupWebhookRoutes sets up the gateway webhook route. The gateway cannot
// carry a bearer token; the HMAC signature check inside the handler is the
// authentication.
func SetupWebhookRoutes(apiGroup *gin.RouterGroup, paymentHandler *handlers.PaymentHandler) {
	apiGroup.POST("/payments/webhook", paymentHandler.HandleWebhook)
}

// SetupOrderRoutes sets up the order lifecycle routes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler, paymentHandler *handlers.PaymentHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	{
		orderRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleCustomer), orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrder)
		orderRoutes.POST("/:id/verify-payment", middleware.RoleAuthMiddleware(models.RoleCustomer), paymentHandler.VerifyPayment)
		orderRoutes.POST("/:id/accept", middleware.RoleAuthMiddleware(models.RoleRestaurant), orderHandler.AcceptOrder)
		orderRoutes.POST("/:id/reject", middleware.RoleAuthMiddleware(models.RoleRestaurant), orderHandler.RejectOrder)
		orderRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleRestaurant, models.RoleAdmin), orderHandler.UpdateOrderStatus)
	}
}

// SetupRestaurantRoutes sets up the restaurant availability route.
func SetupRestaurantRoutes(authenticatedGroup *gin.RouterGroup, restaurantHandler *handlers.RestaurantHandler) {
	restaurantRoutes := authenticatedGroup.Group("/restaurant")
	restaurantRoutes.Use(middleware.RoleAuthMiddleware(models.RoleRestaurant))
	{
		restaurantRoutes.POST("/online", restaurantHandler.SetOnline)
	}
}

// SetupRealtimeRoutes sets up the websocket endpoint.
func SetupRealtimeRoutes(authenticatedGroup *gin.RouterGroup, wsHandler *handlers.WSHandler) {
	authenticatedGroup.GET("/ws", wsHandler.Connect)
}
