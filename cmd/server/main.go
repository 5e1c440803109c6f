package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"swaad_backend/internal/database"
	"swaad_backend/internal/metrics"
	"swaad_backend/internal/router"
	"swaad_backend/internal/services"
	"swaad_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	utils.InitLogger()

	utils.SetJWTSecret(utils.Getenv("JWT_SECRET", ""))

	dbHost := utils.Getenv("DB_HOST", "localhost")
	dbPort := utils.Getenv("DB_PORT", "5432")
	dbUser := utils.Getenv("DB_USER", "swaad_user")
	dbPassword := utils.Getenv("DB_PASSWORD", "swaad_password")
	dbName := utils.Getenv("DB_NAME", "swaad_db")
	dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")

	db, err := database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	utils.LogInfo("Database initialized", map[string]interface{}{"host": dbHost, "name": dbName})

	cfg := router.Config{
		GatewayBaseURL:      utils.Getenv("GATEWAY_BASE_URL", "https://sandbox.cashfree.com/pg"),
		GatewayClientID:     utils.Getenv("GATEWAY_CLIENT_ID", ""),
		GatewayClientSecret: utils.Getenv("GATEWAY_CLIENT_SECRET", ""),
		WebhookSecret:       utils.Getenv("GATEWAY_WEBHOOK_SECRET", ""),
		ResponseWindow:      utils.GetenvDuration("ORDER_RESPONSE_WINDOW", 90*time.Second),
		SweepInterval:       utils.GetenvDuration("DEADLINE_SWEEP_INTERVAL", 30*time.Second),
		PushEndpoint:        utils.Getenv("PUSH_ENDPOINT", ""),
		PushAPIKey:          utils.Getenv("PUSH_API_KEY", ""),
		EventBufferSize:     64,
		FeePolicy: services.FeePolicy{
			DeliveryFee:       utils.GetenvFloat("FEE_DELIVERY", 20),
			DeliveryFreeAbove: utils.GetenvFloat("FEE_DELIVERY_FREE_ABOVE", 500),
			PackingFee:        utils.GetenvFloat("FEE_PACKING", 5),
			GSTRate:           utils.GetenvFloat("FEE_GST_RATE", 0.05),
			PlatformFee:       utils.GetenvFloat("FEE_PLATFORM", 5),
			PlatformFreeAbove: utils.GetenvFloat("FEE_PLATFORM_FREE_ABOVE", 300),
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	runtime := router.Setup(engine, db, cfg)
	defer runtime.Stop()

	port := utils.Getenv("PORT", "8080")
	utils.LogInfo("Server starting", map[string]interface{}{"port": port})
	if err := engine.Run(":" + port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
