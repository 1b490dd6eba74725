package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tradepulse-ai/tradepulse/internal/api/handlers"
	"github.com/tradepulse-ai/tradepulse/internal/database"
	"github.com/tradepulse-ai/tradepulse/internal/engine"
	"github.com/tradepulse-ai/tradepulse/internal/services"
	"github.com/tradepulse-ai/tradepulse/internal/telemetry"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Telegram string `json:"telegram"`
}

// SetupRoutes registers every endpoint. db and redis may be nil for a purely
// in-memory deployment; health then reports them as disabled rather than
// degraded.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, notifier *services.NotificationService, db *database.PostgresDB, redis *database.RedisClient, logger *logrus.Logger) {
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	alerts := handlers.NewAlertHandler(eng, notifier, logger)

	router.GET("/", home)
	router.GET("/health", healthCheck(db, redis, notifier))
	router.POST("/webhook", alerts.HandleWebhook)
	router.GET("/stats", alerts.GetStats)
	router.GET("/trades", alerts.GetTrades)
	router.GET("/test-telegram", alerts.TestTelegram)
}

func home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Webhook is running. Use POST /webhook"})
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient, notifier *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Version:   telemetry.ServiceVersion,
			Services: Services{
				Database: "disabled",
				Redis:    "disabled",
				Telegram: "disabled",
			},
		}

		if db != nil {
			response.Services.Database = "ok"
			if err := db.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Database = "error"
				response.Status = "degraded"
			}
		}

		if redis != nil {
			response.Services.Redis = "ok"
			if err := redis.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Redis = "error"
				response.Status = "degraded"
			}
		}

		if notifier != nil && notifier.Enabled() {
			response.Services.Telegram = "ok"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
