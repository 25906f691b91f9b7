package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server the UI shell talks to, with all routes
// configured.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for the UI shell
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Info("API authentication disabled (API_ACCESS_KEY not set)")
	}

	api.POST("/sync", handler.Sync)
	api.GET("/sync/state", handler.GetSyncState)
	api.GET("/categories", handler.ListCategories)
	api.GET("/feeds", handler.ListFeeds)
	api.GET("/entries", handler.ListEntries)
	api.GET("/entries/:id", handler.GetEntry)
	api.PUT("/entries/status", handler.UpdateEntriesStatus)
	api.POST("/entries/:id/bookmark", handler.ToggleBookmark)
	api.POST("/entries/:id/content", handler.FetchContent)
	api.GET("/counters", handler.GetCounters)
	api.GET("/events", handler.StreamEvents)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Minikyu",
			"description": "Local-first Miniflux sync engine",
			"endpoints": map[string]string{
				"sync":     "/api/sync (POST)",
				"state":    "/api/sync/state",
				"entries":  "/api/entries",
				"counters": "/api/counters",
				"events":   "/api/events (SSE)",
				"health":   "/health",
			},
			"auth_required": apiAccessKey != "",
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware guards the API group with a shared access key.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
