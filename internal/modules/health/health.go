package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is satisfied by the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes mounts GET /health. cache may be nil when redis is off.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, cache Pinger, startedAt time.Time) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.PingContext(ctx) == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		body := gin.H{
			"status":   status,
			"database": dbOK,
			"uptime":   time.Since(startedAt).Truncate(time.Second).String(),
		}
		if cache != nil {
			body["redis"] = cache.Ping(ctx) == nil
		}
		c.JSON(code, body)
	})
}
