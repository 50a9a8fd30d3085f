package httpserver

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is the service version, overridable at build time via
// -ldflags "-X .../internal/httpserver.Version=v1.2.3".
var Version = "dev"

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// StatsFunc supplies live service stats for the health endpoint.
type StatsFunc func() map[string]any

// Health returns a handler that reports service health plus live stats,
// typically the event hub's channel and subscriber counts.
func Health(serviceName string, stats StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if stats != nil {
			for k, v := range stats() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

// Info returns a handler that reports service version and build information.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    Version,
			"go_version": runtime.Version(),
			"uptime":     time.Since(startTime).String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}
