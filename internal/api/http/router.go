// Package http implements the read-mostly control surface of spec.md §6.3:
// metrics, log tailing, and a handful of admin pushes (weather, scheduler
// weights, learning cooldown). Wiring is lifted straight from the teacher
// repo's cmd/zmux-server/main.go: gin.New() + gin.Recovery() + dev-only CORS
// + a ZapLogger middleware, in that order.
package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/api/metrics"
	"github.com/edirooss/airportsim/internal/infrastructure/hmfq"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/service/external"
)

// Controller is the subset of the engine the HTTP surface is allowed to
// reach into — a narrow interface so handlers never depend on the engine
// package directly (spec.md §9's "Global singletons" note: push everything
// through constructors, never a package-level engine reference).
type Controller interface {
	Scheduler() *hmfq.Scheduler
	Crisis() *external.InMemoryCrisis
	Logs() *obslog.Manager
	Resources() *resourcepool.Banker
}

// ZapLogger is the teacher's access-log middleware, unchanged in shape.
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// NewRouter builds the gin engine, wiring routes to a handlers struct
// closing over ctl and the metrics service.
func NewRouter(log *zap.Logger, ctl Controller, metricsSvc *metrics.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(gin.Recovery())

	if os.Getenv("ENV") == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(ZapLogger(log.Named("http")))

	h := &handlers{log: log.Named("handlers"), ctl: ctl, metrics: metricsSvc}

	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	r.GET("/api/metrics", h.getMetrics)
	r.GET("/api/logs/:channel", h.getLogs)
	r.POST("/api/crisis/weather", h.postWeather)
	r.PATCH("/api/scheduler/weights", h.patchWeights)
	r.POST("/api/scheduler/cooldown", h.postCooldown)
	r.GET("/api/resources/safe", h.getResourcesSafe)

	return r
}

// NewServer wraps an *http.Server around the router with the teacher's
// timeout/header-size configuration.
func NewServer(addr string, log *zap.Logger, ctl Controller, metricsSvc *metrics.Service) *http.Server {
	r := NewRouter(log, ctl, metricsSvc)
	return &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 15,
		ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}
}
