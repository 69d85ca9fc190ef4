// Package httpapi is the HTTP Surface: the loopback listener binding the
// Anchor endpoints to the Dispatcher, built on gin the same way the
// teacher's internal/interfaces/http/server.go wires its router.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/blackfuel-ai/claudish/internal/dispatch"
	"github.com/blackfuel-ai/claudish/internal/monitor"
)

// Server wraps the loopback *http.Server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// Config configures the HTTP surface.
type Config struct {
	Port       int
	Dispatcher *dispatch.Dispatcher
	Monitor    *monitor.Monitor // nil unless running in monitor mode
	Logger     *zap.Logger
}

// New builds the gin engine and registers routes.
func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggingMiddleware(cfg.Logger))

	h := &handlers{dispatcher: cfg.Dispatcher, monitor: cfg.Monitor, logger: cfg.Logger}
	r.GET("/healthz", h.health)
	r.POST("/v1/messages", h.messages)
	r.POST("/v1/messages/count_tokens", h.countTokens)
	r.GET("/v1/models", h.models)

	return &Server{
		httpServer: &http.Server{
			Addr:    portAddr(cfg.Port),
			Handler: r,
		},
		logger: cfg.Logger,
	}
}

func portAddr(port int) string {
	return "127.0.0.1:" + strconv.Itoa(port)
}

// Start runs ListenAndServe in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
