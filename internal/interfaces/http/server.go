// Package http exposes the brokerage services over a gin JSON API. Handlers
// only translate requests and map errors; all rules live in the services.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server serving the given handlers
func NewServer(config ServerConfig, handlers *Handlers, logger Logger) *Server {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor", c.GetHeader(ActorHeader),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/commission/resolve", h.ResolveCommission)
		api.POST("/commission/preview", h.PreviewAllocation)

		api.POST("/sales", h.CreateSale)
		api.GET("/sales", h.ListSales)
		api.GET("/sales/:id", h.GetSale)
		api.PUT("/sales/:id/beneficiaries", h.SetBeneficiaries)
		api.POST("/sales/:id/confirm", h.ConfirmSale)
		api.POST("/sales/:id/cancel", h.CancelSale)
		api.GET("/sales/:id/purchase-orders", h.PurchaseOrders)
		api.GET("/sales/:id/statement.xlsx", h.SaleStatement)
		api.GET("/reports/allocation-summary.xlsx", h.AllocationSummary)

		api.POST("/approvals", h.CreateRecord)
		api.GET("/approvals", h.ListRecords)
		api.GET("/approvals/:id", h.GetRecord)
		api.GET("/approvals/:id/history", h.RecordHistory)
		api.GET("/approvals/:id/targets", h.AvailableTargets)
		api.POST("/approvals/:id/transition", h.TransitionRecord)
		api.POST("/approvals/:id/approve", h.ApproveRecord)
		api.POST("/approvals/:id/reject", h.RejectRecord)

		api.POST("/leads", h.CreateLead)
		api.GET("/leads", h.ListLeads)
		api.GET("/leads/:id", h.GetLead)
		api.POST("/leads/:id/score", h.ScoreLead)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
