// internal/web/server.go
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"hatoview/internal/config"
	"hatoview/internal/dashboard"
	"hatoview/internal/deleter"
	"hatoview/internal/hatohol"
	"hatoview/internal/history"
	"hatoview/internal/metrics"
	"hatoview/internal/view"
)

// Dashboard is what the HTTP API drives.
type Dashboard interface {
	View(kind view.Kind) (view.View, error)
	Model(ctx context.Context, kind view.Kind) (view.Model, error)
	Subscribe() (string, <-chan view.Model, func())
	Delete(ctx context.Context, resource string, ids []hatohol.ID) (deleter.Result, error)
	History(ctx context.Context, q history.Query) (*dashboard.HistoryResult, error)
}

type Server struct {
	config    *config.Config
	dashboard Dashboard
	metrics   *metrics.Collector
	router    *gin.Engine
	server    *http.Server

	mu        sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, dash Dashboard, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:    cfg,
		dashboard: dash,
		metrics:   metricsCollector,
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/build", s.getBuildInfo)

		api.GET("/views", s.listViews)
		api.GET("/views/:kind", s.getView)
		api.POST("/views/:kind/reload", s.reloadView)
		api.POST("/views/:kind/page", s.selectPage)
		api.POST("/views/:kind/page-size", s.setPageSize)
		api.POST("/views/:kind/filters", s.setFilter)
		api.POST("/views/:kind/sort", s.sortView)
		api.POST("/views/:kind/auto-refresh", s.setAutoRefresh)

		api.DELETE("/resources/:resource", s.deleteResources)
		api.GET("/history", s.getHistory)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
