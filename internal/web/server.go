package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avelez/signaldesk/internal/config"
	"github.com/avelez/signaldesk/internal/history"
	"github.com/avelez/signaldesk/internal/ingest"
	"github.com/avelez/signaldesk/internal/logger"
	"github.com/avelez/signaldesk/internal/proposer"
	"github.com/avelez/signaldesk/internal/settle"
	"github.com/avelez/signaldesk/internal/storage"
)

// Server exposes the three round operations and the read-side endpoints
// over HTTP. Every round returns its structured report; round-level
// failures map to a 5xx with an error body, partial failures stay 200 with
// the per-item breakdown.
type Server struct {
	httpServer *http.Server
	ingest     *ingest.Service
	proposer   *proposer.Service
	settle     *settle.Engine
	aggregator *history.Aggregator
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(
	ing *ingest.Service,
	prop *proposer.Service,
	eng *settle.Engine,
	agg *history.Aggregator,
	repo *storage.Repository,
	cfg *config.Config,
	log *logger.Logger,
) *Server {
	s := &Server{
		ingest:     ing,
		proposer:   prop,
		settle:     eng,
		aggregator: agg,
		repo:       repo,
		config:     cfg,
		logger:     log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.POST("/prices/refresh", s.handleRefreshPrices)
		api.POST("/signals/generate", s.handleGenerateSignals)
		api.POST("/signals/settle", s.handleSettleSignals)

		api.GET("/prices", s.handleListPrices)
		api.GET("/signals", s.handleListSignals)
		api.GET("/history", s.handleListHistory)
		api.GET("/history/summary", s.handleHistorySummary)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
