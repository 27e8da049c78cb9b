package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avelez/signaldesk/internal/proposer"
	"github.com/avelez/signaldesk/internal/storage"
)

func (s *Server) handleRefreshPrices(c *gin.Context) {
	report, err := s.ingest.RefreshAll(c.Request.Context())
	if err != nil {
		s.logger.Error("refresh prices", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": report.Updated, "results": report.Results})
}

func (s *Server) handleGenerateSignals(c *gin.Context) {
	var req proposer.Request
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	report, err := s.proposer.Propose(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("generate signals", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"signals_generated": report.Generated,
		"signals":           report.Signals,
		"skipped":           report.Skipped,
		"errors":            report.Errors,
	})
}

func (s *Server) handleSettleSignals(c *gin.Context) {
	report, err := s.settle.Run(c.Request.Context())
	if err != nil {
		s.logger.Error("settle signals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"checked": report.Checked,
		"closed":  report.Closed,
		"skipped": report.Skipped,
		"results": report.Results,
		"errors":  report.Errors,
	})
}

func (s *Server) handleListPrices(c *gin.Context) {
	prices, err := s.repo.ListMarketPrices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prices)
}

func (s *Server) handleListSignals(c *gin.Context) {
	status := c.Query("status")

	var (
		signals []storage.Signal
		err     error
	)
	if status != "" {
		signals, err = s.repo.ListSignalsByStatus(status)
	} else {
		signals, err = s.repo.ListRecentSignals(100)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, signals)
}

func (s *Server) handleListHistory(c *gin.Context) {
	records, err := s.repo.ListTradeRecords()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleHistorySummary(c *gin.Context) {
	summary, err := s.aggregator.Summarize()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
