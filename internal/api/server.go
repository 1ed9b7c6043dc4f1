// Package api implements the HTTP API for the mirror service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gomirror/internal/domain"
	"github.com/jonesrussell/gomirror/internal/logger"
	"github.com/jonesrussell/gomirror/internal/metrics"
)

// readHeaderTimeout bounds slow-header clients.
const readHeaderTimeout = 10 * time.Second

// BatchRunner runs article batches.
type BatchRunner interface {
	RunBatch(
		ctx context.Context,
		accountID, sourceKey string,
		urls []string,
		concurrency int,
	) (*domain.BatchOutcome, error)
}

// QuotaReader reads an account's quota ledger.
type QuotaReader interface {
	GetLedger(ctx context.Context, accountID string) (*domain.QuotaLedger, error)
}

// StatsReader reads the process-wide mirroring counters.
type StatsReader interface {
	Stats() metrics.Snapshot
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// NewServer creates the API server and registers its routes.
func NewServer(
	address string,
	runner BatchRunner,
	quota QuotaReader,
	stats StatsReader,
	log logger.Interface,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{runner: runner, quota: quota, stats: stats, log: log}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/accounts/:account_id/batches", h.runBatch)
	v1.GET("/accounts/:account_id/quota", h.getQuota)
	v1.GET("/stats", h.getStats)

	return &Server{
		httpServer: &http.Server{
			Addr:              address,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("API server listening", "address", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("API server stopping")
	return s.httpServer.Shutdown(ctx)
}
