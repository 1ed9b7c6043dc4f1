package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gomirror/internal/logger"
)

// maxBatchURLs bounds one API-triggered batch.
const maxBatchURLs = 500

// handlers carries the API's collaborators.
type handlers struct {
	runner BatchRunner
	quota  QuotaReader
	stats  StatsReader
	log    logger.Interface
}

// batchRequest is the body of POST /api/v1/accounts/:account_id/batches.
type batchRequest struct {
	SourceKey   string   `json:"source_key" binding:"required"`
	URLs        []string `json:"urls" binding:"required"`
	Concurrency int      `json:"concurrency"`
}

// runBatch handles POST /api/v1/accounts/:account_id/batches.
// The batch runs synchronously; the response is the full outcome.
func (h *handlers) runBatch(c *gin.Context) {
	accountID := c.Param("account_id")

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.URLs) > maxBatchURLs {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "too many urls in one batch",
			"max":   maxBatchURLs,
		})
		return
	}

	outcome, err := h.runner.RunBatch(
		c.Request.Context(),
		accountID,
		req.SourceKey,
		req.URLs,
		req.Concurrency,
	)
	if err != nil {
		h.log.Error("batch run failed", "account_id", accountID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run batch"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// getQuota handles GET /api/v1/accounts/:account_id/quota.
func (h *handlers) getQuota(c *gin.Context) {
	accountID := c.Param("account_id")

	ledger, err := h.quota.GetLedger(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("quota lookup failed", "account_id", accountID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read quota"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":      ledger.AccountID,
		"capacity_bytes":  ledger.CapacityBytes,
		"used_bytes":      ledger.UsedBytes,
		"remaining_bytes": ledger.RemainingBytes(),
	})
}

// getStats handles GET /api/v1/stats.
func (h *handlers) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Stats())
}
