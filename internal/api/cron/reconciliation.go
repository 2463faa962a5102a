package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/service"
	"github.com/notara/billing/internal/types"
)

type ReconciliationCronHandler struct {
	logger                *logger.Logger
	reconciliationService service.ReconciliationService
}

func NewReconciliationCronHandler(logger *logger.Logger, reconciliationService service.ReconciliationService) *ReconciliationCronHandler {
	return &ReconciliationCronHandler{
		logger:                logger,
		reconciliationService: reconciliationService,
	}
}

// RunReconciliation runs a scheduled ledger scan. Schedulers must serialize
// invocations: overlapping runs are rejected by the service.
func (h *ReconciliationCronHandler) RunReconciliation(c *gin.Context) {
	mode := types.ReconcileMode(c.DefaultQuery("mode", string(types.ReconcileModeAudit)))
	h.logger.Infow("starting reconciliation cron job",
		"mode", mode,
		"at", time.Now().UTC().Format(time.RFC3339))

	report, err := h.reconciliationService.Reconcile(c.Request.Context(), mode)
	if err != nil {
		h.logger.Errorw("reconciliation cron job failed", "error", err, "mode", mode)
		c.Error(err)
		return
	}

	h.logger.Infow("reconciliation cron job complete",
		"run_id", report.RunID,
		"drift_count", report.DriftCount,
		"corrected_count", report.CorrectedCount,
		"failed_count", report.FailedCount)

	c.JSON(http.StatusOK, report)
}
