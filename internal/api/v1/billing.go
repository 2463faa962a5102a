package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/notara/billing/internal/api/dto"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/notara/billing/internal/service"
	"github.com/notara/billing/internal/types"
)

type BillingHandler struct {
	checkoutService       service.CheckoutService
	verificationService   service.VerificationService
	reconciliationService service.ReconciliationService
	log                   *logger.Logger
}

func NewBillingHandler(
	checkoutService service.CheckoutService,
	verificationService service.VerificationService,
	reconciliationService service.ReconciliationService,
	log *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		checkoutService:       checkoutService,
		verificationService:   verificationService,
		reconciliationService: reconciliationService,
		log:                   log,
	}
}

// InitiateCheckout creates a processor checkout session for an entity
func (h *BillingHandler) InitiateCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.InitiateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind checkout request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.checkoutService.InitiateCheckout(ctx, &req)
	if err != nil {
		h.log.Errorw("failed to initiate checkout", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VerifyPlan confirms a just-completed purchase and applies the plan
func (h *BillingHandler) VerifyPlan(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.VerifyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind verify request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.verificationService.VerifyAndApply(ctx, &req)
	if err != nil {
		h.log.Errorw("failed to verify plan", "error", err, "entity_id", req.EntityID)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Reconcile runs a full ledger scan in audit or correct mode
func (h *BillingHandler) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()
	mode := types.ReconcileMode(c.DefaultQuery("mode", string(types.ReconcileModeAudit)))

	report, err := h.reconciliationService.Reconcile(ctx, mode)
	if err != nil {
		h.log.Errorw("reconciliation failed", "error", err, "mode", mode)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}
