package dto

import (
	"time"

	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/types"
)

// InitiateCheckoutRequest starts a new checkout session for an entity.
type InitiateCheckoutRequest struct {
	EntityID      string     `json:"entity_id"`
	ContactEmail  string     `json:"contact_email"`
	RequestedPlan types.Plan `json:"requested_plan"`
}

func (r *InitiateCheckoutRequest) Validate() error {
	if r.EntityID == "" {
		return ierr.NewError("entity id is required").
			WithHint("Entity ID must not be empty").
			Mark(ierr.ErrValidation)
	}
	return r.RequestedPlan.ValidatePurchasable()
}

type InitiateCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// VerifyPlanRequest is the synchronous post-purchase confirmation call.
type VerifyPlanRequest struct {
	EntityID      string     `json:"entity_id"`
	RequestedPlan types.Plan `json:"requested_plan"`
}

func (r *VerifyPlanRequest) Validate() error {
	if r.EntityID == "" {
		return ierr.NewError("entity id is required").
			WithHint("Entity ID must not be empty").
			Mark(ierr.ErrValidation)
	}
	return r.RequestedPlan.ValidatePurchasable()
}

type VerifyPlanResponse struct {
	// Verified is true only when the processor confirmed an active
	// subscription; a trust-on-request fallback application reports false.
	Verified bool       `json:"verified"`
	Plan     types.Plan `json:"plan"`
}

// BillingRecordResponse mirrors a stored billing record in report output.
type BillingRecordResponse struct {
	EntityID                string     `json:"entity_id"`
	Plan                    types.Plan `json:"plan"`
	ExternalCustomerRef     *string    `json:"external_customer_ref,omitempty"`
	ExternalSubscriptionRef *string    `json:"external_subscription_ref,omitempty"`
	PlanStartedAt           *time.Time `json:"plan_started_at,omitempty"`
	PlanEndedAt             *time.Time `json:"plan_ended_at,omitempty"`
	DevOverride             bool       `json:"dev_override,omitempty"`
}

func ToBillingRecordResponse(r *billing.Record) *BillingRecordResponse {
	if r == nil {
		return nil
	}
	return &BillingRecordResponse{
		EntityID:                r.EntityID,
		Plan:                    r.Plan,
		ExternalCustomerRef:     r.ExternalCustomerRef,
		ExternalSubscriptionRef: r.ExternalSubscriptionRef,
		PlanStartedAt:           r.PlanStartedAt,
		PlanEndedAt:             r.PlanEndedAt,
		DevOverride:             r.DevOverride,
	}
}

// DriftEntry is one detected mismatch between the ledger-derived expected
// state and the stored record. Actual is nil when no record exists.
type DriftEntry struct {
	EntityID string                 `json:"entity_id"`
	Expected *ledger.ExpectedState  `json:"expected"`
	Actual   *BillingRecordResponse `json:"actual,omitempty"`
}

// Drift error stages
const (
	DriftErrorStageLookup = "lookup"
	DriftErrorStageUpdate = "update"
)

// DriftEntityError records a per-entity failure that did not stop the scan.
type DriftEntityError struct {
	EntityID string `json:"entity_id"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// DriftReport is the outcome of one reconciliation run.
type DriftReport struct {
	RunID       string              `json:"run_id"`
	Mode        types.ReconcileMode `json:"mode"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`

	// ScannedEvents counts every ledger event consumed during the scan;
	// UnlinkedEvents counts those skipped for missing linkage metadata.
	ScannedEvents  int `json:"scanned_events"`
	UnlinkedEvents int `json:"unlinked_events"`

	// DriftCount counts mismatched entities; CorrectedCount how many were
	// fixed (correct mode only); FailedCount how many hit a per-entity
	// lookup or update failure.
	DriftCount     int `json:"drift_count"`
	CorrectedCount int `json:"corrected_count"`
	FailedCount    int `json:"failed_count"`

	Entries []*DriftEntry       `json:"entries"`
	Errors  []*DriftEntityError `json:"errors,omitempty"`
}
