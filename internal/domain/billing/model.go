package billing

import (
	"time"

	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/types"
)

// Record is the local billing state for one entity. There is at most one
// record per entity; records are never deleted, only downgraded to free.
type Record struct {
	// EntityID is the stable identifier of the customer entity
	EntityID string `db:"entity_id" json:"entity_id"`

	// Plan is the currently granted billing plan
	Plan types.Plan `db:"plan" json:"plan"`

	// ExternalCustomerRef is the processor customer reference, set once a
	// checkout session first links the entity to the processor
	ExternalCustomerRef *string `db:"external_customer_ref" json:"external_customer_ref"`

	// ExternalSubscriptionRef is the processor subscription reference
	ExternalSubscriptionRef *string `db:"external_subscription_ref" json:"external_subscription_ref"`

	// PlanStartedAt is when the current plan was granted
	PlanStartedAt *time.Time `db:"plan_started_at" json:"plan_started_at"`

	// PlanEndedAt is set when the entity is downgraded back to free
	PlanEndedAt *time.Time `db:"plan_ended_at" json:"plan_ended_at"`

	// DevOverride flags a record whose paid plan was granted manually
	// without a backing subscription (local and staging environments only)
	DevOverride bool `db:"dev_override" json:"dev_override"`

	types.BaseModel
}

// Validate checks the record invariants: a paid plan requires a subscription
// reference unless the record is an explicit dev override, and a plan end time
// can not precede its start time.
func (r *Record) Validate() error {
	if err := r.Plan.Validate(); err != nil {
		return err
	}
	if r.Plan.IsPaid() && !r.DevOverride {
		if r.ExternalSubscriptionRef == nil || *r.ExternalSubscriptionRef == "" {
			return ierr.NewError("paid plan requires a subscription reference").
				WithHint("A paid plan must be backed by a processor subscription").
				WithReportableDetails(map[string]any{
					"entity_id": r.EntityID,
					"plan":      r.Plan,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	if r.PlanStartedAt != nil && r.PlanEndedAt != nil && r.PlanEndedAt.Before(*r.PlanStartedAt) {
		return ierr.NewError("plan end precedes plan start").
			WithHint("plan_ended_at must not be before plan_started_at").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionRef returns the subscription reference or "" when unset.
func (r *Record) SubscriptionRef() string {
	if r.ExternalSubscriptionRef == nil {
		return ""
	}
	return *r.ExternalSubscriptionRef
}
