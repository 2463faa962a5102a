package ledger

import (
	"time"

	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/types"
)

// PurchaseEvent is one completed purchase from the external payment ledger.
// Events are created only by the processor and are immutable; the linkage
// metadata (entity id, plan, initiating user) is whatever the checkout
// session carried when it was created.
type PurchaseEvent struct {
	// EventID is the processor-assigned id, usable as a pagination cursor
	EventID   string
	CreatedAt time.Time

	// Linkage metadata round-tripped through the processor
	EntityID         string
	RequestedPlan    types.Plan
	InitiatingUserID string

	// Processor references
	CustomerRef     string
	SubscriptionRef string
}

// Project derives the canonical expected billing state from the event.
// Returns nil for unlinked events (no entity id in the metadata); such events
// carry nothing to reconcile against and are counted, not treated as drift.
func (e *PurchaseEvent) Project() *ExpectedState {
	if e == nil || e.EntityID == "" {
		return nil
	}
	return &ExpectedState{
		EntityID:        e.EntityID,
		Plan:            e.RequestedPlan,
		SubscriptionRef: e.SubscriptionRef,
	}
}

// ExpectedState is the ledger-derived billing state for one entity.
// It is ephemeral and recomputed on every reconciliation pass.
type ExpectedState struct {
	EntityID        string     `json:"entity_id"`
	Plan            types.Plan `json:"plan"`
	SubscriptionRef string     `json:"subscription_ref"`
}

// Matches reports whether a stored record already reflects the expected
// state: both the plan and the subscription reference must be equal.
func (e *ExpectedState) Matches(record *billing.Record) bool {
	if record == nil {
		return false
	}
	return record.Plan == e.Plan && record.SubscriptionRef() == e.SubscriptionRef
}

// EventPage is one page of the ledger feed. NextCursor advances the scan by
// the last event's id; HasMore comes from the source and can be true even for
// an empty page, in which case the scan must keep going.
type EventPage struct {
	Events     []*PurchaseEvent
	NextCursor *string
	HasMore    bool
}

// SubscriptionStatus is the live status of one subscription as reported by a
// point lookup against the processor.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusUnknown    SubscriptionStatus = "unknown"
)

// IsActive reports whether the status confirms a live, paid subscription.
func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionStatusActive
}
