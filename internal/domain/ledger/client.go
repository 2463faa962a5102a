package ledger

import (
	"context"

	"github.com/notara/billing/internal/types"
)

// Reader pages through the external payment ledger. The feed is append-only
// and eventually consistent; callers advance by the returned cursor until
// HasMore is false. Implementations do not retry internally; failures are
// surfaced marked as ledger-unavailable and retried by the caller with its
// own backoff policy.
type Reader interface {
	ListEvents(ctx context.Context, cursor *string) (*EventPage, error)
}

// SubscriptionVerifier is the point lookup used by the live verifier. It must
// fail with a distinct not-found error when the reference is unknown to the
// processor.
type SubscriptionVerifier interface {
	GetSubscriptionStatus(ctx context.Context, subscriptionRef string) (SubscriptionStatus, error)
}

// CreateSessionRequest carries everything a checkout session needs so that
// later ledger events are self-describing.
type CreateSessionRequest struct {
	EntityID         string
	ContactEmail     string
	Plan             types.Plan
	InitiatingUserID string
}

// CheckoutSession is the created processor session the payer is redirected to.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
}

// CheckoutClient creates subscription checkout sessions with the processor.
type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error)
}
