package stripe

import (
	"context"

	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

type subscriptionVerifier struct {
	client *Client
	logger *logger.Logger
}

// NewSubscriptionVerifier returns a ledger.SubscriptionVerifier that does
// point lookups against the Stripe subscription API.
func NewSubscriptionVerifier(client *Client, logger *logger.Logger) ledger.SubscriptionVerifier {
	return &subscriptionVerifier{
		client: client,
		logger: logger,
	}
}

// GetSubscriptionStatus retrieves the live status of one subscription.
// An unknown reference fails with a distinct not-found error so callers can
// tell "no such subscription" apart from "processor unreachable".
func (s *subscriptionVerifier) GetSubscriptionStatus(ctx context.Context, subscriptionRef string) (ledger.SubscriptionStatus, error) {
	if subscriptionRef == "" {
		return ledger.SubscriptionStatusUnknown, ierr.NewError("subscription reference is required").
			WithHint("Subscription reference must not be empty").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.client.API().V1Subscriptions.Retrieve(ctx, subscriptionRef, &stripe.SubscriptionRetrieveParams{})
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ledger.SubscriptionStatusUnknown, ierr.NewError("subscription not found").
				WithHint("The processor does not know this subscription").
				WithReportableDetails(map[string]any{
					"subscription_ref": subscriptionRef,
				}).
				Mark(ierr.ErrNotFound)
		}
		s.logger.Errorw("failed to retrieve subscription from Stripe",
			"error", err,
			"subscription_ref", subscriptionRef)
		return ledger.SubscriptionStatusUnknown, ierr.WithError(err).
			WithHint("Could not fetch subscription status from the processor").
			Mark(ierr.ErrLedgerUnavailable)
	}

	return fromStripeStatus(sub.Status), nil
}

func fromStripeStatus(status stripe.SubscriptionStatus) ledger.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return ledger.SubscriptionStatusActive
	case stripe.SubscriptionStatusCanceled:
		return ledger.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return ledger.SubscriptionStatusIncomplete
	default:
		return ledger.SubscriptionStatusUnknown
	}
}
