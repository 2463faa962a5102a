package stripe

import (
	"context"

	"github.com/notara/billing/internal/domain/ledger"
	"github.com/notara/billing/internal/domain/plan"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

type checkoutClient struct {
	client *Client
	logger *logger.Logger
}

// NewCheckoutClient returns a ledger.CheckoutClient that creates Stripe
// subscription checkout sessions.
func NewCheckoutClient(client *Client, logger *logger.Logger) ledger.CheckoutClient {
	return &checkoutClient{
		client: client,
		logger: logger,
	}
}

// CreateCheckoutSession creates a subscription-mode checkout session. The
// linkage metadata is stamped on both the session and the subscription it
// creates, so either object identifies the entity when inspected on its own.
func (c *checkoutClient) CreateCheckoutSession(ctx context.Context, req *ledger.CreateSessionRequest) (*ledger.CheckoutSession, error) {
	pricing, err := plan.GetPricing(req.Plan)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		MetadataKeyEntityID: req.EntityID,
		MetadataKeyPlan:     string(req.Plan),
		MetadataKeyUserID:   req.InitiatingUserID,
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(pricing.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(pricing.DisplayName),
					},
					UnitAmount: stripe.Int64(pricing.UnitAmountCents()),
					Recurring: &stripe.CheckoutSessionCreateLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.client.cfg.Stripe.SuccessURL),
		CancelURL:  stripe.String(c.client.cfg.Stripe.CancelURL),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.ContactEmail != "" {
		params.CustomerEmail = stripe.String(req.ContactEmail)
	}

	sess, err := c.client.API().V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"entity_id", req.EntityID,
			"plan", req.Plan)
		return nil, ierr.WithError(err).
			WithHint("Unable to create checkout session").
			WithReportableDetails(map[string]any{
				"entity_id": req.EntityID,
				"plan":      req.Plan,
			}).
			Mark(ierr.ErrSystem)
	}

	c.logger.Infow("created checkout session",
		"session_id", sess.ID,
		"entity_id", req.EntityID,
		"plan", req.Plan)

	return &ledger.CheckoutSession{
		SessionID:   sess.ID,
		RedirectURL: sess.URL,
	}, nil
}
