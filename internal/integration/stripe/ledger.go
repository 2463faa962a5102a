package stripe

import (
	"context"
	"time"

	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/logger"
	sentryService "github.com/notara/billing/internal/sentry"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
)

// Metadata keys stamped on checkout sessions and subscriptions at creation
// time so that ledger events are self-describing downstream.
const (
	MetadataKeyEntityID = "notara_entity_id"
	MetadataKeyPlan     = "notara_plan"
	MetadataKeyUserID   = "notara_user_id"
)

type ledgerReader struct {
	client *Client
	sentry *sentryService.Service
	logger *logger.Logger
}

// NewLedgerReader returns a ledger.Reader backed by the Stripe checkout
// session feed, filtered to completed sessions.
func NewLedgerReader(client *Client, sentry *sentryService.Service, logger *logger.Logger) ledger.Reader {
	return &ledgerReader{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

// ListEvents fetches one page of completed checkout sessions. The cursor is
// the last event id of the prior page. No retries happen here: a transport or
// rate-limit failure is marked ledger-unavailable and handled by the caller.
func (r *ledgerReader) ListEvents(ctx context.Context, cursor *string) (*ledger.EventPage, error) {
	pageSize := r.client.pageSize()

	span, ctx := r.sentry.StartLedgerSpan(ctx, "ledger.list_events", map[string]interface{}{
		"cursor":    lo.FromPtr(cursor),
		"page_size": pageSize,
	})
	if span != nil {
		defer span.Finish()
	}

	params := &stripe.CheckoutSessionListParams{
		Status: stripe.String(string(stripe.CheckoutSessionStatusComplete)),
	}
	params.Limit = stripe.Int64(pageSize)
	if cursor != nil && *cursor != "" {
		params.StartingAfter = cursor
	}

	events := make([]*ledger.PurchaseEvent, 0, pageSize)
	for sess, err := range r.client.API().V1CheckoutSessions.List(ctx, params) {
		if err != nil {
			r.logger.Errorw("failed to list checkout sessions",
				"error", err,
				"cursor", cursor)
			return nil, ierr.WithError(err).
				WithHint("Unable to read the payment ledger").
				Mark(ierr.ErrLedgerUnavailable)
		}
		events = append(events, fromCheckoutSession(sess))
		if int64(len(events)) >= pageSize {
			break
		}
	}

	page := &ledger.EventPage{
		Events:  events,
		HasMore: int64(len(events)) == pageSize,
	}
	if page.HasMore && len(events) > 0 {
		last := events[len(events)-1].EventID
		page.NextCursor = &last
	}

	r.logger.Debugw("fetched ledger page",
		"events", len(events),
		"has_more", page.HasMore)

	return page, nil
}

// fromCheckoutSession maps a completed session to a purchase event. Sessions
// created outside this service lack the linkage metadata and surface as
// unlinked events.
func fromCheckoutSession(sess *stripe.CheckoutSession) *ledger.PurchaseEvent {
	event := &ledger.PurchaseEvent{
		EventID:          sess.ID,
		CreatedAt:        time.Unix(sess.Created, 0).UTC(),
		EntityID:         sess.Metadata[MetadataKeyEntityID],
		RequestedPlan:    types.Plan(sess.Metadata[MetadataKeyPlan]),
		InitiatingUserID: sess.Metadata[MetadataKeyUserID],
	}
	if sess.Customer != nil {
		event.CustomerRef = sess.Customer.ID
	}
	if sess.Subscription != nil {
		event.SubscriptionRef = sess.Subscription.ID
	}
	return event
}
