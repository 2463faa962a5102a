package testutil

import (
	"context"

	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
)

// FakeLedger implements ledger.Reader over a fixed sequence of pages. Pages
// are served in order regardless of the cursor passed, which mirrors how the
// real feed is consumed (cursor forwarded from the prior page).
type FakeLedger struct {
	Pages []*ledger.EventPage

	// FailOnCall makes the n-th ListEvents call (1-based) fail, simulating
	// whole-ledger unavailability.
	FailOnCall int

	Calls   int
	Cursors []*string
}

func NewFakeLedger(pages ...*ledger.EventPage) *FakeLedger {
	return &FakeLedger{Pages: pages}
}

func (f *FakeLedger) ListEvents(ctx context.Context, cursor *string) (*ledger.EventPage, error) {
	f.Calls++
	f.Cursors = append(f.Cursors, cursor)

	if f.FailOnCall > 0 && f.Calls == f.FailOnCall {
		return nil, ierr.NewError("ledger unreachable").Mark(ierr.ErrLedgerUnavailable)
	}

	if f.Calls > len(f.Pages) {
		return &ledger.EventPage{Events: nil, HasMore: false}, nil
	}
	return f.Pages[f.Calls-1], nil
}

// FakeSubscriptionVerifier implements ledger.SubscriptionVerifier over a
// fixed status map.
type FakeSubscriptionVerifier struct {
	Statuses map[string]ledger.SubscriptionStatus

	// FailFor makes lookups for these refs fail with a transport error.
	FailFor map[string]bool

	Lookups []string
}

func NewFakeSubscriptionVerifier() *FakeSubscriptionVerifier {
	return &FakeSubscriptionVerifier{
		Statuses: make(map[string]ledger.SubscriptionStatus),
		FailFor:  make(map[string]bool),
	}
}

func (f *FakeSubscriptionVerifier) GetSubscriptionStatus(ctx context.Context, subscriptionRef string) (ledger.SubscriptionStatus, error) {
	f.Lookups = append(f.Lookups, subscriptionRef)

	if f.FailFor[subscriptionRef] {
		return ledger.SubscriptionStatusUnknown, ierr.NewError("processor unreachable").
			Mark(ierr.ErrLedgerUnavailable)
	}
	status, ok := f.Statuses[subscriptionRef]
	if !ok {
		return ledger.SubscriptionStatusUnknown, ierr.NewError("subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return status, nil
}

// FakeCheckoutClient implements ledger.CheckoutClient and captures the
// requests it receives.
type FakeCheckoutClient struct {
	Requests []*ledger.CreateSessionRequest
	Err      error
}

func NewFakeCheckoutClient() *FakeCheckoutClient {
	return &FakeCheckoutClient{}
}

func (f *FakeCheckoutClient) CreateCheckoutSession(ctx context.Context, req *ledger.CreateSessionRequest) (*ledger.CheckoutSession, error) {
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	return &ledger.CheckoutSession{
		SessionID:   "cs_test_" + req.EntityID,
		RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_" + req.EntityID,
	}, nil
}
