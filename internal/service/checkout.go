package service

import (
	"context"

	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/domain/ledger"
	"github.com/notara/billing/internal/types"
)

// CheckoutService creates processor checkout sessions carrying the linkage
// metadata that makes later ledger events self-describing. It writes nothing
// locally: an abandoned session must not mutate billing state, so the record
// is only touched once the live verifier or the reconciler confirms the
// purchase.
type CheckoutService interface {
	InitiateCheckout(ctx context.Context, req *dto.InitiateCheckoutRequest) (*dto.InitiateCheckoutResponse, error)
}

type checkoutService struct {
	ServiceParams
}

func NewCheckoutService(params ServiceParams) CheckoutService {
	return &checkoutService{
		ServiceParams: params,
	}
}

func (s *checkoutService) InitiateCheckout(ctx context.Context, req *dto.InitiateCheckoutRequest) (*dto.InitiateCheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.CheckoutClient.CreateCheckoutSession(ctx, &ledger.CreateSessionRequest{
		EntityID:         req.EntityID,
		ContactEmail:     req.ContactEmail,
		Plan:             req.RequestedPlan,
		InitiatingUserID: types.GetUserID(ctx),
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("checkout initiated",
		"entity_id", req.EntityID,
		"plan", req.RequestedPlan,
		"session_id", session.SessionID)

	return &dto.InitiateCheckoutResponse{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
	}, nil
}
