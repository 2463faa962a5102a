package service

import (
	"context"

	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
)

// VerificationService is the synchronous, single-entity confirmation path a
// front end calls right after a purchase flow completes. It bypasses the full
// ledger scan: the record's subscription reference is checked with a point
// lookup against the processor.
type VerificationService interface {
	VerifyAndApply(ctx context.Context, req *dto.VerifyPlanRequest) (*dto.VerifyPlanResponse, error)
}

type verificationService struct {
	ServiceParams
}

func NewVerificationService(params ServiceParams) VerificationService {
	return &verificationService{
		ServiceParams: params,
	}
}

func (s *verificationService) VerifyAndApply(ctx context.Context, req *dto.VerifyPlanRequest) (*dto.VerifyPlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.AccessChecker.CanManageBilling(ctx, req.EntityID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("You do not have access to this entity's billing").
			Mark(ierr.ErrPermissionDenied)
	}

	record, err := s.BillingRepo.Get(ctx, req.EntityID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		record = nil
	}

	verified := false
	subscriptionRef := ""
	if record != nil {
		subscriptionRef = record.SubscriptionRef()
	}
	if subscriptionRef != "" {
		status, err := s.SubscriptionVerifier.GetSubscriptionStatus(ctx, subscriptionRef)
		if err != nil {
			// Inconclusive lookup: never escalated to verified, the
			// fallback below decides what happens.
			s.Logger.Warnw("subscription status lookup inconclusive",
				"entity_id", req.EntityID,
				"subscription_ref", subscriptionRef,
				"error", err)
		} else {
			verified = status.IsActive()
		}
	}

	if !verified && !s.Config.Billing.AllowUnverifiedApply {
		return nil, ierr.NewError("plan change could not be verified").
			WithHint("The purchase has not been confirmed by the payment processor yet").
			WithReportableDetails(map[string]any{
				"entity_id":      req.EntityID,
				"requested_plan": req.RequestedPlan,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	expected := &ledger.ExpectedState{
		EntityID:        req.EntityID,
		Plan:            req.RequestedPlan,
		SubscriptionRef: subscriptionRef,
	}
	updated, err := applyExpectedState(ctx, s.BillingRepo, expected)
	if err != nil {
		return nil, err
	}

	if verified {
		s.Logger.Infow("verified plan applied",
			"entity_id", req.EntityID,
			"plan", updated.Plan,
			"subscription_ref", subscriptionRef)
	} else {
		// Trust-on-request path: the plan is recorded without processor
		// confirmation. Gated by billing.allow_unverified_apply and logged
		// loudly so every occurrence is auditable.
		s.Logger.Warnw("unverified plan applied",
			"entity_id", req.EntityID,
			"plan", updated.Plan,
			"subscription_ref", subscriptionRef)
	}

	return &dto.VerifyPlanResponse{
		Verified: verified,
		Plan:     updated.Plan,
	}, nil
}
