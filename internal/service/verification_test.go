package service

import (
	"context"
	"testing"
	"time"

	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/testutil"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type VerificationServiceSuite struct {
	testutil.BaseServiceTestSuite
	accessErr error
}

func TestVerificationService(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.accessErr = nil
}

func (s *VerificationServiceSuite) newService() VerificationService {
	return NewVerificationService(ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		Sentry:               s.GetSentry(),
		BillingRepo:          s.GetStore(),
		LedgerReader:         s.GetLedger(),
		SubscriptionVerifier: s.GetVerifier(),
		CheckoutClient:       s.GetCheckout(),
		AccessChecker: billing.AccessCheckerFunc(func(ctx context.Context, entityID string) error {
			return s.accessErr
		}),
	})
}

func (s *VerificationServiceSuite) TestActiveSubscriptionVerifies() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanFree,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.GetVerifier().Statuses["sub_1"] = ledger.SubscriptionStatusActive

	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.NoError(err)
	s.True(resp.Verified)
	s.Equal(types.PlanPro, resp.Plan)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	s.Equal("sub_1", record.SubscriptionRef())
	s.NotNil(record.PlanStartedAt)
	s.False(record.DevOverride)
}

func (s *VerificationServiceSuite) TestFallbackWithoutSubscriptionRef() {
	// No record at all; the async event path has not caught up yet
	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.NoError(err)
	s.False(resp.Verified)
	s.Equal(types.PlanPro, resp.Plan)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	s.Equal("", record.SubscriptionRef())
	s.True(record.DevOverride)

	// No point lookup happened: there was nothing to look up
	s.Empty(s.GetVerifier().Lookups)
}

func (s *VerificationServiceSuite) TestFallbackDisabledRejectsUnverified() {
	s.GetConfig().Billing.AllowUnverifiedApply = false

	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Nil(resp)

	// The record stays untouched
	s.Equal(0, s.GetStore().Count())
}

func (s *VerificationServiceSuite) TestInconclusiveLookupNeverVerifies() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanFree,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.GetVerifier().FailFor["sub_1"] = true

	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.NoError(err)
	s.False(resp.Verified)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	// The stored reference survives an inconclusive lookup
	s.Equal("sub_1", record.SubscriptionRef())
}

func (s *VerificationServiceSuite) TestCanceledSubscriptionTakesFallback() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanPro,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.GetVerifier().Statuses["sub_1"] = ledger.SubscriptionStatusCanceled
	s.GetConfig().Billing.AllowUnverifiedApply = false

	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Nil(resp)
}

func (s *VerificationServiceSuite) TestApplyIsIdempotent() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanFree,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.GetVerifier().Statuses["sub_1"] = ledger.SubscriptionStatusActive

	svc := s.newService()
	req := &dto.VerifyPlanRequest{EntityID: "c1", RequestedPlan: types.PlanPro}

	_, err := svc.VerifyAndApply(s.GetContext(), req)
	s.NoError(err)
	first, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.VerifyAndApply(s.GetContext(), req)
	s.NoError(err)
	second, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)

	// Identical apart from the refreshed plan start time
	s.Equal(first.Plan, second.Plan)
	s.Equal(first.SubscriptionRef(), second.SubscriptionRef())
	s.Equal(first.DevOverride, second.DevOverride)
	s.Nil(second.PlanEndedAt)
	s.True(second.PlanStartedAt.After(*first.PlanStartedAt))
}

func (s *VerificationServiceSuite) TestAccessDenied() {
	s.accessErr = ierr.NewError("not a member").Mark(ierr.ErrPermissionDenied)

	resp, err := s.newService().VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanPro,
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
	s.Nil(resp)
	s.Equal(0, s.GetStore().Count())
}

func (s *VerificationServiceSuite) TestInvalidRequests() {
	svc := s.newService()

	_, err := svc.VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "",
		RequestedPlan: types.PlanPro,
	})
	s.True(ierr.IsValidation(err))

	_, err = svc.VerifyAndApply(s.GetContext(), &dto.VerifyPlanRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanFree,
	})
	s.True(ierr.IsValidation(err))
}
