package service

import (
	"testing"

	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/domain/billing"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/testutil"
	"github.com/notara/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceTestSuite
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) newService() CheckoutService {
	return NewCheckoutService(ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		Sentry:               s.GetSentry(),
		BillingRepo:          s.GetStore(),
		LedgerReader:         s.GetLedger(),
		SubscriptionVerifier: s.GetVerifier(),
		CheckoutClient:       s.GetCheckout(),
		AccessChecker:        billing.NewAllowAllAccessChecker(),
	})
}

func (s *CheckoutServiceSuite) TestInitiateCheckout() {
	resp, err := s.newService().InitiateCheckout(s.GetContext(), &dto.InitiateCheckoutRequest{
		EntityID:      "c1",
		ContactEmail:  "owner@example.com",
		RequestedPlan: types.PlanPro,
	})
	s.NoError(err)
	s.NotEmpty(resp.SessionID)
	s.NotEmpty(resp.RedirectURL)

	// The session carries the linkage keys, including the initiating user
	s.Len(s.GetCheckout().Requests, 1)
	req := s.GetCheckout().Requests[0]
	s.Equal("c1", req.EntityID)
	s.Equal(types.PlanPro, req.Plan)
	s.Equal("owner@example.com", req.ContactEmail)
	s.Equal("user_test", req.InitiatingUserID)

	// No local billing state is written for a session the payer may abandon
	s.Equal(0, s.GetStore().Count())
}

func (s *CheckoutServiceSuite) TestUnknownPlanRejected() {
	for _, plan := range []types.Plan{types.PlanFree, types.Plan("enterprise"), types.Plan("")} {
		_, err := s.newService().InitiateCheckout(s.GetContext(), &dto.InitiateCheckoutRequest{
			EntityID:      "c1",
			RequestedPlan: plan,
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	}
	s.Empty(s.GetCheckout().Requests)
}

func (s *CheckoutServiceSuite) TestMissingEntityRejected() {
	_, err := s.newService().InitiateCheckout(s.GetContext(), &dto.InitiateCheckoutRequest{
		EntityID:      "",
		RequestedPlan: types.PlanPro,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Empty(s.GetCheckout().Requests)
}

func (s *CheckoutServiceSuite) TestProcessorFailurePropagates() {
	s.GetCheckout().Err = ierr.NewError("processor rejected the session").Mark(ierr.ErrSystem)

	_, err := s.newService().InitiateCheckout(s.GetContext(), &dto.InitiateCheckoutRequest{
		EntityID:      "c1",
		RequestedPlan: types.PlanLite,
	})
	s.Error(err)
	s.False(ierr.IsValidation(err))
	s.Equal(0, s.GetStore().Count())
}
