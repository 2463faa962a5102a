package service

import (
	"testing"
	"time"

	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/testutil"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceSuite struct {
	testutil.BaseServiceTestSuite
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) newService() ReconciliationService {
	return NewReconciliationService(ServiceParams{
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

func purchaseEvent(id, entityID string, plan types.Plan, subRef string) *ledger.PurchaseEvent {
	return &ledger.PurchaseEvent{
		EventID:          id,
		CreatedAt:        time.Now().UTC(),
		EntityID:         entityID,
		RequestedPlan:    plan,
		InitiatingUserID: "user_test",
		CustomerRef:      "cus_test",
		SubscriptionRef:  subRef,
	}
}

func singlePage(events ...*ledger.PurchaseEvent) *ledger.EventPage {
	return &ledger.EventPage{Events: events, HasMore: false}
}

func (s *ReconciliationServiceSuite) TestAuditReportsAbsentRecord() {
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(1, report.ScannedEvents)
	s.Equal(0, report.UnlinkedEvents)
	s.Equal(1, report.DriftCount)
	s.Len(report.Entries, 1)
	s.Equal("c1", report.Entries[0].EntityID)
	s.Equal(types.PlanPro, report.Entries[0].Expected.Plan)
	s.Nil(report.Entries[0].Actual)

	// Audit mode never mutates the store
	s.Equal(0, report.CorrectedCount)
	s.Equal(0, s.GetStore().Count())
}

func (s *ReconciliationServiceSuite) TestAuditReportsPlanMismatch() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanLite,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)

	// Drift even though the subscription reference matches: the plan differs
	s.Equal(1, report.DriftCount)
	s.Len(report.Entries, 1)
	s.Equal(types.PlanPro, report.Entries[0].Expected.Plan)
	s.NotNil(report.Entries[0].Actual)
	s.Equal(types.PlanLite, report.Entries[0].Actual.Plan)
}

func (s *ReconciliationServiceSuite) TestAuditMatchedRecordNotReported() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanPro,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	})
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(1, report.ScannedEvents)
	s.Equal(0, report.DriftCount)
	s.Empty(report.Entries)
}

func (s *ReconciliationServiceSuite) TestLastEventWinsAcrossPages() {
	s.SetLedger(testutil.NewFakeLedger(
		&ledger.EventPage{
			Events:     []*ledger.PurchaseEvent{purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")},
			NextCursor: lo.ToPtr("evt_1"),
			HasMore:    true,
		},
		singlePage(purchaseEvent("evt_2", "c1", types.PlanLite, "sub_2")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(2, report.ScannedEvents)

	// The later event supersedes the earlier one for the same entity
	s.Equal(1, report.DriftCount)
	s.Equal(types.PlanLite, report.Entries[0].Expected.Plan)
	s.Equal("sub_2", report.Entries[0].Expected.SubscriptionRef)

	// Cursor advanced by the last event id of the first page
	ledgerFake := s.GetLedger()
	s.Equal(2, ledgerFake.Calls)
	s.Nil(ledgerFake.Cursors[0])
	s.Equal("evt_1", *ledgerFake.Cursors[1])
}

func (s *ReconciliationServiceSuite) TestUnlinkedEventSkipped() {
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(
			purchaseEvent("evt_1", "", types.PlanPro, "sub_1"),
			purchaseEvent("evt_2", "c2", types.PlanMax, "sub_2"),
		),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(2, report.ScannedEvents)
	s.Equal(1, report.UnlinkedEvents)
	s.Equal(1, report.DriftCount)
	s.Equal("c2", report.Entries[0].EntityID)
}

func (s *ReconciliationServiceSuite) TestEmptyPageWithMoreDoesNotEndScan() {
	s.SetLedger(testutil.NewFakeLedger(
		&ledger.EventPage{Events: nil, HasMore: true},
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(2, s.GetLedger().Calls)
	s.Equal(1, report.ScannedEvents)
	s.Equal(1, report.DriftCount)
}

func (s *ReconciliationServiceSuite) TestLedgerFailureAbortsRun() {
	fake := testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	)
	fake.FailOnCall = 1
	s.SetLedger(fake)

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.Error(err)
	s.True(ierr.IsLedgerUnavailable(err))
	s.Nil(report)
}

func (s *ReconciliationServiceSuite) TestCorrectCreatesMissingRecord() {
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	svc := s.newService()
	report, err := svc.Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(1, report.DriftCount)
	s.Equal(1, report.CorrectedCount)
	s.Equal(0, report.FailedCount)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	s.Equal("sub_1", record.SubscriptionRef())
	s.NotNil(record.PlanStartedAt)

	// A second run over the same ledger finds nothing to fix
	report, err = svc.Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(0, report.DriftCount)
	s.Equal(0, report.CorrectedCount)
}

func (s *ReconciliationServiceSuite) TestCorrectUpdatesDriftedRecord() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanLite,
		ExternalSubscriptionRef: lo.ToPtr("sub_old"),
	})
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "sub_1")),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(1, report.CorrectedCount)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	s.Equal("sub_1", record.SubscriptionRef())
	s.Nil(record.PlanEndedAt)
}

func (s *ReconciliationServiceSuite) TestCorrectClearsStaleSubscriptionRef() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "c1",
		Plan:                    types.PlanLite,
		ExternalSubscriptionRef: lo.ToPtr("sub_old"),
	})
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(purchaseEvent("evt_1", "c1", types.PlanPro, "")),
	))

	svc := s.newService()
	report, err := svc.Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(1, report.DriftCount)
	s.Equal(1, report.CorrectedCount)

	record, err := s.GetStore().Get(s.GetContext(), "c1")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
	s.Nil(record.ExternalSubscriptionRef)
	s.True(record.DevOverride)

	// The correction converges: a second scan over the same ledger is clean
	report, err = svc.Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(0, report.DriftCount)
	s.Equal(0, report.CorrectedCount)
}

func (s *ReconciliationServiceSuite) TestUpdateFailureDoesNotStopScan() {
	s.GetStore().Seed(&billing.Record{
		EntityID:                "cx",
		Plan:                    types.PlanLite,
		ExternalSubscriptionRef: lo.ToPtr("sub_x"),
	})
	s.GetStore().Seed(&billing.Record{
		EntityID:                "cy",
		Plan:                    types.PlanLite,
		ExternalSubscriptionRef: lo.ToPtr("sub_y"),
	})
	s.GetStore().FailUpdateFor["cx"] = true

	s.SetLedger(testutil.NewFakeLedger(
		singlePage(
			purchaseEvent("evt_1", "cx", types.PlanPro, "sub_x"),
			purchaseEvent("evt_2", "cy", types.PlanPro, "sub_y"),
		),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeCorrect)
	s.NoError(err)
	s.Equal(2, report.DriftCount)
	s.Equal(1, report.CorrectedCount)
	s.Equal(1, report.FailedCount)
	s.Len(report.Errors, 1)
	s.Equal("cx", report.Errors[0].EntityID)
	s.Equal("update", report.Errors[0].Stage)

	// cy was processed after cx and still got corrected
	record, err := s.GetStore().Get(s.GetContext(), "cy")
	s.NoError(err)
	s.Equal(types.PlanPro, record.Plan)
}

func (s *ReconciliationServiceSuite) TestLookupFailureDoesNotStopScan() {
	s.GetStore().FailGetFor["cx"] = true
	s.SetLedger(testutil.NewFakeLedger(
		singlePage(
			purchaseEvent("evt_1", "cx", types.PlanPro, "sub_x"),
			purchaseEvent("evt_2", "cy", types.PlanPro, "sub_y"),
		),
	))

	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileModeAudit)
	s.NoError(err)
	s.Equal(1, report.FailedCount)
	s.Len(report.Errors, 1)
	s.Equal("cx", report.Errors[0].EntityID)
	s.Equal("lookup", report.Errors[0].Stage)

	// The errored entity is not counted as drift
	s.Equal(1, report.DriftCount)
	s.Equal("cy", report.Entries[0].EntityID)
}

func (s *ReconciliationServiceSuite) TestInvalidModeRejected() {
	report, err := s.newService().Reconcile(s.GetContext(), types.ReconcileMode("dry-run"))
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Nil(report)
}
