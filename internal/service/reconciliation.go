package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/notara/billing/internal/api/dto"
	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/types"
)

// ReconciliationService scans the payment ledger and compares the derived
// expected state against the local billing store. Audit mode only reports
// drift; correct mode also applies the idempotent state update per entity.
type ReconciliationService interface {
	Reconcile(ctx context.Context, mode types.ReconcileMode) (*dto.DriftReport, error)
}

type reconciliationService struct {
	ServiceParams
	running atomic.Bool
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
	}
}

func (s *reconciliationService) Reconcile(ctx context.Context, mode types.ReconcileMode) (*dto.DriftReport, error) {
	if !mode.Validate() {
		return nil, ierr.NewError("invalid reconcile mode").
			WithHintf("Mode must be audit or correct, got: %s", mode).
			Mark(ierr.ErrValidation)
	}

	// Correction runs over the same entity set are not safe against each
	// other; external schedulers must serialize runs, and this guard catches
	// an overlapping invocation inside one process.
	if !s.running.CompareAndSwap(false, true) {
		return nil, ierr.NewError("reconciliation already in progress").
			WithHint("Only one reconciliation run may be active at a time").
			Mark(ierr.ErrInvalidOperation)
	}
	defer s.running.Store(false)

	report := &dto.DriftReport{
		RunID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECONCILIATION_RUN),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Entries:   make([]*dto.DriftEntry, 0),
	}

	s.Logger.Infow("starting reconciliation run",
		"run_id", report.RunID,
		"mode", mode)
	s.Sentry.AddBreadcrumb("reconciliation", "run started", map[string]interface{}{
		"run_id": report.RunID,
		"mode":   string(mode),
	})

	expected, order, err := s.scanLedger(ctx, report)
	if err != nil {
		// Whole-ledger unavailability is fatal to this run; the caller
		// retries with its own backoff policy.
		return nil, err
	}

	for _, entityID := range order {
		s.reconcileEntity(ctx, report, expected[entityID], mode)
	}

	report.CompletedAt = time.Now().UTC()
	s.Logger.Infow("reconciliation run complete",
		"run_id", report.RunID,
		"mode", mode,
		"scanned_events", report.ScannedEvents,
		"unlinked_events", report.UnlinkedEvents,
		"drift_count", report.DriftCount,
		"corrected_count", report.CorrectedCount,
		"failed_count", report.FailedCount)

	return report, nil
}

// scanLedger pages through the whole ledger and folds events into one
// expected state per entity. The ledger is in creation order, so the last
// event seen for an entity supersedes earlier ones. Returned order is
// first-seen order, which keeps report output stable across runs.
func (s *reconciliationService) scanLedger(ctx context.Context, report *dto.DriftReport) (map[string]*ledger.ExpectedState, []string, error) {
	expected := make(map[string]*ledger.ExpectedState)
	order := make([]string, 0)

	var cursor *string
	for {
		page, err := s.LedgerReader.ListEvents(ctx, cursor)
		if err != nil {
			s.Logger.Errorw("ledger scan aborted",
				"run_id", report.RunID,
				"error", err)
			s.Sentry.CaptureException(err)
			return nil, nil, err
		}

		for _, event := range page.Events {
			report.ScannedEvents++
			state := event.Project()
			if state == nil {
				report.UnlinkedEvents++
				s.Logger.Debugw("skipping unlinked ledger event",
					"event_id", event.EventID)
				continue
			}
			if _, seen := expected[state.EntityID]; !seen {
				order = append(order, state.EntityID)
			}
			expected[state.EntityID] = state
		}

		if !page.HasMore {
			break
		}
		// An empty page that still signals more keeps the prior cursor and
		// keeps scanning; the feed is eventually consistent.
		if page.NextCursor != nil {
			cursor = page.NextCursor
		}
	}

	return expected, order, nil
}

// reconcileEntity compares one entity's stored record against its expected
// state. Per-entity failures are absorbed into the report so one bad record
// never aborts the rest of the audit.
func (s *reconciliationService) reconcileEntity(ctx context.Context, report *dto.DriftReport, expected *ledger.ExpectedState, mode types.ReconcileMode) {
	var actual *billing.Record
	record, err := s.BillingRepo.Get(ctx, expected.EntityID)
	switch {
	case err == nil:
		actual = record
	case ierr.IsNotFound(err):
		actual = nil
	default:
		s.Logger.Errorw("failed to load billing record",
			"run_id", report.RunID,
			"entity_id", expected.EntityID,
			"error", err)
		s.Sentry.CaptureException(err)
		report.Errors = append(report.Errors, &dto.DriftEntityError{
			EntityID: expected.EntityID,
			Stage:    dto.DriftErrorStageLookup,
			Error:    err.Error(),
		})
		report.FailedCount++
		return
	}

	if expected.Matches(actual) {
		return
	}

	report.Entries = append(report.Entries, &dto.DriftEntry{
		EntityID: expected.EntityID,
		Expected: expected,
		Actual:   dto.ToBillingRecordResponse(actual),
	})
	report.DriftCount++

	if mode != types.ReconcileModeCorrect {
		return
	}

	if _, err := applyExpectedState(ctx, s.BillingRepo, expected); err != nil {
		s.Logger.Errorw("failed to correct billing record",
			"run_id", report.RunID,
			"entity_id", expected.EntityID,
			"error", err)
		s.Sentry.CaptureException(err)
		report.Errors = append(report.Errors, &dto.DriftEntityError{
			EntityID: expected.EntityID,
			Stage:    dto.DriftErrorStageUpdate,
			Error:    err.Error(),
		})
		report.FailedCount++
		return
	}

	report.CorrectedCount++
	s.Logger.Infow("corrected billing record",
		"run_id", report.RunID,
		"entity_id", expected.EntityID,
		"plan", expected.Plan,
		"subscription_ref", expected.SubscriptionRef)
}
