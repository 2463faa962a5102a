package service

import (
	"context"
	"time"

	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/domain/ledger"
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
)

// applyExpectedState writes the expected state onto the entity's record as a
// single-record read-modify-write. It is idempotent: re-applying the same
// state changes nothing beyond refreshing plan_started_at. Records are
// created lazily, first write wins; losing the creation race falls through to
// an update of the winner's row.
func applyExpectedState(ctx context.Context, repo billing.Repository, expected *ledger.ExpectedState) (*billing.Record, error) {
	now := time.Now().UTC()
	userID := types.GetUserID(ctx)

	record, err := repo.Get(ctx, expected.EntityID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if record == nil || ierr.IsNotFound(err) {
		record = &billing.Record{
			EntityID:      expected.EntityID,
			BaseModel:     types.GetDefaultBaseModel(userID),
			PlanStartedAt: &now,
		}
		setExpectedFields(record, expected)
		createErr := repo.Create(ctx, record)
		if createErr == nil {
			return record, nil
		}
		if !ierr.IsAlreadyExists(createErr) {
			return nil, createErr
		}
		// Lost the first-write race; reload and update in place.
		record, err = repo.Get(ctx, expected.EntityID)
		if err != nil {
			return nil, err
		}
	}

	setExpectedFields(record, expected)
	record.PlanStartedAt = &now
	record.PlanEndedAt = nil
	record.UpdatedAt = now
	record.UpdatedBy = userID
	if err := repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func setExpectedFields(record *billing.Record, expected *ledger.ExpectedState) {
	record.Plan = expected.Plan
	if expected.SubscriptionRef != "" {
		record.ExternalSubscriptionRef = lo.ToPtr(expected.SubscriptionRef)
		record.DevOverride = false
	} else {
		// A stale reference would keep failing the match rule on every scan,
		// so the ref is cleared along with the plan change. A paid plan
		// granted without a backing subscription is flagged so the invariant
		// stays explicit and later audits can find it.
		record.ExternalSubscriptionRef = nil
		record.DevOverride = expected.Plan.IsPaid()
	}
}
