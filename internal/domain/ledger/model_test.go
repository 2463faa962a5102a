package ledger

import (
	"testing"

	"github.com/notara/billing/internal/domain/billing"
	"github.com/notara/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	event := &PurchaseEvent{
		EventID:         "cs_1",
		EntityID:        "ent_1",
		RequestedPlan:   types.PlanPro,
		SubscriptionRef: "sub_1",
	}

	expected := event.Project()
	assert.NotNil(t, expected)
	assert.Equal(t, "ent_1", expected.EntityID)
	assert.Equal(t, types.PlanPro, expected.Plan)
	assert.Equal(t, "sub_1", expected.SubscriptionRef)
}

func TestProjectUnlinkedEvent(t *testing.T) {
	event := &PurchaseEvent{EventID: "cs_1", RequestedPlan: types.PlanPro}
	assert.Nil(t, event.Project())

	var nilEvent *PurchaseEvent
	assert.Nil(t, nilEvent.Project())
}

func TestMatches(t *testing.T) {
	expected := &ExpectedState{
		EntityID:        "ent_1",
		Plan:            types.PlanPro,
		SubscriptionRef: "sub_1",
	}

	assert.False(t, expected.Matches(nil))

	record := &billing.Record{
		EntityID:                "ent_1",
		Plan:                    types.PlanPro,
		ExternalSubscriptionRef: lo.ToPtr("sub_1"),
	}
	assert.True(t, expected.Matches(record))

	record.Plan = types.PlanLite
	assert.False(t, expected.Matches(record))

	record.Plan = types.PlanPro
	record.ExternalSubscriptionRef = lo.ToPtr("sub_2")
	assert.False(t, expected.Matches(record))

	record.ExternalSubscriptionRef = nil
	assert.False(t, expected.Matches(record))
}
