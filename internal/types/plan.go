package types

import (
	ierr "github.com/notara/billing/internal/errors"
	"github.com/samber/lo"
)

// Plan is the billing plan held by one entity.
type Plan string

const (
	PlanFree Plan = "free"
	PlanLite Plan = "lite"
	PlanPro  Plan = "pro"
	PlanMax  Plan = "max"
)

// PaidPlans is the closed set of plans a checkout session may request.
var PaidPlans = []Plan{PlanLite, PlanPro, PlanMax}

func (p Plan) String() string {
	return string(p)
}

// IsPaid returns true for every plan other than free.
func (p Plan) IsPaid() bool {
	return lo.Contains(PaidPlans, p)
}

// Validate checks that the plan is a known plan value.
func (p Plan) Validate() error {
	switch p {
	case PlanFree, PlanLite, PlanPro, PlanMax:
		return nil
	}
	return ierr.NewError("invalid plan").
		WithHintf("Plan must be one of: free, lite, pro, max, got: %s", p).
		Mark(ierr.ErrValidation)
}

// ValidatePurchasable checks that the plan can be purchased through checkout.
func (p Plan) ValidatePurchasable() error {
	if lo.Contains(PaidPlans, p) {
		return nil
	}
	return ierr.NewError("plan is not purchasable").
		WithHintf("Plan must be one of: lite, pro, max, got: %s", p).
		Mark(ierr.ErrValidation)
}
