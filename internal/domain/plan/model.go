package plan

import (
	ierr "github.com/notara/billing/internal/errors"
	"github.com/notara/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Pricing describes one purchasable plan as it appears on a checkout line
// item. Prices are monthly and tax-exclusive.
type Pricing struct {
	Plan         types.Plan
	DisplayName  string
	MonthlyPrice decimal.Decimal
	Currency     string
}

var catalog = map[types.Plan]*Pricing{
	types.PlanLite: {
		Plan:         types.PlanLite,
		DisplayName:  "Notara Lite",
		MonthlyPrice: decimal.NewFromInt(8),
		Currency:     "usd",
	},
	types.PlanPro: {
		Plan:         types.PlanPro,
		DisplayName:  "Notara Pro",
		MonthlyPrice: decimal.NewFromInt(20),
		Currency:     "usd",
	},
	types.PlanMax: {
		Plan:         types.PlanMax,
		DisplayName:  "Notara Max",
		MonthlyPrice: decimal.NewFromInt(48),
		Currency:     "usd",
	},
}

// GetPricing returns the catalog entry for a purchasable plan.
func GetPricing(p types.Plan) (*Pricing, error) {
	if err := p.ValidatePurchasable(); err != nil {
		return nil, err
	}
	pricing, ok := catalog[p]
	if !ok {
		return nil, ierr.NewError("plan has no pricing").
			WithHintf("No pricing configured for plan: %s", p).
			Mark(ierr.ErrNotFound)
	}
	return pricing, nil
}

// UnitAmountCents returns the monthly price in the processor's smallest
// currency unit.
func (p *Pricing) UnitAmountCents() int64 {
	return p.MonthlyPrice.Mul(decimal.NewFromInt(100)).IntPart()
}
