package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"research-planner/core/pricing/primitives"
	"research-planner/core/types"
)

var hundred = decimal.NewFromInt(100)

// applySubsidy reduces monthly by one subsidy. The discount is capped at the
// running monthly cost so the result is never negative and the breakdown rows
// always sum to the final cost.
func applySubsidy(
	svc *types.Service,
	sub types.Subsidy,
	quantity decimal.Decimal,
	monthly decimal.Decimal,
	breakdown []types.BreakdownRow,
) (decimal.Decimal, []types.BreakdownRow) {
	var discount decimal.Decimal
	var label string

	switch sub.DiscountType {
	case types.DiscountFreeUnits:
		// Only defined for unit models; validation rejects anything else.
		if svc.CostModel.Type != types.CostModelUnit || !quantity.IsPositive() {
			return monthly, breakdown
		}
		free := quantity.Sub(primitives.FreeUnits(quantity, sub.DiscountValue))
		discount = free.Mul(svc.CostModel.PricePerUnit)
		label = fmt.Sprintf("Free allocation (%s %s)", free, svc.UnitLabel())

	case types.DiscountPercent:
		discount = monthly.Mul(sub.DiscountValue).Div(hundred)
		label = fmt.Sprintf("%s%% subsidy", sub.DiscountValue)

	case types.DiscountFixed:
		discount = sub.DiscountValue
		label = "Fixed subsidy"

	default:
		return monthly, breakdown
	}

	if sub.Label != "" {
		label = sub.Label
	}
	discount = decimal.Min(discount, decimal.Max(monthly, decimal.Zero))
	if !discount.IsPositive() {
		return monthly, breakdown
	}

	breakdown = append(breakdown, types.BreakdownRow{Label: label, Amount: types.Amount(discount.Neg())})
	return monthly.Sub(discount), breakdown
}
