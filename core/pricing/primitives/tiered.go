// Package primitives - Tiered pricing primitives
// Greedy lowest-tier-first allocation of a quantity across rate bands.
package primitives

import (
	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

// TierCharge is the part of a quantity billed inside one tier
type TierCharge struct {
	Tier     types.PricingTier
	Quantity decimal.Decimal
	Cost     decimal.Decimal
}

// CalculateTieredCost walks tiers in ascending order and bills each unit
// exactly once. Tiers are assumed contiguous; catalog validation rejects
// tables that are not. Only tiers that actually consume quantity are
// returned.
func CalculateTieredCost(quantity decimal.Decimal, tiers []types.PricingTier) (decimal.Decimal, []TierCharge) {
	if !quantity.IsPositive() || len(tiers) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	remaining := quantity
	var charges []TierCharge

	for _, tier := range tiers {
		if !remaining.IsPositive() {
			break
		}

		used := remaining
		if capacity, bounded := tier.Capacity(); bounded {
			used = decimal.Min(remaining, capacity)
		}
		if !used.IsPositive() {
			continue
		}

		cost := used.Mul(tier.PricePerUnit)
		total = total.Add(cost)
		charges = append(charges, TierCharge{Tier: tier, Quantity: used, Cost: cost})
		remaining = remaining.Sub(used)
	}

	return total, charges
}

// FreeUnits returns the billable part of quantity after waiving freeAmount
// units, never below zero
func FreeUnits(quantity, freeAmount decimal.Decimal) decimal.Decimal {
	billable := quantity.Sub(freeAmount)
	if billable.IsNegative() {
		return decimal.Zero
	}
	return billable
}
