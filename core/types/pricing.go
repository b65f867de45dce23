// Package types - Subsidy types
package types

import "github.com/shopspring/decimal"

// DiscountType selects how a subsidy reduces cost
type DiscountType string

const (
	// DiscountPercent removes DiscountValue percent of the monthly cost
	DiscountPercent DiscountType = "percent"

	// DiscountFixed removes DiscountValue currency units per month
	DiscountFixed DiscountType = "fixed"

	// DiscountFreeUnits waives the first DiscountValue units (unit models only)
	DiscountFreeUnits DiscountType = "free_units"
)

// Subsidy is a discount rule attached to a service
type Subsidy struct {
	Slug          string          `json:"slug"`
	Label         string          `json:"label,omitempty"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	AutoApply     bool            `json:"auto_apply"`
}
