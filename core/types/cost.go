// Package types - Cost model types
package types

import "github.com/shopspring/decimal"

// CostModelType tags the CostModel variant
type CostModelType string

const (
	CostModelUnit         CostModelType = "unit"
	CostModelTiered       CostModelType = "tiered"
	CostModelConsultation CostModelType = "consultation"
)

// CostModel is a service's declared pricing structure.
// PricePerUnit is used by unit models, Tiers by tiered models; consultation
// models carry neither.
type CostModel struct {
	Type         CostModelType   `json:"type"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	UnitLabel    string          `json:"unit_label,omitempty"`
	Tiers        []PricingTier   `json:"tiers,omitempty"`
}

// PricingTier is one band of a tiered cost model
type PricingTier struct {
	// From is the first unit charged at this rate
	From decimal.Decimal `json:"from"`

	// UpTo is the exclusive upper bound; nil means unlimited
	UpTo *decimal.Decimal `json:"up_to,omitempty"`

	// PricePerUnit is the rate inside the band
	PricePerUnit decimal.Decimal `json:"price_per_unit"`

	// Label names the band in breakdowns
	Label string `json:"label,omitempty"`
}

// Unlimited reports whether the tier has no upper bound
func (t PricingTier) Unlimited() bool {
	return t.UpTo == nil
}

// Capacity returns UpTo - From and false for an unlimited tier
func (t PricingTier) Capacity() (decimal.Decimal, bool) {
	if t.UpTo == nil {
		return decimal.Zero, false
	}
	return t.UpTo.Sub(t.From), true
}

// BreakdownRow is one human-readable line of a cost breakdown.
// A nil Amount marks an informational row.
type BreakdownRow struct {
	Label  string           `json:"label"`
	Amount *decimal.Decimal `json:"amount"`
}

// Estimate is the priced result of a quantity against a cost model
type Estimate struct {
	Monthly   decimal.Decimal `json:"monthly"`
	Annual    decimal.Decimal `json:"annual"`
	Breakdown []BreakdownRow  `json:"breakdown"`
}

// MonthsPerYear converts monthly to annual costs
var MonthsPerYear = decimal.NewFromInt(12)

// Amount returns a pointer suitable for BreakdownRow.Amount
func Amount(d decimal.Decimal) *decimal.Decimal {
	return &d
}
