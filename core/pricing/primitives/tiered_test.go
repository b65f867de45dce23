package primitives

import (
	"testing"

	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func twoTiers() []types.PricingTier {
	return []types.PricingTier{
		{From: d("0"), UpTo: dp("10000"), PricePerUnit: d("1.0")},
		{From: d("10000"), UpTo: nil, PricePerUnit: d("0.5")},
	}
}

func TestCalculateTieredCost(t *testing.T) {
	tests := []struct {
		name        string
		quantity    string
		wantTotal   string
		wantCharges int
	}{
		{"zero quantity", "0", "0", 0},
		{"negative quantity", "-5", "0", 0},
		{"inside first tier", "500", "500", 1},
		{"exactly at boundary", "10000", "10000", 1},
		{"spills into unlimited tier", "15000", "12500", 2},
		{"fractional spill", "10000.5", "10000.25", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, charges := CalculateTieredCost(d(tt.quantity), twoTiers())
			if !total.Equal(d(tt.wantTotal)) {
				t.Errorf("expected total %s, got %s", tt.wantTotal, total)
			}
			if len(charges) != tt.wantCharges {
				t.Errorf("expected %d charges, got %d", tt.wantCharges, len(charges))
			}
		})
	}
}

func TestCalculateTieredCostPiecewiseLinear(t *testing.T) {
	tiers := []types.PricingTier{
		{From: d("0"), UpTo: dp("10"), PricePerUnit: d("3")},
		{From: d("10"), UpTo: dp("20"), PricePerUnit: d("2")},
		{From: d("20"), UpTo: nil, PricePerUnit: d("1")},
	}

	prev := decimal.Zero
	for q := int64(0); q <= 40; q++ {
		total, _ := CalculateTieredCost(decimal.NewFromInt(q), tiers)
		if total.LessThan(prev) {
			t.Fatalf("cost decreased at q=%d: %s < %s", q, total, prev)
		}

		step := total.Sub(prev)
		var wantStep decimal.Decimal
		switch {
		case q == 0:
			wantStep = decimal.Zero
		case q <= 10:
			wantStep = d("3")
		case q <= 20:
			wantStep = d("2")
		default:
			wantStep = d("1")
		}
		if !step.Equal(wantStep) {
			t.Errorf("q=%d: expected marginal cost %s, got %s", q, wantStep, step)
		}
		prev = total
	}
}

func TestZeroPriceTierProducesChargeRow(t *testing.T) {
	tiers := []types.PricingTier{
		{From: d("0"), UpTo: dp("5"), PricePerUnit: d("0"), Label: "Free"},
		{From: d("5"), UpTo: nil, PricePerUnit: d("2")},
	}
	total, charges := CalculateTieredCost(d("7"), tiers)
	if !total.Equal(d("4")) {
		t.Errorf("expected 4, got %s", total)
	}
	if len(charges) != 2 || charges[0].Tier.Label != "Free" || !charges[0].Quantity.Equal(d("5")) {
		t.Errorf("expected free tier charge of 5 units, got %+v", charges)
	}
}

func TestFreeUnits(t *testing.T) {
	if got := FreeUnits(d("12000"), d("10000")); !got.Equal(d("2000")) {
		t.Errorf("expected 2000, got %s", got)
	}
	if got := FreeUnits(d("500"), d("10000")); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}
