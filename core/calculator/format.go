package calculator

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// roundUp applies the final ceiling rounding of a category: storage to
// 0.001 TB, compute to whole SU, GPU to 0.1 hours
func roundUp(category types.Category, v decimal.Decimal) decimal.Decimal {
	switch category {
	case types.CategoryStorage:
		return v.RoundCeil(3)
	case types.CategoryCompute:
		return v.RoundCeil(0)
	case types.CategoryGPU:
		return v.RoundCeil(1)
	default:
		return v
	}
}

func totalRow(category types.Category, final decimal.Decimal) Row {
	switch category {
	case types.CategoryStorage:
		return Row{Label: "Total storage", Value: formatBytes(final.Mul(bytesPerTB)), Highlight: true}
	case types.CategoryCompute:
		return Row{Label: "Total SU", Value: formatCount(final), Highlight: true}
	default:
		return Row{Label: "Total GPU-hours", Value: formatNumber(final), Highlight: true}
	}
}

// formatCount renders a count with thousands separators
func formatCount(d decimal.Decimal) string {
	if d.IsInteger() {
		return humanize.Comma(d.IntPart())
	}
	return humanize.Commaf(d.InexactFloat64())
}

// formatBytes renders a byte count in binary units with at most two
// decimals, e.g. "1.5 GB"
func formatBytes(bytes decimal.Decimal) string {
	if bytes.IsZero() {
		return "0 Bytes"
	}
	i := 0
	v := bytes
	for v.GreaterThanOrEqual(kib) && i < len(byteUnits)-1 {
		v = v.Div(kib)
		i++
	}
	return v.Round(2).String() + " " + byteUnits[i]
}

// formatNumber renders a quantity with precision that depends on its size
func formatNumber(d decimal.Decimal) string {
	switch {
	case d.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return formatCount(d)
	case d.GreaterThanOrEqual(one):
		return d.StringFixed(1)
	default:
		return d.StringFixed(2)
	}
}

// formatResult renders a result with its unit. Storage under 1 TB is
// shown in GB.
func formatResult(v decimal.Decimal, category types.Category) string {
	switch category {
	case types.CategoryStorage:
		if v.GreaterThanOrEqual(one) {
			return v.StringFixed(1) + " TB"
		}
		return v.Mul(gbPerTB).Round(0).String() + " GB"
	case types.CategoryCompute:
		return humanize.Comma(v.Round(0).IntPart()) + " SU"
	case types.CategoryGPU:
		return formatNumber(v) + " GPU-hours"
	default:
		return formatNumber(v) + " units"
	}
}

// relatable maps a result onto fixed everyday magnitude bands
func relatable(category types.Category, v decimal.Decimal) string {
	round := func(d decimal.Decimal) string { return humanize.Comma(d.Round(0).IntPart()) }
	f := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	switch category {
	case types.CategoryStorage:
		switch {
		case v.LessThan(f("0.001")):
			return fmt.Sprintf("About %s small documents", round(v.Mul(mib)))
		case v.LessThan(f("0.1")):
			return fmt.Sprintf("About %s photos", round(v.Mul(kib).Mul(f("1000"))))
		case v.LessThan(one):
			return fmt.Sprintf("About %s hours of HD video", round(v.Mul(f("200"))))
		case v.LessThan(f("10")):
			return fmt.Sprintf("About %s hours of HD video or %s months of streaming",
				round(v.Mul(f("200"))), round(v.Mul(f("3"))))
		default:
			return fmt.Sprintf("About %s full human genome sequences", round(v.Div(f("0.7"))))
		}

	case types.CategoryCompute:
		switch {
		case v.LessThan(f("100")):
			return fmt.Sprintf("About %s hours on a modern laptop", round(v.Div(f("4"))))
		case v.LessThan(f("1000")):
			return fmt.Sprintf("About %s days on a modern laptop", round(v.Div(f("40"))))
		default:
			return fmt.Sprintf("Would take %s weeks on a laptop, but just %s hours on HPC",
				round(v.Div(f("1000"))), round(v.Div(f("100"))))
		}

	case types.CategoryGPU:
		switch {
		case v.LessThan(f("10")):
			return fmt.Sprintf("About %s laptop-hours with a consumer GPU", round(v.Mul(f("10"))))
		case v.LessThan(f("100")):
			return fmt.Sprintf("Would take %s days non-stop on a gaming GPU", round(v.Div(f("8"))))
		default:
			return fmt.Sprintf("Serious compute - would take %s weeks on a single GPU", round(v.Div(f("168"))))
		}
	}
	return ""
}
