// Package pricing evaluates service cost models.
// Pricing is pure arithmetic over the catalog: a quantity and a service's
// declared cost model go in, monthly and annual costs with a breakdown come
// out. Nothing here mutates the catalog or fails on valid input.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"research-planner/core/pricing/primitives"
	"research-planner/core/types"
	"research-planner/internal/logging"
)

// ServiceLookup resolves services by slug. *catalog.Catalog satisfies it.
type ServiceLookup interface {
	Service(slug string) (*types.Service, bool)
}

// Evaluator prices quantities against the services of a catalog
type Evaluator struct {
	services ServiceLookup
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator over a service lookup
func NewEvaluator(services ServiceLookup) *Evaluator {
	return &Evaluator{
		services: services,
		logger:   logging.Named("pricing"),
	}
}

// Price evaluates a service by slug. An unknown service prices to zero with
// no breakdown and reports false.
func (e *Evaluator) Price(serviceSlug string, quantity decimal.Decimal, optInSubsidy string) (types.Estimate, bool) {
	svc, ok := e.services.Service(serviceSlug)
	if !ok {
		e.logger.Debug("pricing unknown service", zap.String("service", serviceSlug))
		return types.Estimate{Monthly: decimal.Zero, Annual: decimal.Zero}, false
	}
	return Evaluate(svc, quantity, optInSubsidy), true
}

// Evaluate computes the monthly and annual cost of quantity units of a
// service. The auto-apply subsidy is applied first, then the opt-in subsidy
// named by optInSubsidy, if the service offers it.
func Evaluate(svc *types.Service, quantity decimal.Decimal, optInSubsidy string) types.Estimate {
	cm := svc.CostModel
	monthly := decimal.Zero
	var breakdown []types.BreakdownRow

	switch cm.Type {
	case types.CostModelUnit:
		monthly = cm.PricePerUnit.Mul(quantity)
		unit := svc.UnitLabel()
		breakdown = append(breakdown, types.BreakdownRow{
			Label:  fmt.Sprintf("%s %s @ $%s/%s", quantity, unit, cm.PricePerUnit, unit),
			Amount: types.Amount(monthly),
		})

	case types.CostModelTiered:
		total, charges := primitives.CalculateTieredCost(quantity, cm.Tiers)
		monthly = total
		for _, ch := range charges {
			label := ch.Tier.Label
			if label == "" {
				label = fmt.Sprintf("%s %s @ $%s", ch.Quantity, svc.UnitLabel(), ch.Tier.PricePerUnit)
			}
			breakdown = append(breakdown, types.BreakdownRow{Label: label, Amount: types.Amount(ch.Cost)})
		}

	case types.CostModelConsultation:
		breakdown = append(breakdown, types.BreakdownRow{Label: "Pricing determined during consultation"})
		return types.Estimate{Monthly: decimal.Zero, Annual: decimal.Zero, Breakdown: breakdown}
	}

	if sub, ok := svc.AutoSubsidy(); ok {
		monthly, breakdown = applySubsidy(svc, sub, quantity, monthly, breakdown)
	}
	if sub, ok := svc.OptInSubsidy(optInSubsidy); ok {
		monthly, breakdown = applySubsidy(svc, sub, quantity, monthly, breakdown)
	}

	if monthly.IsNegative() {
		monthly = decimal.Zero
	}

	return types.Estimate{
		Monthly:   monthly,
		Annual:    monthly.Mul(types.MonthsPerYear),
		Breakdown: breakdown,
	}
}
