// Package catalog - Catalog validation
// Ensures referential integrity and pricing invariants once, at load time,
// so that engines can treat lookups as total.
package catalog

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"research-planner/core/types"
	"research-planner/internal/errors"
)

// ValidationRule checks one aspect of a catalog and reports every problem
type ValidationRule func(*Catalog) []error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateServiceReferences,
		validateMappings,
		validateCostModels,
		validateSubsidies,
		validateCalculators,
		validateQuestionnaire,
	}
}

// Validate runs rules against the catalog. All problems are reported
// together as CONFIG_ERRORs.
func (c *Catalog) Validate(rules []ValidationRule) error {
	var errs []error
	for _, rule := range rules {
		errs = append(errs, rule(c)...)
	}
	return errors.Join(errs...)
}

func validateServiceReferences(c *Catalog) []error {
	var errs []error
	categories := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		categories[cat.Slug] = true
	}
	seen := make(map[string]bool, len(c.Services))

	for _, svc := range c.Services {
		if seen[svc.Slug] {
			errs = append(errs, errors.Configf("duplicate service %q", svc.Slug))
		}
		seen[svc.Slug] = true

		if len(categories) > 0 && !categories[svc.Category] {
			errs = append(errs, errors.Configf("service %q references unknown category: %q", svc.Slug, svc.Category))
		}
		if svc.ArchiveOption != nil && svc.ArchiveOption.ServiceSlug != "" {
			if _, ok := c.services[svc.ArchiveOption.ServiceSlug]; !ok {
				errs = append(errs, errors.Configf("service %q archive_option references unknown service: %q",
					svc.Slug, svc.ArchiveOption.ServiceSlug))
			}
		}
	}
	return errs
}

func validateMappings(c *Catalog) []error {
	var errs []error
	for _, m := range c.Mappings {
		if _, ok := c.services[m.Service]; !ok {
			errs = append(errs, errors.Configf("mapping references unknown service: %q", m.Service))
		}
		if _, ok := c.tiers[m.Tier]; !ok {
			errs = append(errs, errors.Configf("mapping references unknown tier: %q", m.Tier))
		}
	}
	return errs
}

func validateCostModels(c *Catalog) []error {
	var errs []error
	for _, svc := range c.Services {
		cm := svc.CostModel
		switch cm.Type {
		case types.CostModelUnit:
			if cm.PricePerUnit.IsNegative() {
				errs = append(errs, errors.Configf("service %q has a negative price_per_unit", svc.Slug))
			}
		case types.CostModelTiered:
			for _, err := range ValidateTiers(cm.Tiers) {
				errs = append(errs, fmt.Errorf("service %q: %w", svc.Slug, err))
			}
		case types.CostModelConsultation:
		default:
			errs = append(errs, errors.Configf("service %q has unknown cost model type %q", svc.Slug, cm.Type))
		}
	}
	return errs
}

// ValidateTiers rejects tier tables that are not contiguous from zero.
// Each tier must start where the previous one ended, and only the last may
// be unlimited.
func ValidateTiers(tiers []types.PricingTier) []error {
	if len(tiers) == 0 {
		return []error{errors.Config("tiered cost model has no tiers")}
	}

	var errs []error
	expectedFrom := decimal.Zero
	for i, tier := range tiers {
		if !tier.From.Equal(expectedFrom) {
			errs = append(errs, errors.Configf("tier %d starts at %s, expected %s", i, tier.From, expectedFrom))
		}
		if tier.PricePerUnit.IsNegative() {
			errs = append(errs, errors.Configf("tier %d has a negative price", i))
		}
		if tier.Unlimited() {
			if i != len(tiers)-1 {
				errs = append(errs, errors.Configf("tier %d is unlimited but is not the last tier", i))
			}
			continue
		}
		if !tier.UpTo.GreaterThan(tier.From) {
			errs = append(errs, errors.Configf("tier %d up_to %s must exceed from %s", i, tier.UpTo, tier.From))
		}
		expectedFrom = *tier.UpTo
	}
	return errs
}

func validateSubsidies(c *Catalog) []error {
	var errs []error
	for _, svc := range c.Services {
		autos := 0
		for _, sub := range svc.Subsidies {
			if sub.AutoApply {
				autos++
			}
			switch sub.DiscountType {
			case types.DiscountPercent, types.DiscountFixed:
			case types.DiscountFreeUnits:
				if svc.CostModel.Type != types.CostModelUnit {
					errs = append(errs, errors.Configf("service %q: free_units subsidy %q requires a unit cost model",
						svc.Slug, sub.Slug))
				}
			default:
				errs = append(errs, errors.Configf("service %q: subsidy %q has unknown discount_type %q",
					svc.Slug, sub.Slug, sub.DiscountType))
			}
			if sub.DiscountValue.IsNegative() {
				errs = append(errs, errors.Configf("service %q: subsidy %q has a negative discount", svc.Slug, sub.Slug))
			}
		}
		if autos > 1 {
			errs = append(errs, errors.Configf("service %q has %d auto-apply subsidies, at most one is allowed", svc.Slug, autos))
		}
	}
	return errs
}

func validateCalculators(c *Catalog) []error {
	var errs []error
	for _, calc := range c.Calculators {
		req, ok := KindRequirements[calc.Kind]
		if !ok {
			errs = append(errs, errors.Configf("calculator %q has unknown kind %q", calc.ID, calc.Kind))
			continue
		}
		if calc.Category != req.Category {
			errs = append(errs, errors.Configf("calculator %q is listed under %q but computes %q",
				calc.ID, calc.Category, req.Category))
		}
		if calc.TargetService != "" {
			if _, ok := c.services[calc.TargetService]; !ok {
				errs = append(errs, errors.Configf("calculator %q targets unknown service %q", calc.ID, calc.TargetService))
			}
		}
		for _, alt := range calc.Alternatives {
			if _, ok := c.services[alt]; !ok {
				errs = append(errs, errors.Configf("calculator %q lists unknown alternative service %q", calc.ID, alt))
			}
		}
		for _, tr := range req.Tables {
			rows, ok := calc.Tables[tr.Table]
			if !ok || len(rows) == 0 {
				errs = append(errs, errors.Configf("calculator %q is missing table %q", calc.ID, tr.Table))
				continue
			}
			for _, row := range rows {
				errs = append(errs, checkRow(calc.ID, tr, row)...)
			}
		}
	}
	return errs
}

func checkRow(calcID string, tr TableRequirement, row Row) []error {
	var errs []error
	for _, p := range tr.AllOf {
		if v, ok := row.Param(p); !ok || !v.IsPositive() {
			errs = append(errs, errors.Configf("calculator %q table %q row %q needs positive %q",
				calcID, tr.Table, row.Label, p))
		}
	}
	if len(tr.AnyOf) > 0 {
		found := false
		for _, p := range tr.AnyOf {
			if v, ok := row.Param(p); ok && v.IsPositive() {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, errors.Configf("calculator %q table %q row %q needs one of %v",
				calcID, tr.Table, row.Label, tr.AnyOf))
		}
	}
	return errs
}

func validateQuestionnaire(c *Catalog) []error {
	q := c.Questionnaire
	if len(q.Nodes) == 0 {
		return nil
	}

	var errs []error
	if _, ok := c.nodes[q.Start]; !ok {
		errs = append(errs, errors.Configf("questionnaire start node %q does not exist", q.Start))
	}
	for _, n := range q.Nodes {
		for _, o := range n.Options {
			if !o.IsTerminal() {
				if _, ok := c.nodes[o.Next]; !ok {
					errs = append(errs, errors.Configf("question %q option %q points to unknown node %q", n.ID, o.Value, o.Next))
				}
			}
			if o.SetsTier != "" {
				if _, ok := c.tiers[o.SetsTier]; !ok {
					errs = append(errs, errors.Configf("question %q option %q sets unknown tier %q", n.ID, o.Value, o.SetsTier))
				}
			}
		}
	}
	if len(errs) == 0 {
		if cycle := findCycle(c); cycle != "" {
			errs = append(errs, errors.Configf("questionnaire contains a cycle through %q", cycle))
		}
	}
	return errs
}

// findCycle returns a node on a cycle, or "" for a DAG
func findCycle(c *Catalog) string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(c.nodes))

	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case visiting:
			return id
		case done:
			return ""
		}
		state[id] = visiting
		for _, o := range c.nodes[id].Options {
			if o.IsTerminal() {
				continue
			}
			if found := visit(o.Next); found != "" {
				return found
			}
		}
		state[id] = done
		return ""
	}

	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if found := visit(id); found != "" {
			return found
		}
	}
	return ""
}
