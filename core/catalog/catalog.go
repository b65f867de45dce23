// Package catalog - The configuration model
// Tiers, services, tier eligibility, calculator tables and the
// classification questionnaire. A Catalog is validated once when it is
// finalized and is read-only afterwards; every lookup reports not-found
// explicitly instead of failing.
package catalog

import (
	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

// Meta describes the catalog itself
type Meta struct {
	Version     string
	Institution string
}

// Mapping makes a service eligible for a tier
type Mapping struct {
	Service string
	Tier    string
}

// Global holds settings shared by every calculator
type Global struct {
	// SafetyMultiplier inflates calculator output. Zero means not configured.
	SafetyMultiplier decimal.Decimal
}

// Catalog is the complete configuration model
type Catalog struct {
	Meta          Meta
	Tiers         []types.Tier
	Categories    []types.ServiceCategory
	Services      []*types.Service
	Mappings      []Mapping
	Calculators   []*CalculatorSpec
	Global        Global
	Questionnaire Questionnaire

	tiers       map[string]*types.Tier
	services    map[string]*types.Service
	calculators map[string]*CalculatorSpec
	nodes       map[string]*Node
	mappings    map[string]Mapping
	byTier      map[string][]string
	finalized   bool
}

// Finalize builds the lookup indexes and validates the catalog. A catalog
// that fails validation must not be used.
func (c *Catalog) Finalize() error {
	c.tiers = make(map[string]*types.Tier, len(c.Tiers))
	for i := range c.Tiers {
		c.tiers[c.Tiers[i].Slug] = &c.Tiers[i]
	}

	c.services = make(map[string]*types.Service, len(c.Services))
	for _, svc := range c.Services {
		c.services[svc.Slug] = svc
	}

	c.calculators = make(map[string]*CalculatorSpec, len(c.Calculators))
	for _, calc := range c.Calculators {
		if calc.Kind == "" {
			calc.Kind = Kind(calc.ID)
		}
		c.calculators[calc.ID] = calc
	}

	c.nodes = make(map[string]*Node, len(c.Questionnaire.Nodes))
	for _, n := range c.Questionnaire.Nodes {
		c.nodes[n.ID] = n
	}

	c.mappings = make(map[string]Mapping, len(c.Mappings))
	c.byTier = make(map[string][]string)
	for _, m := range c.Mappings {
		c.mappings[mappingKey(m.Service, m.Tier)] = m
		c.byTier[m.Tier] = append(c.byTier[m.Tier], m.Service)
	}

	if err := c.Validate(DefaultValidationRules()); err != nil {
		return err
	}
	c.finalized = true
	return nil
}

// IsFinalized reports whether Finalize succeeded
func (c *Catalog) IsFinalized() bool {
	return c.finalized
}

// Tier looks up a tier by slug
func (c *Catalog) Tier(slug string) (*types.Tier, bool) {
	t, ok := c.tiers[slug]
	return t, ok
}

// Service looks up a service by slug
func (c *Catalog) Service(slug string) (*types.Service, bool) {
	s, ok := c.services[slug]
	return s, ok
}

// Calculator looks up a calculator by id
func (c *Catalog) Calculator(id string) (*CalculatorSpec, bool) {
	calc, ok := c.calculators[id]
	return calc, ok
}

// Node looks up a questionnaire node by id
func (c *Catalog) Node(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Start returns the questionnaire root node id
func (c *Catalog) Start() string {
	return c.Questionnaire.Start
}

// SafetyMultiplier returns the global calculator multiplier, or 1
func (c *Catalog) SafetyMultiplier() decimal.Decimal {
	if c.Global.SafetyMultiplier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return c.Global.SafetyMultiplier
}

// Mapping returns the tier mapping of a service
func (c *Catalog) Mapping(serviceSlug, tierSlug string) (Mapping, bool) {
	m, ok := c.mappings[mappingKey(serviceSlug, tierSlug)]
	return m, ok
}

// IsServiceAvailableForTier reports whether a service may be requested at a tier
func (c *Catalog) IsServiceAvailableForTier(serviceSlug, tierSlug string) bool {
	_, ok := c.Mapping(serviceSlug, tierSlug)
	return ok
}

// ServicesForTier returns the eligible services of a tier in mapping order
func (c *Catalog) ServicesForTier(tierSlug string) []*types.Service {
	var out []*types.Service
	for _, slug := range c.byTier[tierSlug] {
		if svc, ok := c.services[slug]; ok {
			out = append(out, svc)
		}
	}
	return out
}

// RequiresConsultation reports whether a tier short-circuits to a manual
// consultation instead of self-service requests
func (c *Catalog) RequiresConsultation(tierSlug string) bool {
	t, ok := c.Tier(tierSlug)
	return ok && t.ConsultationRequired
}

// CategoryOf returns the category a calculator is grouped under
func (c *Catalog) CategoryOf(calculatorID string) (types.Category, bool) {
	calc, ok := c.Calculator(calculatorID)
	if !ok || calc.Category == "" {
		return "", false
	}
	return calc.Category, true
}

func mappingKey(service, tier string) string {
	return service + ":" + tier
}
