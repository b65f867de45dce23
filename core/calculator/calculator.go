// Package calculator converts domain inputs into storage, compute and GPU
// quantities.
// A Calculator holds the inputs of one configured calculator and the result
// of its last calculation. Errors are recorded on the calculator and never
// escape a calculation.
package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"research-planner/core/catalog"
	"research-planner/core/slate"
	"research-planner/core/types"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

// Config resolves calculators and global settings. *catalog.Catalog
// satisfies it.
type Config interface {
	Calculator(id string) (*catalog.CalculatorSpec, bool)
	SafetyMultiplier() decimal.Decimal
}

// Slate receives calculator results. *slate.Store satisfies it.
type Slate interface {
	AddItem(req slate.ItemRequest) slate.Item
}

// Row is one human-readable line of a calculation
type Row struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Display is a result in the unit it is best shown in
type Display struct {
	Value decimal.Decimal
	Unit  string
}

// defaultTargets maps a category to the service its results are requested from
var defaultTargets = map[types.Category]string{
	types.CategoryStorage: "hpc-storage",
	types.CategoryCompute: "hpc-cpu",
	types.CategoryGPU:     "hpc-gpu",
}

// Calculator is the state of one calculator
type Calculator struct {
	spec       *catalog.CalculatorSpec
	multiplier decimal.Decimal

	inputs    map[string]any
	result    *decimal.Decimal
	breakdown []Row
	err       *errors.Error

	logger *zap.Logger
}

// New creates a calculator for a configured calculator id
func New(cfg Config, id string) (*Calculator, bool) {
	spec, ok := cfg.Calculator(id)
	if !ok {
		return nil, false
	}
	return &Calculator{
		spec:       spec,
		multiplier: cfg.SafetyMultiplier(),
		inputs:     make(map[string]any),
		logger:     logging.Named("calculator").With(zap.String("calculator", id)),
	}, true
}

// ID returns the calculator id
func (c *Calculator) ID() string { return c.spec.ID }

// Spec returns the configured calculator
func (c *Calculator) Spec() *catalog.CalculatorSpec { return c.spec }

// Category returns the resource category of the result
func (c *Calculator) Category() types.Category { return c.spec.Category }

// SetInput sets one input. A nil value removes it.
func (c *Calculator) SetInput(key string, value any) {
	if value == nil {
		delete(c.inputs, key)
		return
	}
	c.inputs[key] = value
}

// Input returns one input
func (c *Calculator) Input(key string) (any, bool) {
	v, ok := c.inputs[key]
	return v, ok
}

// Inputs returns a copy of the current inputs
func (c *Calculator) Inputs() map[string]any {
	out := make(map[string]any, len(c.inputs))
	for k, v := range c.inputs {
		out[k] = v
	}
	return out
}

// HasInputs reports whether any input holds a non-empty value
func (c *Calculator) HasInputs() bool {
	for _, v := range c.inputs {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return true
	}
	return false
}

// ResetInputs clears inputs, result, breakdown and error
func (c *Calculator) ResetInputs() {
	c.inputs = make(map[string]any)
	c.result = nil
	c.breakdown = nil
	c.err = nil
}

// ApplyPreset copies the inputs of a configured preset and recalculates.
// It reports false when the preset does not exist.
func (c *Calculator) ApplyPreset(label string) bool {
	preset, ok := c.spec.Preset(label)
	if !ok {
		return false
	}
	for k, v := range preset.Inputs {
		c.inputs[k] = v
	}
	c.Calculate()
	return true
}

// Calculate evaluates the formula of the calculator over the current inputs.
// On failure the result is cleared and Err describes the problem.
func (c *Calculator) Calculate() bool {
	c.err = nil
	c.breakdown = nil
	c.result = nil

	f, ok := formulas[c.spec.Kind]
	if !ok {
		c.fail(errors.Input("Unknown calculator: " + string(c.spec.Kind)))
		return false
	}
	if !c.spec.Category.IsValid() {
		c.fail(errors.Input("Unknown calculator category: " + string(c.spec.Category)))
		return false
	}

	amount, rows, err := f(c)
	if err != nil {
		c.fail(err)
		return false
	}

	raw := amount
	if c.spec.Category == types.CategoryStorage {
		raw = amount.Div(bytesPerTB)
	}

	final := raw
	if !c.multiplier.IsZero() && !c.multiplier.Equal(one) {
		final = raw.Mul(c.multiplier)
		rows = append(rows, Row{
			Label: "Safety buffer (" + c.multiplier.String() + "×)",
			Value: formatResult(raw, c.spec.Category) + " → " + formatResult(final, c.spec.Category),
		})
	}
	final = roundUp(c.spec.Category, final)

	rows = append(rows, totalRow(c.spec.Category, final))
	c.breakdown = rows
	c.result = &final

	c.logger.Debug("calculated",
		zap.String("raw", raw.String()),
		zap.String("result", final.String()))
	return true
}

func (c *Calculator) fail(err *errors.Error) {
	c.err = err
	c.result = nil
	c.breakdown = nil
	c.logger.Debug("calculation failed", zap.String("error", err.Message))
}

// Result returns the last computed quantity in the output unit
func (c *Calculator) Result() (decimal.Decimal, bool) {
	if c.result == nil {
		return decimal.Zero, false
	}
	return *c.result, true
}

// Breakdown returns the rows of the last calculation
func (c *Calculator) Breakdown() []Row {
	return append([]Row(nil), c.breakdown...)
}

// Err returns the error of the last calculation or slate operation
func (c *Calculator) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// ErrMessage returns the user-facing message of Err, or ""
func (c *Calculator) ErrMessage() string {
	if c.err == nil {
		return ""
	}
	return c.err.Message
}

// OutputUnit returns the unit of the result
func (c *Calculator) OutputUnit() types.Unit {
	return types.UnitFor(c.spec.Category)
}

// TargetService returns the service results are added to by default
func (c *Calculator) TargetService() string {
	if c.spec.TargetService != "" {
		return c.spec.TargetService
	}
	if slug, ok := defaultTargets[c.spec.Category]; ok {
		return slug
	}
	return defaultTargets[types.CategoryStorage]
}

// AlternativeServices returns the other services a result may be added to
func (c *Calculator) AlternativeServices() []string {
	return append([]string(nil), c.spec.Alternatives...)
}

// DisplayResult returns the result in display units. Storage under 1 TB is
// shown in whole GB.
func (c *Calculator) DisplayResult() (Display, bool) {
	r, ok := c.Result()
	if !ok {
		return Display{}, false
	}
	if c.spec.Category == types.CategoryStorage && r.LessThan(one) {
		return Display{Value: r.Mul(gbPerTB).Round(0), Unit: "GB"}, true
	}
	return Display{Value: r, Unit: c.OutputUnit().Label}, true
}

// RelatableComparison describes the result in everyday terms, or "" when
// there is no result
func (c *Calculator) RelatableComparison() string {
	r, ok := c.Result()
	if !ok || r.IsZero() {
		return ""
	}
	return relatable(c.spec.Category, r)
}

// AddToSlate adds the result to the slate under serviceSlug, or under the
// target service when serviceSlug is empty. It fails when there is no
// positive result.
func (c *Calculator) AddToSlate(s Slate, serviceSlug string) bool {
	r, ok := c.Result()
	if !ok || !r.IsPositive() {
		c.err = errors.Input("Calculate a result first")
		return false
	}
	if serviceSlug == "" {
		serviceSlug = c.TargetService()
	}

	item := s.AddItem(slate.ItemRequest{
		Service:          serviceSlug,
		Quantity:         r,
		Unit:             c.OutputUnit().Label,
		FromCalculator:   c.spec.ID,
		CalculatorInputs: c.Inputs(),
	})
	c.logger.Debug("added to slate",
		zap.String("service", serviceSlug),
		zap.String("item", item.ID))
	return true
}

// selection returns a selection input as a trimmed string
func (c *Calculator) selection(key string) string {
	v, ok := c.inputs[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// count returns a numeric input. Missing, malformed or non-positive values
// take the default.
func (c *Calculator) count(key string, def int64) decimal.Decimal {
	fallback := decimal.NewFromInt(def)
	v, ok := c.inputs[key]
	if !ok || v == nil {
		return fallback
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return fallback
	}
	return d
}

// lookup resolves a selection input against a table
func (c *Calculator) lookup(table, key string) (catalog.Row, bool) {
	return c.spec.Lookup(table, c.selection(key))
}
