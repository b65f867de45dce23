package catalogfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"

	"research-planner/core/catalog"
	"research-planner/core/types"
	"research-planner/internal/errors"
)

type hclFile struct {
	Meta          *hclMeta          `hcl:"meta,block"`
	Tiers         []hclTier         `hcl:"tier,block"`
	Categories    []hclCategory     `hcl:"category,block"`
	Services      []hclService      `hcl:"service,block"`
	Mappings      []hclMapping      `hcl:"mapping,block"`
	Calculators   []hclCalculator   `hcl:"calculator,block"`
	Global        *hclGlobal        `hcl:"global,block"`
	Questionnaire *hclQuestionnaire `hcl:"questionnaire,block"`
}

type hclMeta struct {
	Version     string `hcl:"version,optional"`
	Institution string `hcl:"institution,optional"`
}

type hclTier struct {
	Slug                       string `hcl:"slug,label"`
	Name                       string `hcl:"name"`
	Description                string `hcl:"description,optional"`
	ConsultationRequired       bool   `hcl:"consultation_required,optional"`
	RetentionQuestionsRequired bool   `hcl:"retention_questions_required,optional"`
}

type hclCategory struct {
	Slug string `hcl:"slug,label"`
	Name string `hcl:"name"`
}

type hclService struct {
	Slug      string       `hcl:"slug,label"`
	Name      string       `hcl:"name"`
	Category  string       `hcl:"category,optional"`
	CostModel hclCostModel `hcl:"cost_model,block"`
	Subsidies []hclSubsidy `hcl:"subsidy,block"`
	Archive   *hclArchive  `hcl:"archive_option,block"`
}

type hclCostModel struct {
	Type         string         `hcl:"type"`
	PricePerUnit cty.Value      `hcl:"price_per_unit,optional"`
	UnitLabel    string         `hcl:"unit_label,optional"`
	Tiers        []hclPriceTier `hcl:"tier,block"`
}

type hclPriceTier struct {
	From         cty.Value `hcl:"from"`
	UpTo         cty.Value `hcl:"up_to,optional"`
	PricePerUnit cty.Value `hcl:"price_per_unit"`
	Label        string    `hcl:"label,optional"`
}

type hclSubsidy struct {
	Slug          string    `hcl:"slug,label"`
	Label         string    `hcl:"label,optional"`
	DiscountType  string    `hcl:"discount_type"`
	DiscountValue cty.Value `hcl:"discount_value"`
	AutoApply     bool      `hcl:"auto_apply,optional"`
}

type hclArchive struct {
	Service      string  `hcl:"service"`
	DefaultRatio float64 `hcl:"default_ratio,optional"`
}

type hclMapping struct {
	Service string `hcl:"service"`
	Tier    string `hcl:"tier"`
}

type hclCalculator struct {
	ID            string      `hcl:"id,label"`
	Kind          string      `hcl:"kind,optional"`
	Name          string      `hcl:"name,optional"`
	Category      string      `hcl:"category"`
	TargetService string      `hcl:"target_service,optional"`
	Alternatives  []string    `hcl:"alternatives,optional"`
	Tables        []hclTable  `hcl:"table,block"`
	Presets       []hclPreset `hcl:"preset,block"`
}

type hclTable struct {
	Name string   `hcl:"name,label"`
	Rows []hclRow `hcl:"row,block"`
}

type hclRow struct {
	Key    string    `hcl:"key,optional"`
	Label  string    `hcl:"label"`
	Params cty.Value `hcl:"params,optional"`
}

type hclPreset struct {
	Label       string    `hcl:"label,label"`
	Description string    `hcl:"description,optional"`
	Inputs      cty.Value `hcl:"inputs,optional"`
}

type hclGlobal struct {
	SafetyMultiplier cty.Value `hcl:"safety_multiplier,optional"`
}

type hclQuestionnaire struct {
	Start     string        `hcl:"start"`
	Questions []hclQuestion `hcl:"question,block"`
}

type hclQuestion struct {
	ID      string      `hcl:"id,label"`
	Text    string      `hcl:"text"`
	Help    string      `hcl:"help,optional"`
	Options []hclOption `hcl:"option,block"`
}

type hclOption struct {
	Value       string   `hcl:"value,label"`
	Label       string   `hcl:"label"`
	Next        string   `hcl:"next"`
	SetsTier    string   `hcl:"sets_tier,optional"`
	SetsFlags   []string `hcl:"sets_flags,optional"`
	ClearsFlags []string `hcl:"clears_flags,optional"`
}

func decodeHCL(src []byte, filename string) (*catalog.Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "failed to parse "+filename, diags)
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "failed to decode "+filename, diags)
	}

	return raw.toCatalog()
}

func (f *hclFile) toCatalog() (*catalog.Catalog, error) {
	var errs []error
	cat := &catalog.Catalog{}

	if f.Meta != nil {
		cat.Meta = catalog.Meta{Version: f.Meta.Version, Institution: f.Meta.Institution}
	}
	for _, t := range f.Tiers {
		cat.Tiers = append(cat.Tiers, types.Tier{
			Slug:                       t.Slug,
			Name:                       t.Name,
			Description:                t.Description,
			ConsultationRequired:       t.ConsultationRequired,
			RetentionQuestionsRequired: t.RetentionQuestionsRequired,
		})
	}
	for _, c := range f.Categories {
		cat.Categories = append(cat.Categories, types.ServiceCategory{Slug: c.Slug, Name: c.Name})
	}

	for _, s := range f.Services {
		svc, err := s.toService()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cat.Services = append(cat.Services, svc)
	}
	for _, m := range f.Mappings {
		cat.Mappings = append(cat.Mappings, catalog.Mapping{Service: m.Service, Tier: m.Tier})
	}

	for _, c := range f.Calculators {
		calc, err := c.toSpec()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cat.Calculators = append(cat.Calculators, calc)
	}

	if f.Global != nil {
		m, ok, err := ctyDecimal("global.safety_multiplier", f.Global.SafetyMultiplier)
		if err != nil {
			errs = append(errs, err)
		} else if ok {
			cat.Global.SafetyMultiplier = m
		}
	}

	if q := f.Questionnaire; q != nil {
		cat.Questionnaire.Start = q.Start
		for _, question := range q.Questions {
			node := &catalog.Node{ID: question.ID, Question: question.Text, Help: question.Help}
			for _, o := range question.Options {
				node.Options = append(node.Options, catalog.Option{
					Label:       o.Label,
					Value:       o.Value,
					Next:        o.Next,
					SetsTier:    o.SetsTier,
					SetsFlags:   o.SetsFlags,
					ClearsFlags: o.ClearsFlags,
				})
			}
			cat.Questionnaire.Nodes = append(cat.Questionnaire.Nodes, node)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s hclService) toService() (*types.Service, error) {
	field := fmt.Sprintf("service %q", s.Slug)
	svc := &types.Service{
		Slug:     s.Slug,
		Name:     s.Name,
		Category: s.Category,
		CostModel: types.CostModel{
			Type:      types.CostModelType(s.CostModel.Type),
			UnitLabel: s.CostModel.UnitLabel,
		},
	}

	price, _, err := ctyDecimal(field+" price_per_unit", s.CostModel.PricePerUnit)
	if err != nil {
		return nil, err
	}
	svc.CostModel.PricePerUnit = price

	for i, t := range s.CostModel.Tiers {
		tier, err := t.toTier(fmt.Sprintf("%s tier %d", field, i))
		if err != nil {
			return nil, err
		}
		svc.CostModel.Tiers = append(svc.CostModel.Tiers, tier)
	}

	for _, sub := range s.Subsidies {
		value, _, err := ctyDecimal(fmt.Sprintf("%s subsidy %q", field, sub.Slug), sub.DiscountValue)
		if err != nil {
			return nil, err
		}
		svc.Subsidies = append(svc.Subsidies, types.Subsidy{
			Slug:          sub.Slug,
			Label:         sub.Label,
			DiscountType:  types.DiscountType(sub.DiscountType),
			DiscountValue: value,
			AutoApply:     sub.AutoApply,
		})
	}

	if s.Archive != nil {
		svc.ArchiveOption = &types.ArchiveOption{
			ServiceSlug:  s.Archive.Service,
			DefaultRatio: s.Archive.DefaultRatio,
		}
	}
	return svc, nil
}

func (t hclPriceTier) toTier(field string) (types.PricingTier, error) {
	from, _, err := ctyDecimal(field+" from", t.From)
	if err != nil {
		return types.PricingTier{}, err
	}
	price, _, err := ctyDecimal(field+" price_per_unit", t.PricePerUnit)
	if err != nil {
		return types.PricingTier{}, err
	}
	tier := types.PricingTier{From: from, PricePerUnit: price, Label: t.Label}

	// up_to is a number, "unlimited", or absent (unlimited)
	if !t.UpTo.IsNull() && !(t.UpTo.Type() == cty.String && t.UpTo.AsString() == Unlimited) {
		upTo, _, err := ctyDecimal(field+" up_to", t.UpTo)
		if err != nil {
			return types.PricingTier{}, err
		}
		tier.UpTo = &upTo
	}
	return tier, nil
}

func (c hclCalculator) toSpec() (*catalog.CalculatorSpec, error) {
	field := fmt.Sprintf("calculator %q", c.ID)
	category, ok := types.ParseCategory(c.Category)
	if !ok {
		category = types.Category(c.Category)
	}

	spec := &catalog.CalculatorSpec{
		ID:            c.ID,
		Kind:          catalog.Kind(c.Kind),
		Name:          c.Name,
		Category:      category,
		TargetService: c.TargetService,
		Alternatives:  c.Alternatives,
		Tables:        make(map[string][]catalog.Row, len(c.Tables)),
	}

	for _, t := range c.Tables {
		for _, r := range t.Rows {
			row := catalog.Row{Key: r.Key, Label: r.Label, Params: map[string]decimal.Decimal{}}
			err := ctyEach(r.Params, func(name string, v cty.Value) error {
				d, _, err := ctyDecimal(fmt.Sprintf("%s table %q row %q param %s", field, t.Name, r.Label, name), v)
				row.Params[name] = d
				return err
			})
			if err != nil {
				return nil, err
			}
			spec.Tables[t.Name] = append(spec.Tables[t.Name], row)
		}
	}

	for _, p := range c.Presets {
		preset := catalog.Preset{Label: p.Label, Description: p.Description, Inputs: map[string]string{}}
		err := ctyEach(p.Inputs, func(name string, v cty.Value) error {
			s, err := ctyString(fmt.Sprintf("%s preset %q input %s", field, p.Label, name), v)
			preset.Inputs[name] = s
			return err
		})
		if err != nil {
			return nil, err
		}
		spec.Presets = append(spec.Presets, preset)
	}
	return spec, nil
}

// ctyDecimal converts a number attribute exactly. An absent or null value
// reports false.
func ctyDecimal(field string, v cty.Value) (decimal.Decimal, bool, error) {
	if v.IsNull() {
		return decimal.Zero, false, nil
	}
	if !v.IsKnown() {
		return decimal.Zero, false, errors.Configf("%s: value is not known", field)
	}
	switch {
	case v.Type() == cty.Number:
		d, err := parseDecimal(field, v.AsBigFloat().Text('f', -1))
		return d, err == nil, err
	case v.Type() == cty.String:
		d, err := parseDecimal(field, v.AsString())
		return d, err == nil, err
	default:
		return decimal.Zero, false, errors.Configf("%s: expected a number, got %s", field, v.Type().FriendlyName())
	}
}

// ctyString renders a primitive value as a string
func ctyString(field string, v cty.Value) (string, error) {
	switch {
	case v.IsNull():
		return "", nil
	case v.Type() == cty.String:
		return v.AsString(), nil
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('f', -1), nil
	case v.Type() == cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	default:
		return "", errors.Configf("%s: expected a primitive value, got %s", field, v.Type().FriendlyName())
	}
}

// ctyEach calls fn for each attribute of an object or map value
func ctyEach(v cty.Value, fn func(name string, v cty.Value) error) error {
	if v.IsNull() || !v.IsKnown() || !v.CanIterateElements() {
		return nil
	}
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		if k.Type() != cty.String {
			continue
		}
		if err := fn(k.AsString(), ev); err != nil {
			return err
		}
	}
	return nil
}
