package catalogfile

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"research-planner/core/catalog"
	"research-planner/core/types"
	"research-planner/internal/errors"
)

type yamlFile struct {
	Meta          yamlMeta                `yaml:"meta"`
	Tiers         []types.Tier            `yaml:"tiers"`
	Categories    []types.ServiceCategory `yaml:"categories"`
	Services      []yamlService           `yaml:"services"`
	Mappings      []yamlMapping           `yaml:"mappings"`
	Calculators   yamlCalculators         `yaml:"calculators"`
	Questionnaire yamlQuestionnaire       `yaml:"questionnaire"`
}

type yamlMeta struct {
	Version     string `yaml:"version"`
	Institution struct {
		Name string `yaml:"name"`
	} `yaml:"institution"`
}

type yamlService struct {
	Slug          string        `yaml:"slug"`
	Name          string        `yaml:"name"`
	Category      string        `yaml:"category"`
	CostModel     yamlCostModel `yaml:"cost_model"`
	Subsidies     yaml.Node     `yaml:"subsidies"`
	ArchiveOption *yamlArchive  `yaml:"archive_option"`
}

type yamlCostModel struct {
	Type         string          `yaml:"type"`
	PricePerUnit yaml.Node       `yaml:"price_per_unit"`
	UnitLabel    string          `yaml:"unit_label"`
	Tiers        []yamlPriceTier `yaml:"tiers"`
}

type yamlPriceTier struct {
	From         yaml.Node `yaml:"from"`
	UpTo         yaml.Node `yaml:"up_to"`
	PricePerUnit yaml.Node `yaml:"price_per_unit"`
	Label        string    `yaml:"label"`
}

type yamlSubsidy struct {
	Slug          string    `yaml:"slug"`
	Label         string    `yaml:"label"`
	DiscountType  string    `yaml:"discount_type"`
	DiscountValue yaml.Node `yaml:"discount_value"`
	FreeUnits     yaml.Node `yaml:"free_units"`
	AutoApply     bool      `yaml:"auto_apply"`
}

type yamlArchive struct {
	ServiceSlug  string  `yaml:"service_slug"`
	DefaultRatio float64 `yaml:"default_ratio"`
}

type yamlMapping struct {
	Service string `yaml:"service"`
	Tier    string `yaml:"tier"`
}

type yamlCalculators struct {
	Enabled map[string][]string             `yaml:"enabled_calculators"`
	Config  map[string]map[string]yaml.Node `yaml:"calculator_config"`
	Global  struct {
		SafetyMultiplier yaml.Node `yaml:"safety_multiplier"`
	} `yaml:"global"`
}

type yamlTargets struct {
	Default      string   `yaml:"default"`
	Alternatives []string `yaml:"alternatives"`
}

type yamlPreset struct {
	Label       string            `yaml:"label"`
	Description string            `yaml:"description"`
	Inputs      map[string]string `yaml:"inputs"`
}

type yamlQuestionnaire struct {
	Start     string         `yaml:"start"`
	Questions []yamlQuestion `yaml:"questions"`
}

type yamlQuestion struct {
	ID       string       `yaml:"id"`
	Question string       `yaml:"question"`
	Help     string       `yaml:"help"`
	Options  []yamlOption `yaml:"options"`
}

type yamlOption struct {
	Label       string   `yaml:"label"`
	Value       string   `yaml:"value"`
	Next        string   `yaml:"next"`
	SetsTier    string   `yaml:"sets_tier"`
	SetsFlags   []string `yaml:"sets_flags"`
	ClearsFlags []string `yaml:"clears_flags"`
}

// calculator_config keys that are not parameter tables. "presets" is a
// table for the video and documents kinds, see isPresetList.
var calculatorSettings = map[string]bool{
	"kind":            true,
	"name":            true,
	"target_services": true,
}

func decodeYAML(src []byte, filename string) (*catalog.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var raw yamlFile
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, errors.Configf("catalog %s is empty", filename)
		}
		return nil, errors.Wrap(errors.TypeConfig, "failed to parse "+filename, err)
	}
	return raw.toCatalog()
}

func (f *yamlFile) toCatalog() (*catalog.Catalog, error) {
	var errs []error
	cat := &catalog.Catalog{
		Meta:       catalog.Meta{Version: f.Meta.Version, Institution: f.Meta.Institution.Name},
		Tiers:      f.Tiers,
		Categories: f.Categories,
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

	calcs, err := f.Calculators.toSpecs()
	if err != nil {
		errs = append(errs, err)
	}
	cat.Calculators = calcs

	m, ok, err := nodeDecimal("global.safety_multiplier", &f.Calculators.Global.SafetyMultiplier)
	if err != nil {
		errs = append(errs, err)
	} else if ok {
		cat.Global.SafetyMultiplier = m
	}

	cat.Questionnaire.Start = f.Questionnaire.Start
	for _, q := range f.Questionnaire.Questions {
		node := &catalog.Node{ID: q.ID, Question: q.Question, Help: q.Help}
		for _, o := range q.Options {
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

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s yamlService) toService() (*types.Service, error) {
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

	price, _, err := nodeDecimal(field+" price_per_unit", &s.CostModel.PricePerUnit)
	if err != nil {
		return nil, err
	}
	svc.CostModel.PricePerUnit = price

	for i := range s.CostModel.Tiers {
		tier, err := s.CostModel.Tiers[i].toTier(fmt.Sprintf("%s tier %d", field, i))
		if err != nil {
			return nil, err
		}
		svc.CostModel.Tiers = append(svc.CostModel.Tiers, tier)
	}

	subsidies, err := decodeSubsidies(field, &s.Subsidies)
	if err != nil {
		return nil, err
	}
	svc.Subsidies = subsidies

	if s.ArchiveOption != nil {
		svc.ArchiveOption = &types.ArchiveOption{
			ServiceSlug:  s.ArchiveOption.ServiceSlug,
			DefaultRatio: s.ArchiveOption.DefaultRatio,
		}
	}
	return svc, nil
}

func (t *yamlPriceTier) toTier(field string) (types.PricingTier, error) {
	from, _, err := nodeDecimal(field+" from", &t.From)
	if err != nil {
		return types.PricingTier{}, err
	}
	price, _, err := nodeDecimal(field+" price_per_unit", &t.PricePerUnit)
	if err != nil {
		return types.PricingTier{}, err
	}
	tier := types.PricingTier{From: from, PricePerUnit: price, Label: t.Label}

	if t.UpTo.Kind == yaml.ScalarNode && t.UpTo.Value == Unlimited {
		return tier, nil
	}
	upTo, ok, err := nodeDecimal(field+" up_to", &t.UpTo)
	if err != nil {
		return types.PricingTier{}, err
	}
	if ok {
		tier.UpTo = &upTo
	}
	return tier, nil
}

// decodeSubsidies accepts a list of subsidies or a single mapping. A
// subsidy may use the free_units shorthand instead of a discount type.
func decodeSubsidies(field string, n *yaml.Node) ([]types.Subsidy, error) {
	var raw []yamlSubsidy
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		var one yamlSubsidy
		if err := n.Decode(&one); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, field+" subsidies", err)
		}
		raw = append(raw, one)
	case yaml.SequenceNode:
		if err := n.Decode(&raw); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, field+" subsidies", err)
		}
	default:
		return nil, errors.Configf("%s: subsidies must be a list or a mapping", field)
	}

	out := make([]types.Subsidy, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		sub := types.Subsidy{
			Slug:         r.Slug,
			Label:        r.Label,
			DiscountType: types.DiscountType(r.DiscountType),
			AutoApply:    r.AutoApply,
		}

		valueNode := &r.DiscountValue
		if sub.DiscountType == "" && r.FreeUnits.Kind != 0 {
			sub.DiscountType = types.DiscountFreeUnits
			valueNode = &r.FreeUnits
		}
		if sub.Slug == "" {
			sub.Slug = string(sub.DiscountType)
		}

		value, _, err := nodeDecimal(fmt.Sprintf("%s subsidy %q", field, sub.Slug), valueNode)
		if err != nil {
			return nil, err
		}
		sub.DiscountValue = value
		out = append(out, sub)
	}
	return out, nil
}

// toSpecs builds one calculator per enabled id. The category comes from the
// enabled_calculators group the id is listed under.
func (c yamlCalculators) toSpecs() ([]*catalog.CalculatorSpec, error) {
	groups := make([]string, 0, len(c.Enabled))
	for g := range c.Enabled {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var (
		specs []*catalog.CalculatorSpec
		errs  []error
	)
	for _, g := range groups {
		category, ok := types.ParseCategory(g)
		if !ok {
			category = types.Category(g)
		}
		for _, id := range c.Enabled[g] {
			spec, err := buildSpec(id, category, c.Config[id])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			specs = append(specs, spec)
		}
	}
	return specs, errors.Join(errs...)
}

func buildSpec(id string, category types.Category, cfg map[string]yaml.Node) (*catalog.CalculatorSpec, error) {
	field := fmt.Sprintf("calculator %q", id)
	spec := &catalog.CalculatorSpec{
		ID:       id,
		Category: category,
		Tables:   make(map[string][]catalog.Row),
	}

	if n, ok := cfg["kind"]; ok {
		spec.Kind = catalog.Kind(n.Value)
	}
	if n, ok := cfg["name"]; ok {
		spec.Name = n.Value
	}
	if n, ok := cfg["target_services"]; ok {
		var targets yamlTargets
		if err := n.Decode(&targets); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, field+" target_services", err)
		}
		spec.TargetService = targets.Default
		spec.Alternatives = targets.Alternatives
	}
	if n, ok := cfg["presets"]; ok && isPresetList(&n) {
		var presets []yamlPreset
		if err := n.Decode(&presets); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, field+" presets", err)
		}
		for _, p := range presets {
			spec.Presets = append(spec.Presets, catalog.Preset{
				Label:       p.Label,
				Description: p.Description,
				Inputs:      p.Inputs,
			})
		}
	}

	for name, n := range cfg {
		if calculatorSettings[name] || n.Kind != yaml.SequenceNode {
			continue
		}
		if name == "presets" && isPresetList(&n) {
			continue
		}
		for i, entry := range n.Content {
			row, err := decodeRow(fmt.Sprintf("%s table %q row %d", field, name, i), entry)
			if err != nil {
				return nil, err
			}
			spec.Tables[name] = append(spec.Tables[name], row)
		}
	}
	return spec, nil
}

// isPresetList reports whether a presets sequence holds input presets
// rather than a parameter table
func isPresetList(n *yaml.Node) bool {
	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		return false
	}
	first := n.Content[0]
	for i := 0; i+1 < len(first.Content); i += 2 {
		if first.Content[i].Value == "inputs" {
			return true
		}
	}
	return false
}

// decodeRow reads a table row mapping. key or value names the row, label
// is shown to users and every numeric scalar becomes a parameter.
func decodeRow(field string, n *yaml.Node) (catalog.Row, error) {
	if n.Kind != yaml.MappingNode {
		return catalog.Row{}, errors.Configf("%s: expected a mapping", field)
	}

	row := catalog.Row{Params: make(map[string]decimal.Decimal)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i].Value, n.Content[i+1]
		switch k {
		case "key", "value":
			row.Key = v.Value
		case "label":
			row.Label = v.Value
		default:
			if v.Kind != yaml.ScalarNode {
				continue
			}
			if tag := v.ShortTag(); tag != "!!int" && tag != "!!float" {
				continue
			}
			d, err := parseDecimal(field+" "+k, v.Value)
			if err != nil {
				return catalog.Row{}, err
			}
			row.Params[k] = d
		}
	}
	return row, nil
}

// nodeDecimal reads a scalar number exactly. An absent or null node reports
// false.
func nodeDecimal(field string, n *yaml.Node) (decimal.Decimal, bool, error) {
	if n.Kind == 0 || n.ShortTag() == "!!null" {
		return decimal.Zero, false, nil
	}
	if n.Kind != yaml.ScalarNode {
		return decimal.Zero, false, errors.Configf("%s: expected a number", field)
	}
	d, err := parseDecimal(field, n.Value)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}
