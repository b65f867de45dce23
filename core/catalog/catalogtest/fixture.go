// Package catalogtest provides a small finalized catalog for tests.
package catalogtest

import (
	"github.com/shopspring/decimal"

	"research-planner/core/catalog"
	"research-planner/core/types"
)

// Option mutates the fixture before it is finalized
type Option func(*catalog.Catalog)

// WithSafetyMultiplier sets the global calculator safety multiplier
func WithSafetyMultiplier(m string) Option {
	return func(c *catalog.Catalog) {
		c.Global.SafetyMultiplier = D(m)
	}
}

// D parses a decimal literal and panics on malformed input
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DP is D returning a pointer, for tier bounds
func DP(s string) *decimal.Decimal {
	d := D(s)
	return &d
}

// New returns the fixture catalog. It panics if the fixture does not
// validate, which would be a bug in the fixture itself.
func New(opts ...Option) *catalog.Catalog {
	c := &catalog.Catalog{
		Meta: catalog.Meta{Version: "test", Institution: "Test University"},
		Tiers: []types.Tier{
			{Slug: "public", Name: "Public"},
			{Slug: "internal", Name: "Internal", RetentionQuestionsRequired: true},
			{Slug: "restricted", Name: "Restricted", ConsultationRequired: true},
		},
		Categories: []types.ServiceCategory{
			{Slug: "storage", Name: "Storage"},
			{Slug: "compute", Name: "Compute"},
			{Slug: "gpu", Name: "GPU"},
			{Slug: "consulting", Name: "Consulting"},
		},
		Services: []*types.Service{
			{
				Slug: "hpc-storage", Name: "HPC Storage", Category: "storage",
				CostModel:     types.CostModel{Type: types.CostModelUnit, PricePerUnit: D("10"), UnitLabel: "TB"},
				ArchiveOption: &types.ArchiveOption{ServiceSlug: "archive-storage", DefaultRatio: 0.5},
			},
			{
				Slug: "archive-storage", Name: "Archive Storage", Category: "storage",
				CostModel: types.CostModel{Type: types.CostModelUnit, PricePerUnit: D("2"), UnitLabel: "TB"},
			},
			{
				Slug: "hpc-cpu", Name: "HPC Compute", Category: "compute",
				CostModel: types.CostModel{Type: types.CostModelUnit, PricePerUnit: D("0.1"), UnitLabel: "SU"},
				Subsidies: []types.Subsidy{
					{Slug: "free-allocation", Label: "Free allocation", DiscountType: types.DiscountFreeUnits, DiscountValue: D("10000"), AutoApply: true},
					{Slug: "startup", Label: "New faculty", DiscountType: types.DiscountPercent, DiscountValue: D("50")},
				},
			},
			{
				Slug: "hpc-gpu", Name: "HPC GPU", Category: "gpu",
				CostModel: types.CostModel{
					Type:      types.CostModelTiered,
					UnitLabel: "GPU-hour",
					Tiers: []types.PricingTier{
						{From: D("0"), UpTo: DP("100"), PricePerUnit: D("2"), Label: "First 100 GPU-hours"},
						{From: D("100"), UpTo: nil, PricePerUnit: D("1.5"), Label: "Beyond 100 GPU-hours"},
					},
				},
			},
			{
				Slug: "bulk-transfer", Name: "Bulk Transfer", Category: "storage",
				CostModel: types.CostModel{
					Type:      types.CostModelTiered,
					UnitLabel: "GB",
					Tiers: []types.PricingTier{
						{From: D("0"), UpTo: DP("10000"), PricePerUnit: D("1.0")},
						{From: D("10000"), UpTo: nil, PricePerUnit: D("0.5")},
					},
				},
			},
			{
				Slug: "research-cloud", Name: "Research Cloud", Category: "compute",
				CostModel: types.CostModel{Type: types.CostModelUnit, PricePerUnit: D("1"), UnitLabel: "VM-month"},
				Subsidies: []types.Subsidy{
					{Slug: "cloud-credit", DiscountType: types.DiscountFixed, DiscountValue: D("50"), AutoApply: true},
					{Slug: "dept-match", DiscountType: types.DiscountPercent, DiscountValue: D("100")},
					{Slug: "grant-credit", DiscountType: types.DiscountFixed, DiscountValue: D("500")},
				},
			},
			{
				Slug: "secure-enclave", Name: "Secure Enclave", Category: "consulting",
				CostModel: types.CostModel{Type: types.CostModelConsultation},
			},
		},
		Mappings: []catalog.Mapping{
			{Service: "hpc-storage", Tier: "public"},
			{Service: "archive-storage", Tier: "public"},
			{Service: "hpc-cpu", Tier: "public"},
			{Service: "hpc-gpu", Tier: "public"},
			{Service: "bulk-transfer", Tier: "public"},
			{Service: "hpc-storage", Tier: "internal"},
			{Service: "hpc-cpu", Tier: "internal"},
			{Service: "secure-enclave", Tier: "restricted"},
		},
		Calculators: calculators(),
		Questionnaire: catalog.Questionnaire{
			Start: "human-subjects",
			Nodes: []*catalog.Node{
				{
					ID:       "human-subjects",
					Question: "Does the project involve human subjects data?",
					Options: []catalog.Option{
						{Label: "Yes", Value: "yes", Next: "identifiable", SetsFlags: []string{"human_subjects"}},
						{Label: "No", Value: "no", Next: "proprietary", SetsTier: "public"},
					},
				},
				{
					ID:       "identifiable",
					Question: "Is the data identifiable?",
					Options: []catalog.Option{
						{Label: "Yes", Value: "yes", Next: catalog.NextComplete, SetsTier: "restricted", SetsFlags: []string{"phi", "irb"}},
						{Label: "No, de-identified", Value: "no", Next: "proprietary", SetsTier: "internal", SetsFlags: []string{"irb"}, ClearsFlags: []string{"human_subjects"}},
					},
				},
				{
					ID:       "proprietary",
					Question: "Is any data under a use agreement?",
					Options: []catalog.Option{
						{Label: "Yes", Value: "yes", Next: catalog.NextComplete, SetsTier: "internal", SetsFlags: []string{"dua"}},
						{Label: "No", Value: "no", Next: catalog.NextComplete, ClearsFlags: []string{"irb"}},
						{Label: "Re-add", Value: "readd", Next: catalog.NextComplete, SetsFlags: []string{"human_subjects"}},
					},
				},
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	if err := c.Finalize(); err != nil {
		panic(err)
	}
	return c
}

func row(key, label string, params map[string]string) catalog.Row {
	p := make(map[string]decimal.Decimal, len(params))
	for k, v := range params {
		p[k] = D(v)
	}
	return catalog.Row{Key: key, Label: label, Params: p}
}

func calculators() []*catalog.CalculatorSpec {
	return []*catalog.CalculatorSpec{
		{
			ID: "microscopy", Kind: catalog.KindMicroscopy, Category: types.CategoryStorage,
			Tables: map[string][]catalog.Row{
				"resolutions": {
					row("1k", "1024 x 1024", map[string]string{"pixels": "1048576"}),
					row("2k", "2048 x 2048", map[string]string{"pixels": "4194304"}),
				},
				"bit_depths": {
					row("8", "8-bit", map[string]string{"bytes_per_pixel": "1"}),
					row("16", "16-bit", map[string]string{"bytes_per_pixel": "2"}),
				},
			},
		},
		{ID: "photography", Kind: catalog.KindPhotography, Category: types.CategoryStorage},
		{
			ID: "genomics", Kind: catalog.KindGenomics, Category: types.CategoryStorage,
			TargetService: "hpc-storage", Alternatives: []string{"archive-storage"},
			Tables: map[string][]catalog.Row{
				"data_types": {
					row("", "Whole genome (30x)", map[string]string{"size_gb": "100"}),
					row("", "Exome", map[string]string{"size_gb": "10"}),
				},
			},
			Presets: []catalog.Preset{
				{Label: "Small cohort", Inputs: map[string]string{"data_type": "Exome", "sample_count": "50"}},
			},
		},
		{
			ID: "genomics-pipelines", Kind: catalog.KindGenomicsPipelines, Category: types.CategoryCompute,
			Tables: map[string][]catalog.Row{
				"pipelines": {row("", "Variant calling", map[string]string{"su_per_sample": "40.1"})},
			},
		},
		{
			ID: "simulations", Kind: catalog.KindSimulations, Category: types.CategoryCompute,
			Tables: map[string][]catalog.Row{
				"packages": {
					row("", "GROMACS", map[string]string{"su_per_ns_per_million_atoms": "100"}),
					row("", "Climate model", map[string]string{"su_per_hour_simulated": "2.5"}),
					row("", "DFT", map[string]string{"su_per_calculation": "12"}),
				},
			},
		},
		{
			ID: "ml-training", Kind: catalog.KindMLTraining, Category: types.CategoryGPU,
			Tables: map[string][]catalog.Row{
				"model_sizes": {row("", "Small CNN", map[string]string{"typical_hours": "1.01"})},
			},
		},
		{
			ID: "ml-inference", Kind: catalog.KindMLInference, Category: types.CategoryGPU,
			Tables: map[string][]catalog.Row{
				"workloads": {
					row("", "Image classification", map[string]string{"items_per_gpu_hour": "3000"}),
					row("", "LLM generation", map[string]string{"tokens_per_gpu_hour": "1000000"}),
				},
			},
		},
		{
			ID: "gpu-simulation", Kind: catalog.KindGPUSimulation, Category: types.CategoryGPU,
			Tables: map[string][]catalog.Row{
				"packages": {row("", "AMBER", map[string]string{"gpu_hours_per_ns": "0.5"})},
			},
		},
	}
}
