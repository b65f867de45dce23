// Package catalog - Calculator parameter tables
package catalog

import (
	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

// Kind names the formula a calculator evaluates
type Kind string

const (
	KindMicroscopy        Kind = "microscopy"
	KindPhotography       Kind = "photography"
	KindGenomics          Kind = "genomics"
	KindVideo             Kind = "video"
	KindMedicalImaging    Kind = "medical-imaging"
	KindDocuments         Kind = "documents"
	KindGenomicsPipelines Kind = "genomics-pipelines"
	KindSimulations       Kind = "simulations"
	KindBatchProcessing   Kind = "batch-processing"
	KindStatistics        Kind = "statistics"
	KindMLTraining        Kind = "ml-training"
	KindMLInference       Kind = "ml-inference"
	KindGPUSimulation     Kind = "gpu-simulation"
)

// CalculatorSpec is one configured calculator
type CalculatorSpec struct {
	ID            string
	Kind          Kind
	Name          string
	Category      types.Category
	TargetService string
	Alternatives  []string
	Tables        map[string][]Row
	Presets       []Preset
}

// Row is one selectable entry of a parameter table
type Row struct {
	Key    string
	Label  string
	Params map[string]decimal.Decimal
}

// Param returns a named numeric parameter of the row
func (r Row) Param(name string) (decimal.Decimal, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// Preset is a named set of inputs a user can apply in one step
type Preset struct {
	Label       string
	Description string
	Inputs      map[string]string
}

// Lookup finds the row of a table whose key or label equals selection.
// Keys are compared first so that a key shadowing another row's label
// still resolves to its own row.
func (c *CalculatorSpec) Lookup(table, selection string) (Row, bool) {
	if selection == "" {
		return Row{}, false
	}
	rows := c.Tables[table]
	for _, r := range rows {
		if r.Key != "" && r.Key == selection {
			return r, true
		}
	}
	for _, r := range rows {
		if r.Label == selection {
			return r, true
		}
	}
	return Row{}, false
}

// Preset looks up a preset by label
func (c *CalculatorSpec) Preset(label string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Label == label {
			return p, true
		}
	}
	return Preset{}, false
}

// TableRequirement lists what a kind needs from one parameter table.
// Every row must carry all of AllOf and at least one of AnyOf.
type TableRequirement struct {
	Table string
	AllOf []string
	AnyOf []string
}

// KindRequirement is the category and tables a formula depends on
type KindRequirement struct {
	Category types.Category
	Tables   []TableRequirement
}

// KindRequirements is the closed set of calculator formulas
var KindRequirements = map[Kind]KindRequirement{
	KindMicroscopy: {
		Category: types.CategoryStorage,
		Tables: []TableRequirement{
			{Table: "resolutions", AllOf: []string{"pixels"}},
			{Table: "bit_depths", AllOf: []string{"bytes_per_pixel"}},
		},
	},
	KindPhotography: {Category: types.CategoryStorage},
	KindGenomics: {
		Category: types.CategoryStorage,
		Tables:   []TableRequirement{{Table: "data_types", AllOf: []string{"size_gb"}}},
	},
	KindVideo: {
		Category: types.CategoryStorage,
		Tables:   []TableRequirement{{Table: "presets", AllOf: []string{"gb_per_hour"}}},
	},
	KindMedicalImaging: {
		Category: types.CategoryStorage,
		Tables:   []TableRequirement{{Table: "data_types", AllOf: []string{"size_gb"}}},
	},
	KindDocuments: {
		Category: types.CategoryStorage,
		Tables:   []TableRequirement{{Table: "presets", AllOf: []string{"size_mb"}}},
	},
	KindGenomicsPipelines: {
		Category: types.CategoryCompute,
		Tables:   []TableRequirement{{Table: "pipelines", AllOf: []string{"su_per_sample"}}},
	},
	KindSimulations: {
		Category: types.CategoryCompute,
		Tables: []TableRequirement{{
			Table: "packages",
			AnyOf: []string{"su_per_ns_per_million_atoms", "su_per_hour_simulated", "su_per_calculation"},
		}},
	},
	KindBatchProcessing: {
		Category: types.CategoryCompute,
		Tables:   []TableRequirement{{Table: "templates", AllOf: []string{"su_per_file"}}},
	},
	KindStatistics: {
		Category: types.CategoryCompute,
		Tables:   []TableRequirement{{Table: "workloads", AllOf: []string{"su_estimate"}}},
	},
	KindMLTraining: {
		Category: types.CategoryGPU,
		Tables:   []TableRequirement{{Table: "model_sizes", AllOf: []string{"typical_hours"}}},
	},
	KindMLInference: {
		Category: types.CategoryGPU,
		Tables: []TableRequirement{{
			Table: "workloads",
			AnyOf: []string{"items_per_gpu_hour", "tokens_per_gpu_hour"},
		}},
	},
	KindGPUSimulation: {
		Category: types.CategoryGPU,
		Tables:   []TableRequirement{{Table: "packages", AllOf: []string{"gpu_hours_per_ns"}}},
	},
}
