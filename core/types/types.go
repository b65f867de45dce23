// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and
// small accessors.
package types

// Category is the resource class a service or calculator belongs to
type Category string

const (
	CategoryStorage Category = "storage"
	CategoryCompute Category = "compute"
	CategoryGPU     Category = "gpu"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is one the calculator engine knows
func (c Category) IsValid() bool {
	switch c {
	case CategoryStorage, CategoryCompute, CategoryGPU:
		return true
	default:
		return false
	}
}

// ParseCategory normalizes a category name. "cpu" is accepted as an alias
// for compute.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "storage":
		return CategoryStorage, true
	case "compute", "cpu":
		return CategoryCompute, true
	case "gpu":
		return CategoryGPU, true
	default:
		return "", false
	}
}

// Unit is the label and plural form of a calculator output unit
type Unit struct {
	Label  string `json:"label"`
	Plural string `json:"plural"`
}

// UnitFor returns the output unit of a category
func UnitFor(c Category) Unit {
	switch c {
	case CategoryStorage:
		return Unit{Label: "TB", Plural: "TB"}
	case CategoryCompute:
		return Unit{Label: "SU", Plural: "SU"}
	case CategoryGPU:
		return Unit{Label: "GPU-hour", Plural: "GPU-hours"}
	default:
		return Unit{Label: "units", Plural: "units"}
	}
}

// Tier is a data-sensitivity classification
type Tier struct {
	Slug                       string `json:"slug" yaml:"slug"`
	Name                       string `json:"name" yaml:"name"`
	Description                string `json:"description,omitempty" yaml:"description"`
	ConsultationRequired       bool   `json:"consultation_required" yaml:"consultation_required"`
	RetentionQuestionsRequired bool   `json:"retention_questions_required" yaml:"retention_questions_required"`
}

// ServiceCategory groups services for display
type ServiceCategory struct {
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
}

// Service is a requestable computing or storage offering
type Service struct {
	Slug          string         `json:"slug"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	CostModel     CostModel      `json:"cost_model"`
	Subsidies     []Subsidy      `json:"subsidies,omitempty"`
	ArchiveOption *ArchiveOption `json:"archive_option,omitempty"`
}

// DefaultUnitLabel is the unit of services that do not name one
const DefaultUnitLabel = "units"

// UnitLabel returns the cost model's unit label, DefaultUnitLabel when unset
func (s *Service) UnitLabel() string {
	if s == nil || s.CostModel.UnitLabel == "" {
		return DefaultUnitLabel
	}
	return s.CostModel.UnitLabel
}

// AutoSubsidy returns the first auto-applying subsidy, if any
func (s *Service) AutoSubsidy() (Subsidy, bool) {
	for _, sub := range s.Subsidies {
		if sub.AutoApply {
			return sub, true
		}
	}
	return Subsidy{}, false
}

// OptInSubsidy looks up an opt-in subsidy by slug. Auto-applying subsidies are
// never returned.
func (s *Service) OptInSubsidy(slug string) (Subsidy, bool) {
	if slug == "" {
		return Subsidy{}, false
	}
	for _, sub := range s.Subsidies {
		if sub.Slug == slug && !sub.AutoApply {
			return sub, true
		}
	}
	return Subsidy{}, false
}

// ArchiveOption points a primary service at the service that holds its
// archive copy
type ArchiveOption struct {
	ServiceSlug  string  `json:"service_slug"`
	DefaultRatio float64 `json:"default_ratio,omitempty"`
}
