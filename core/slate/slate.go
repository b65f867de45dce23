// Package slate accumulates requested services into a priced request.
// Items are merged by service slug and re-priced at their total quantity,
// so tiered prices are never summed piecewise.
package slate

import (
	"time"

	"github.com/shopspring/decimal"

	"research-planner/core/types"
)

// Status is the lifecycle state of a slate
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// DefaultLicenseModel is the license model of software added without one
const DefaultLicenseModel = "campus"

// Item is one priced line of the slate.
// AnnualEstimate is always MonthlyEstimate × 12.
type Item struct {
	ID               string               `json:"id"`
	Service          string               `json:"service"`
	Quantity         decimal.Decimal      `json:"quantity"`
	Unit             string               `json:"unit"`
	MonthlyEstimate  decimal.Decimal      `json:"monthly_estimate"`
	AnnualEstimate   decimal.Decimal      `json:"annual_estimate"`
	Breakdown        []types.BreakdownRow `json:"breakdown,omitempty"`
	Subsidy          string               `json:"subsidy,omitempty"`
	FromCalculator   string               `json:"from_calculator,omitempty"`
	CalculatorInputs map[string]any       `json:"calculator_inputs,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	AddedAt          time.Time            `json:"added_at"`
}

// ItemRequest asks for a quantity of a service
type ItemRequest struct {
	Service  string
	Quantity decimal.Decimal
	// Unit defaults to the unit label of the service
	Unit string
	// Subsidy is an opt-in subsidy slug offered by the service
	Subsidy          string
	FromCalculator   string
	CalculatorInputs map[string]any
	Notes            string
}

// Software is a software package requested alongside services
type Software struct {
	ID           string           `json:"id"`
	LicenseModel string           `json:"license_model"`
	CostToUser   *decimal.Decimal `json:"cost_to_user,omitempty"`
	CostPeriod   string           `json:"cost_period,omitempty"`
	Note         string           `json:"note,omitempty"`
}

// Contact is the person responsible for a submitted request
type Contact struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// SubmissionDetails are collected right before submission
type SubmissionDetails struct {
	FundingSource string
	Contact       *Contact
	Timeline      string
}

// Slate is the request being assembled
type Slate struct {
	Status   Status     `json:"status"`
	Items    []Item     `json:"items"`
	Software []Software `json:"software"`

	ProjectName string `json:"project_name,omitempty"`
	FinalNotes  string `json:"final_notes,omitempty"`

	FundingSource string     `json:"funding_source,omitempty"`
	Contact       *Contact   `json:"contact,omitempty"`
	Timeline      string     `json:"timeline,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	RequestID     string     `json:"request_id,omitempty"`
}

// Empty returns a fresh draft slate
func Empty() Slate {
	return Slate{
		Status:   StatusDraft,
		Items:    []Item{},
		Software: []Software{},
	}
}

// Clone returns a deep copy of the slate
func (s Slate) Clone() Slate {
	out := s
	out.Items = make([]Item, len(s.Items))
	for i, item := range s.Items {
		item.Breakdown = append([]types.BreakdownRow(nil), item.Breakdown...)
		if item.CalculatorInputs != nil {
			inputs := make(map[string]any, len(item.CalculatorInputs))
			for k, v := range item.CalculatorInputs {
				inputs[k] = v
			}
			item.CalculatorInputs = inputs
		}
		out.Items[i] = item
	}
	out.Software = append([]Software{}, s.Software...)
	if s.Contact != nil {
		c := *s.Contact
		out.Contact = &c
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}
