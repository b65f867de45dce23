// Package ui - Domain views
// Renders estimates, calculations, classifications and slates.
package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"research-planner/core/calculator"
	"research-planner/core/catalog"
	"research-planner/core/questionnaire"
	"research-planner/core/slate"
	"research-planner/core/types"
)

// Money formats an amount as dollars with thousands separators
func Money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + commaDigits(whole) + "." + frac
}

// Number formats a quantity with thousands separators, keeping its
// significant decimals
func Number(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, found := strings.Cut(d.String(), ".")
	out := sign + commaDigits(whole)
	if found {
		out += "." + frac
	}
	return out
}

func commaDigits(whole string) string {
	var n int64
	if _, err := fmt.Sscan(whole, &n); err != nil {
		return whole
	}
	return humanize.Comma(n)
}

// Pricing summarizes a cost model in one line
func Pricing(svc *types.Service) string {
	cm := svc.CostModel
	switch cm.Type {
	case types.CostModelUnit:
		return Money(cm.PricePerUnit) + "/" + svc.UnitLabel()
	case types.CostModelTiered:
		if len(cm.Tiers) == 0 {
			return "tiered"
		}
		return fmt.Sprintf("tiered from %s/%s (%d tiers)", Money(cm.Tiers[0].PricePerUnit), svc.UnitLabel(), len(cm.Tiers))
	case types.CostModelConsultation:
		return "consultation"
	default:
		return string(cm.Type)
	}
}

// Services lists services with their pricing
func (w *Writer) Services(title string, services []*types.Service) {
	w.Header(title)
	if len(services) == 0 {
		w.Warning("No services")
		return
	}
	t := w.NewTable("Service", "Name", "Category", "Pricing")
	for _, svc := range services {
		t.AddRow(svc.Slug, svc.Name, svc.Category, Pricing(svc))
	}
	t.Render()
}

// Estimate renders a priced quantity of a service
func (w *Writer) Estimate(svc *types.Service, quantity decimal.Decimal, est types.Estimate) {
	w.Header(fmt.Sprintf("%s: %s %s", svc.Name, Number(quantity), svc.UnitLabel()))

	t := w.NewTable("Line", "Amount")
	for _, row := range est.Breakdown {
		amount := "-"
		if row.Amount != nil {
			amount = Money(*row.Amount)
		}
		t.AddRow(row.Label, amount)
	}
	t.AddBoldRow("Monthly", Money(est.Monthly))
	t.AddBoldRow("Annual", Money(est.Annual))
	t.Render()

	if svc.CostModel.Type == types.CostModelConsultation {
		w.Line("")
		w.Info("Pricing for this service is set during a consultation")
	}
}

// Calculation renders a calculator's breakdown and result
func (w *Writer) Calculation(c *calculator.Calculator) {
	spec := c.Spec()
	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	w.Header("Calculator: " + name)

	if msg := c.ErrMessage(); msg != "" {
		w.Error("%s", msg)
		return
	}

	t := w.NewTable("Step", "Value")
	for _, row := range c.Breakdown() {
		if row.Highlight {
			t.AddBoldRow(row.Label, row.Value)
			continue
		}
		t.AddRow(row.Label, row.Value)
	}
	t.Render()

	if disp, ok := c.DisplayResult(); ok {
		w.Line("")
		w.Line(w.color(styleMoney, fmt.Sprintf("Estimate: %s %s", Number(disp.Value), disp.Unit)))
	}
	if cmp := c.RelatableComparison(); cmp != "" {
		w.Line(w.color(styleDim, cmp))
	}
	w.Line(w.color(styleDim, "Suggested service: "+c.TargetService()))
}

// Classification renders questionnaire state and the path taken
func (w *Writer) Classification(st questionnaire.State, tier *types.Tier, path []questionnaire.Step) {
	w.Header("Data classification")

	if len(path) > 0 {
		t := w.NewTable("#", "Question", "Answer")
		for _, step := range path {
			t.AddRow(fmt.Sprint(step.Index+1), step.QuestionText, step.AnswerLabel)
		}
		t.Render()
		w.Line("")
	}

	switch {
	case tier != nil:
		w.Success("Tier: %s (%s)", tier.Name, tier.Slug)
		if tier.ConsultationRequired {
			w.Warning("This tier requires a consultation before services can be requested")
		}
	case st.Tier != "":
		w.Success("Tier: %s", st.Tier)
	default:
		w.Info("No tier assigned yet")
	}
	if len(st.Flags) > 0 {
		w.Info("Flags: %s", strings.Join(st.Flags, ", "))
	}
	if st.Complete {
		w.Success("Questionnaire complete")
	} else {
		w.Info("Next question: %s", st.QuestionID)
	}
}

// Question renders a node and where each option leads
func (w *Writer) Question(node *catalog.Node, previews []questionnaire.OptionPreview) {
	w.Header(node.Question)
	if node.Help != "" {
		w.Line(w.color(styleDim, node.Help))
		w.Line("")
	}
	t := w.NewTable("Answer", "Label", "Sets tier", "Leads to")
	for _, p := range previews {
		t.AddRow(p.Value, p.Label, p.LeadsTier, p.LeadsTo)
	}
	t.Render()
}

// Slate renders the request slate with its totals
func (w *Writer) Slate(s slate.Slate, monthly, annual decimal.Decimal) {
	title := "Request slate"
	if s.ProjectName != "" {
		title += ": " + s.ProjectName
	}
	w.Header(title)

	status := w.color(styleWarning, string(s.Status))
	if s.Status == slate.StatusSubmitted {
		status = w.color(styleSuccess, string(s.Status))
		if s.RequestID != "" {
			status += " (" + s.RequestID + ")"
		}
	}
	w.Line("Status: " + status)
	w.Line("")

	if len(s.Items) == 0 && len(s.Software) == 0 {
		w.Info("The slate is empty")
		return
	}

	if len(s.Items) > 0 {
		t := w.NewTable("ID", "Service", "Quantity", "Monthly", "Annual")
		for _, item := range s.Items {
			t.AddRow(shortID(item.ID), item.Service, Number(item.Quantity)+" "+item.Unit,
				Money(item.MonthlyEstimate), Money(item.AnnualEstimate))
		}
		t.Render()
		w.Line("")
	}

	if len(s.Software) > 0 {
		w.SubHeader(fmt.Sprintf("Software (%d)", len(s.Software)))
		for _, sw := range s.Software {
			w.Line(fmt.Sprintf("  %s [%s]", sw.ID, sw.LicenseModel))
		}
		w.Line("")
	}

	w.Line(w.color(styleBold, "╭─────────────────────────────────────╮"))
	w.Line(w.color(styleBold, "│") + w.color(styleMoney, fmt.Sprintf("  Monthly Cost: %-21s", Money(monthly))) + w.color(styleBold, "│"))
	w.Line(w.color(styleBold, "│") + w.color(styleDim, fmt.Sprintf("  Annual Cost:  %-21s", Money(annual))) + w.color(styleBold, "│"))
	w.Line(w.color(styleBold, "╰─────────────────────────────────────╯"))
}

// shortID trims generated uuids for display
func shortID(id string) string {
	if len(id) > 8 && strings.Count(id, "-") == 4 {
		return id[:8]
	}
	return id
}
