// Package cmd - validate command
package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"research-planner/internal/config"
)

// validateCmd loads and validates a catalog
var validateCmd = &cobra.Command{
	Use:   "validate [catalog]",
	Short: "Load and validate a service catalog",
	Long: `Load an HCL or YAML catalog and check it for broken references,
malformed tier tables, invalid subsidies and incomplete calculators.

Without an argument the configured catalog is validated.

Examples:
  research-planner validate
  research-planner validate ./catalog.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

type validateSummary struct {
	Path        string `json:"path"`
	Institution string `json:"institution,omitempty"`
	Tiers       int    `json:"tiers"`
	Services    int    `json:"services"`
	Mappings    int    `json:"mappings"`
	Calculators int    `json:"calculators"`
	Questions   int    `json:"questions"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := config.Get().Catalog.Path
	if len(args) > 0 {
		path = args[0]
	}

	cat, err := loadCatalog(path)
	if err != nil {
		return err
	}

	summary := validateSummary{
		Path:        path,
		Institution: cat.Meta.Institution,
		Tiers:       len(cat.Tiers),
		Services:    len(cat.Services),
		Mappings:    len(cat.Mappings),
		Calculators: len(cat.Calculators),
		Questions:   len(cat.Questionnaire.Nodes),
	}
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), summary)
	}

	w := writer(cmd)
	w.Success("%s is valid", path)
	t := w.NewTable("Section", "Count")
	t.AddRow("Tiers", strconv.Itoa(summary.Tiers))
	t.AddRow("Services", strconv.Itoa(summary.Services))
	t.AddRow("Mappings", strconv.Itoa(summary.Mappings))
	t.AddRow("Calculators", strconv.Itoa(summary.Calculators))
	t.AddRow("Questions", strconv.Itoa(summary.Questions))
	t.Render()
	return nil
}
