// Package cmd - calc command
package cmd

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"research-planner/core/calculator"
	"research-planner/core/catalog"
	"research-planner/core/slate"
	"research-planner/core/types"
	"research-planner/internal/config"
	"research-planner/internal/errors"
)

var (
	calcInputs       []string
	calcPreset       string
	calcAdd          bool
	calcService      string
	calcArchive      bool
	calcArchiveRatio float64
	calcList         bool
)

// calcCmd runs a resource calculator
var calcCmd = &cobra.Command{
	Use:   "calc [calculator]",
	Short: "Estimate storage, compute or GPU needs with a calculator",
	Long: `Run a resource calculator over a set of inputs and print the breakdown.
With --add the result is added to the session slate, on the calculator's
suggested service unless --service names another one.

Examples:
  research-planner calc --list
  research-planner calc microscopy --input resolution=2k --input bit_depth=16 --input image_count=500
  research-planner calc genomics --preset "Small cohort" --add
  research-planner calc genomics --input data_type=Exome --input sample_count=50 --add --archive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringArrayVarP(&calcInputs, "input", "i", nil, "input as key=value (repeatable)")
	calcCmd.Flags().StringVar(&calcPreset, "preset", "", "apply a configured input preset first")
	calcCmd.Flags().BoolVar(&calcAdd, "add", false, "add the result to the session slate")
	calcCmd.Flags().StringVar(&calcService, "service", "", "service the result is added to")
	calcCmd.Flags().BoolVar(&calcArchive, "archive", false, "also add an archive allocation")
	calcCmd.Flags().Float64Var(&calcArchiveRatio, "archive-ratio", 0, "archive size as a fraction of the result (default: the service's ratio)")
	calcCmd.Flags().BoolVar(&calcList, "list", false, "list the configured calculators")
}

type calcResult struct {
	ID           string           `json:"id"`
	Kind         string           `json:"kind"`
	Category     types.Category   `json:"category"`
	Inputs       map[string]any   `json:"inputs"`
	Breakdown    []calculator.Row `json:"breakdown"`
	Result       decimal.Decimal  `json:"result"`
	Unit         string           `json:"unit"`
	Comparison   string           `json:"comparison,omitempty"`
	Target       string           `json:"target_service"`
	Alternatives []string         `json:"alternative_services,omitempty"`
	Added        []slate.Item     `json:"added,omitempty"`
}

// recordingSlate remembers the items a calculator adds
type recordingSlate struct {
	*slate.Store
	added []slate.Item
}

func (r *recordingSlate) AddItem(req slate.ItemRequest) slate.Item {
	item := r.Store.AddItem(req)
	r.added = append(r.added, item)
	return item
}

func runCalc(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog("")
	if err != nil {
		return err
	}

	if calcList || len(args) == 0 {
		return listCalculators(cmd, cat.Calculators)
	}

	c, ok := calculator.New(cat, args[0])
	if !ok {
		return errors.NotFound("calculator", args[0])
	}

	if calcPreset != "" && !c.ApplyPreset(calcPreset) {
		return errors.NotFound("preset", calcPreset).WithContext("calculator", c.ID())
	}

	delay := time.Duration(config.Get().Calculator.DebounceMillis) * time.Millisecond
	auto := calculator.NewAutoCalculator(c, delay)
	defer auto.Stop()
	for _, in := range calcInputs {
		k, v, err := parsePair("input", in)
		if err != nil {
			return err
		}
		auto.SetInput(k, v)
	}
	auto.Flush()

	result, ok := auto.Result()
	if !ok && auto.Err() == nil {
		result, _ = auto.Calculate()
	}
	if err := auto.Err(); err != nil {
		return err
	}
	// nothing runs in the background past Stop, so c is read directly below
	auto.Stop()

	res := calcResult{
		ID:           c.ID(),
		Kind:         string(c.Spec().Kind),
		Category:     c.Category(),
		Inputs:       c.Inputs(),
		Breakdown:    c.Breakdown(),
		Result:       result,
		Unit:         c.OutputUnit().Label,
		Comparison:   c.RelatableComparison(),
		Target:       c.TargetService(),
		Alternatives: c.AlternativeServices(),
	}

	if calcAdd {
		added, err := addCalculation(commandContext(cmd), c, cat)
		if err != nil {
			return err
		}
		res.Added = added
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), res)
	}

	w := writer(cmd)
	w.Calculation(c)
	if len(res.Added) > 0 {
		w.Line("")
		for _, item := range res.Added {
			w.Success("Added %s %s of %s to slate %q", item.Quantity, item.Unit, item.Service, sessionID)
		}
	}
	return nil
}

func addCalculation(ctx context.Context, c *calculator.Calculator, cat *catalog.Catalog) ([]slate.Item, error) {
	service := calcService
	if service == "" {
		service = c.TargetService()
	}
	if _, ok := cat.Service(service); !ok {
		return nil, errors.NotFound("service", service)
	}

	sess, err := openSession(ctx, cat)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if err := editable(sess); err != nil {
		return nil, err
	}

	var added []slate.Item
	if calcArchive {
		result, _ := c.Result()
		primary, archive, ok := sess.slate.AddWithArchive(slate.ItemRequest{
			Service:          service,
			Quantity:         result,
			Unit:             c.OutputUnit().Label,
			FromCalculator:   c.ID(),
			CalculatorInputs: c.Inputs(),
		}, calcArchiveRatio)
		added = append(added, primary)
		if ok {
			added = append(added, archive)
		}
	} else {
		rec := &recordingSlate{Store: sess.slate}
		if !c.AddToSlate(rec, service) {
			return nil, c.Err()
		}
		added = rec.added
	}

	if err := sess.save(ctx); err != nil {
		return nil, err
	}
	return added, nil
}

func listCalculators(cmd *cobra.Command, specs []*catalog.CalculatorSpec) error {
	sorted := append([]*catalog.CalculatorSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].ID < sorted[j].ID
	})

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), sorted)
	}

	w := writer(cmd)
	w.Header("Calculators")
	t := w.NewTable("ID", "Name", "Category", "Unit", "Presets")
	for _, spec := range sorted {
		presets := make([]string, 0, len(spec.Presets))
		for _, p := range spec.Presets {
			presets = append(presets, p.Label)
		}
		t.AddRow(spec.ID, spec.Name, string(spec.Category), types.UnitFor(spec.Category).Label, strings.Join(presets, ", "))
	}
	t.Render()
	return nil
}
