package calculator

import (
	"strings"
	"testing"

	"research-planner/core/catalog/catalogtest"
	"research-planner/core/slate"
	"research-planner/core/types"
	"research-planner/internal/errors"
)

var d = catalogtest.D

func mustNew(t *testing.T, id string, opts ...catalogtest.Option) *Calculator {
	t.Helper()
	c, ok := New(catalogtest.New(opts...), id)
	if !ok {
		t.Fatalf("calculator %s not found", id)
	}
	return c
}

func mustResult(t *testing.T, c *Calculator) string {
	t.Helper()
	if !c.Calculate() {
		t.Fatalf("calculation failed: %s", c.ErrMessage())
	}
	r, ok := c.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	return r.String()
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		category types.Category
		in       string
		want     string
	}{
		{types.CategoryStorage, "2.0001", "2.001"},
		{types.CategoryStorage, "2", "2"},
		{types.CategoryStorage, "0.0000001", "0.001"},
		{types.CategoryCompute, "4.01", "5"},
		{types.CategoryCompute, "4", "4"},
		{types.CategoryGPU, "1.01", "1.1"},
		{types.CategoryGPU, "1.1", "1.1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.in, func(t *testing.T) {
			if got := roundUp(tt.category, d(tt.in)); !got.Equal(d(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMicroscopyExactTerabyte(t *testing.T) {
	c := mustNew(t, "microscopy")
	c.SetInput("resolution", "2k")
	c.SetInput("bit_depth", 16)
	c.SetInput("image_count", 131072)

	if got := mustResult(t, c); got != "1" {
		t.Errorf("expected 1 TB, got %s", got)
	}

	rows := c.Breakdown()
	last := rows[len(rows)-1]
	if !last.Highlight || last.Label != "Total storage" || last.Value != "1 TB" {
		t.Errorf("unexpected total row %+v", last)
	}
	if rows[0].Value != "2048 x 2048" || rows[1].Value != "16-bit" {
		t.Errorf("expected selection labels in breakdown, got %+v", rows[:2])
	}
}

func TestStorageRoundsUp(t *testing.T) {
	c := mustNew(t, "microscopy")
	c.SetInput("resolution", "2k")
	c.SetInput("bit_depth", "16")
	// 2 TB plus 8 MiB
	c.SetInput("image_count", "262145")

	if got := mustResult(t, c); got != "2.001" {
		t.Errorf("expected 2.001, got %s", got)
	}
}

func TestSafetyMultiplier(t *testing.T) {
	c := mustNew(t, "microscopy", catalogtest.WithSafetyMultiplier("1.5"))
	c.SetInput("resolution", "2048 x 2048")
	c.SetInput("bit_depth", "16-bit")
	c.SetInput("image_count", 131072)

	if got := mustResult(t, c); got != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}

	rows := c.Breakdown()
	if len(rows) < 2 {
		t.Fatalf("expected safety and total rows, got %+v", rows)
	}
	safety := rows[len(rows)-2]
	if safety.Label != "Safety buffer (1.5×)" || safety.Value != "1.0 TB → 1.5 TB" {
		t.Errorf("unexpected safety row %+v", safety)
	}
	if !rows[len(rows)-1].Highlight {
		t.Error("breakdown must end with the highlighted total")
	}
}

func TestMultiplierAppliedBeforeRounding(t *testing.T) {
	c := mustNew(t, "genomics-pipelines", catalogtest.WithSafetyMultiplier("1.1"))
	c.SetInput("pipeline", "Variant calling")
	c.SetInput("sample_count", 1)

	// 40.1 x 1.1 = 44.11, rounded up once
	if got := mustResult(t, c); got != "45" {
		t.Errorf("expected 45, got %s", got)
	}
}

func TestComputeCalculators(t *testing.T) {
	tests := []struct {
		name   string
		calc   string
		inputs map[string]any
		want   string
	}{
		{"pipeline rounds up", "genomics-pipelines", map[string]any{"pipeline": "Variant calling", "sample_count": 3}, "121"},
		{"molecular dynamics", "simulations", map[string]any{"package": "GROMACS", "nanoseconds": 10, "atoms": 500000}, "500"},
		{"hours simulated", "simulations", map[string]any{"package": "Climate model", "sim_hours": 3.0}, "8"},
		{"default calculations", "simulations", map[string]any{"package": "DFT"}, "12"},
		{"non-positive count uses default", "genomics-pipelines", map[string]any{"pipeline": "Variant calling", "sample_count": -5}, "41"},
		{"malformed count uses default", "genomics-pipelines", map[string]any{"pipeline": "Variant calling", "sample_count": "lots"}, "41"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, tt.calc)
			for k, v := range tt.inputs {
				c.SetInput(k, v)
			}
			if got := mustResult(t, c); got != tt.want {
				t.Errorf("expected %s SU, got %s", tt.want, got)
			}
			if c.OutputUnit().Label != "SU" {
				t.Errorf("expected SU, got %s", c.OutputUnit().Label)
			}
		})
	}
}

func TestGPUCalculators(t *testing.T) {
	tests := []struct {
		name   string
		calc   string
		inputs map[string]any
		want   string
	}{
		{"training rounds up", "ml-training", map[string]any{"model_size": "Small CNN"}, "1.1"},
		{"items throughput", "ml-inference", map[string]any{"workload": "Image classification", "item_count": 4500}, "1.5"},
		{"token throughput with default count", "ml-inference", map[string]any{"workload": "LLM generation"}, "0.1"},
		{"gpu simulation", "gpu-simulation", map[string]any{"package": "AMBER", "nanoseconds": 7}, "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, tt.calc)
			for k, v := range tt.inputs {
				c.SetInput(k, v)
			}
			if got := mustResult(t, c); got != tt.want {
				t.Errorf("expected %s GPU-hours, got %s", tt.want, got)
			}
		})
	}
}

func TestInputErrors(t *testing.T) {
	c := mustNew(t, "genomics-pipelines")

	if c.Calculate() {
		t.Fatal("expected missing selection to fail")
	}
	if !errors.IsType(c.Err(), errors.TypeInput) {
		t.Errorf("expected input error, got %v", c.Err())
	}
	if c.ErrMessage() != "Please select a pipeline" {
		t.Errorf("unexpected message %q", c.ErrMessage())
	}
	if _, ok := c.Result(); ok || len(c.Breakdown()) != 0 {
		t.Error("failed calculation must leave no result and no breakdown")
	}

	c.SetInput("pipeline", "Variant calling")
	if !c.Calculate() || c.Err() != nil {
		t.Fatal("expected recovery after selecting a pipeline")
	}

	c.SetInput("pipeline", "Nope")
	if c.Calculate() {
		t.Error("expected unmatched selection to fail")
	}
	if _, ok := c.Result(); ok {
		t.Error("expected previous result to be cleared")
	}
}

func TestPresetAndDisplay(t *testing.T) {
	c := mustNew(t, "genomics")
	if c.ApplyPreset("Missing") {
		t.Error("expected unknown preset to be rejected")
	}
	if !c.ApplyPreset("Small cohort") {
		t.Fatal("expected preset to apply")
	}

	// 50 exomes of 10 GB
	r, ok := c.Result()
	if !ok || !r.Equal(d("0.489")) {
		t.Fatalf("expected 0.489 TB, got %s (%v)", r, ok)
	}

	disp, ok := c.DisplayResult()
	if !ok || disp.Unit != "GB" || !disp.Value.Equal(d("501")) {
		t.Errorf("expected 501 GB, got %s %s", disp.Value, disp.Unit)
	}

	c.ResetInputs()
	if _, ok := c.Result(); ok || len(c.Inputs()) != 0 {
		t.Error("reset must clear inputs and result")
	}
}

func TestPhotographyDefaults(t *testing.T) {
	c := mustNew(t, "photography")
	// 10 MB rounds up to the smallest storage unit
	if got := mustResult(t, c); got != "0.001" {
		t.Errorf("expected 0.001, got %s", got)
	}
}

func TestTargetServices(t *testing.T) {
	tests := []struct {
		calc string
		want string
	}{
		{"genomics", "hpc-storage"},
		{"genomics-pipelines", "hpc-cpu"},
		{"ml-training", "hpc-gpu"},
	}
	for _, tt := range tests {
		if got := mustNew(t, tt.calc).TargetService(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.calc, tt.want, got)
		}
	}

	alts := mustNew(t, "genomics").AlternativeServices()
	if len(alts) != 1 || alts[0] != "archive-storage" {
		t.Errorf("unexpected alternatives %v", alts)
	}
}

func TestRelatableComparison(t *testing.T) {
	c := mustNew(t, "ml-training")
	if c.RelatableComparison() != "" {
		t.Error("expected no comparison without a result")
	}
	c.SetInput("model_size", "Small CNN")
	mustResult(t, c)
	if got := c.RelatableComparison(); got != "About 11 laptop-hours with a consumer GPU" {
		t.Errorf("unexpected comparison %q", got)
	}

	tests := []struct {
		category types.Category
		value    string
		contains string
	}{
		{types.CategoryStorage, "0.0005", "small documents"},
		{types.CategoryStorage, "0.05", "photos"},
		{types.CategoryStorage, "0.5", "100 hours of HD video"},
		{types.CategoryStorage, "5", "15 months of streaming"},
		{types.CategoryStorage, "14", "20 full human genome"},
		{types.CategoryCompute, "40", "10 hours on a modern laptop"},
		{types.CategoryCompute, "400", "10 days"},
		{types.CategoryCompute, "5000", "5 weeks on a laptop, but just 50 hours on HPC"},
		{types.CategoryGPU, "80", "10 days non-stop"},
		{types.CategoryGPU, "336", "2 weeks on a single GPU"},
	}
	for _, tt := range tests {
		if got := relatable(tt.category, d(tt.value)); !strings.Contains(got, tt.contains) {
			t.Errorf("%s %s: expected %q in %q", tt.category, tt.value, tt.contains, got)
		}
	}
}

func TestAddToSlate(t *testing.T) {
	cat := catalogtest.New()
	store := slate.NewStore(cat)
	c, _ := New(cat, "genomics-pipelines")

	if c.AddToSlate(store, "") {
		t.Fatal("expected failure without a result")
	}
	if c.ErrMessage() != "Calculate a result first" {
		t.Errorf("unexpected message %q", c.ErrMessage())
	}

	c.SetInput("pipeline", "Variant calling")
	c.SetInput("sample_count", 3)
	mustResult(t, c)
	if !c.AddToSlate(store, "") {
		t.Fatalf("expected add to succeed: %s", c.ErrMessage())
	}

	items := store.Snapshot().Items
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Service != "hpc-cpu" || !item.Quantity.Equal(d("121")) || item.Unit != "SU" {
		t.Errorf("unexpected item %+v", item)
	}
	if item.FromCalculator != "genomics-pipelines" || item.CalculatorInputs["sample_count"] != 3 {
		t.Errorf("expected calculator provenance, got %+v", item)
	}
}

func TestUnknownCalculator(t *testing.T) {
	if _, ok := New(catalogtest.New(), "astrology"); ok {
		t.Error("expected unknown calculator to be reported")
	}
}
