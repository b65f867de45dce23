package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"research-planner/internal/config"
	"research-planner/internal/errors"
	"research-planner/internal/logging"
)

// resetFlags restores flag defaults between executions of the shared
// command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace([]string{})
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func setup(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	catalogPath, err := filepath.Abs(filepath.Join("..", "..", "..", "adapters", "catalogfile", "testdata", "catalog.hcl"))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Catalog.Path = catalogPath
	cfg.Storage.Backend = backend
	cfg.Storage.Path = filepath.Join(dir, "sessions")
	if backend == "sqlite" {
		cfg.Storage.Path = filepath.Join(dir, "slates.db")
	}
	cfg.Logging = logging.Config{Level: "error", Format: "json", Output: "stderr"}

	path := filepath.Join(dir, "config.json")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--no-color"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func expectContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	cfg := setup(t, "memory")
	expectContains(t, mustRun(t, cfg, "version"), "research-planner version "+Version)
}

func TestValidate(t *testing.T) {
	cfg := setup(t, "memory")
	expectContains(t, mustRun(t, cfg, "validate"), "is valid", "Calculators")

	out := mustRun(t, cfg, "validate", "--format", "json")
	expectContains(t, out, `"services": 5`, `"institution": "Test University"`)

	if _, err := run(t, cfg, "validate", filepath.Join(t.TempDir(), "missing.hcl")); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestServices(t *testing.T) {
	cfg := setup(t, "memory")
	out := mustRun(t, cfg, "services", "--tier", "restricted")
	expectContains(t, out, "secure-enclave", "requires a consultation")
	if strings.Contains(out, "hpc-gpu") {
		t.Errorf("hpc-gpu is not eligible for restricted data:\n%s", out)
	}

	if _, err := run(t, cfg, "services", "--tier", "secret"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestPrice(t *testing.T) {
	cfg := setup(t, "memory")
	tests := []struct {
		name    string
		args    []string
		want    []string
		errType errors.Type
	}{
		{
			name: "free allocation",
			args: []string{"price", "hpc-cpu", "12000", "--format", "json"},
			want: []string{`"monthly": "200"`, `"annual": "2400"`},
		},
		{
			name: "tiered",
			args: []string{"price", "hpc-gpu", "250"},
			want: []string{"HPC GPU: 250 GPU-hour", "$425.00", "$5,100.00"},
		},
		{
			name:    "unknown service",
			args:    []string{"price", "tape", "1"},
			errType: errors.TypeNotFound,
		},
		{
			name:    "bad quantity",
			args:    []string{"price", "hpc-storage", "lots"},
			errType: errors.TypeInput,
		},
		{
			name:    "unknown subsidy",
			args:    []string{"price", "hpc-cpu", "1", "--subsidy", "free-allocation"},
			errType: errors.TypeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, tt.args...)
			if tt.errType != "" {
				if !errors.IsType(err, tt.errType) {
					t.Fatalf("expected %s, got %v", tt.errType, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			expectContains(t, out, tt.want...)
		})
	}
}

func TestClassify(t *testing.T) {
	cfg := setup(t, "memory")

	out := mustRun(t, cfg, "classify")
	expectContains(t, out, "No tier assigned yet", "Does the project involve human subjects data?")

	out = mustRun(t, cfg, "classify", "--answer", "human-subjects=yes", "--answer", "identifiable=no")
	expectContains(t, out, "Tier: Internal (internal)", "Flags: irb", "Questionnaire complete")

	out = mustRun(t, cfg, "classify", "-a", "human-subjects=yes", "--format", "json")
	expectContains(t, out, `"next_question": "identifiable"`, `"leads_tier": "restricted"`)

	if _, err := run(t, cfg, "classify", "--answer", "human-subjects=maybe"); !errors.IsType(err, errors.TypeInput) {
		t.Errorf("expected INPUT_ERROR, got %v", err)
	}
}

func TestCalc(t *testing.T) {
	cfg := setup(t, "memory")

	out := mustRun(t, cfg, "calc", "--list")
	expectContains(t, out, "microscopy", "ml-training", "Small cohort")

	out = mustRun(t, cfg, "calc", "genomics", "--input", "data_type=Exome", "--input", "sample_count=50")
	expectContains(t, out, "Calculator: Genomics data", "Estimate: 600 GB", "Suggested service: hpc-storage")

	if _, err := run(t, cfg, "calc", "genomics", "--input", "data_type=Plankton"); !errors.IsType(err, errors.TypeInput) {
		t.Errorf("expected INPUT_ERROR, got %v", err)
	}
	if _, err := run(t, cfg, "calc", "weather"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestSlateSession(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := setup(t, backend)

			out := mustRun(t, cfg, "calc", "genomics", "--preset", "Small cohort", "--add")
			expectContains(t, out, "Added 0.586 TB of hpc-storage")

			mustRun(t, cfg, "slate", "add", "hpc-storage", "1.414")
			mustRun(t, cfg, "slate", "project", "Coral reefs")

			out = mustRun(t, cfg, "slate", "show", "--format", "json")
			expectContains(t, out, `"quantity": "2"`, `"total_monthly": "20"`, `"project_name": "Coral reefs"`)

			mustRun(t, cfg, "slate", "submit", "--request-id", "REQ-1", "--contact", "Ada", "--email", "ada@example.edu")
			if _, err := run(t, cfg, "slate", "add", "hpc-gpu", "1"); !errors.IsType(err, errors.TypeInput) {
				t.Errorf("submitted slate must reject edits, got %v", err)
			}

			out = mustRun(t, cfg, "slate", "export")
			expectContains(t, out, `"export_version": "1.0"`, `"institution": "Test University"`, `"request_id": "REQ-1"`)

			mustRun(t, cfg, "slate", "draft")
			mustRun(t, cfg, "slate", "add", "hpc-gpu", "10", "--session", "other")

			out = mustRun(t, cfg, "slate", "list")
			expectContains(t, out, "default", "other", "Coral reefs")

			mustRun(t, cfg, "slate", "wipe")
			expectContains(t, mustRun(t, cfg, "slate", "show"), "The slate is empty")
		})
	}
}

func TestSlateItemPrefix(t *testing.T) {
	cfg := setup(t, "file")
	mustRun(t, cfg, "slate", "add", "hpc-storage", "5", "--archive")

	out := mustRun(t, cfg, "slate", "show", "--format", "json")
	expectContains(t, out, `"service": "archive-storage"`, `"quantity": "2.5"`)

	if _, err := run(t, cfg, "slate", "remove", "zzz"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := run(t, cfg, "slate", "submit", "--session", "empty"); !errors.IsType(err, errors.TypeInput) {
		t.Errorf("expected INPUT_ERROR for an empty slate, got %v", err)
	}
}
