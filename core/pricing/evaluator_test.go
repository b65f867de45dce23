package pricing_test

import (
	"testing"

	"research-planner/core/catalog/catalogtest"
	"research-planner/core/pricing"
)

var d = catalogtest.D

func TestTieredScenario(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())

	est, ok := e.Price("bulk-transfer", d("15000"), "")
	if !ok {
		t.Fatal("bulk-transfer not found")
	}
	if !est.Monthly.Equal(d("12500")) {
		t.Errorf("expected 12500, got %s", est.Monthly)
	}
	if len(est.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown rows, got %d", len(est.Breakdown))
	}
	if !est.Breakdown[0].Amount.Equal(d("10000")) || !est.Breakdown[1].Amount.Equal(d("2500")) {
		t.Errorf("unexpected tier rows: %s, %s", est.Breakdown[0].Amount, est.Breakdown[1].Amount)
	}
	if !est.Annual.Equal(d("150000")) {
		t.Errorf("expected annual 150000, got %s", est.Annual)
	}
}

func TestTieredLabelsFromConfig(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())
	est, _ := e.Price("hpc-gpu", d("50"), "")
	if len(est.Breakdown) != 1 {
		t.Fatalf("zero-consumption tiers must not produce rows, got %d", len(est.Breakdown))
	}
	if est.Breakdown[0].Label != "First 100 GPU-hours" {
		t.Errorf("expected configured label, got %q", est.Breakdown[0].Label)
	}
}

func TestUnitModel(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())
	est, _ := e.Price("hpc-storage", d("8"), "")
	if !est.Monthly.Equal(d("80")) {
		t.Errorf("expected 80, got %s", est.Monthly)
	}
	if len(est.Breakdown) != 1 {
		t.Fatalf("expected 1 row, got %d", len(est.Breakdown))
	}
	if want := "8 TB @ $10/TB"; est.Breakdown[0].Label != want {
		t.Errorf("expected %q, got %q", want, est.Breakdown[0].Label)
	}
}

func TestFreeUnitsScenario(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())

	tests := []struct {
		name        string
		quantity    string
		optIn       string
		wantMonthly string
		wantRows    int
	}{
		{"free allocation partially covers", "12000", "", "200", 2},
		{"free allocation covers everything", "4000", "", "0", 2},
		{"quantity equals the allocation", "10000", "", "0", 2},
		{"opt-in percent after free allocation", "20000", "startup", "500", 3},
		{"unknown opt-in ignored", "12000", "bogus", "200", 2},
		{"auto subsidy is not applied twice", "12000", "free-allocation", "200", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, _ := e.Price("hpc-cpu", d(tt.quantity), tt.optIn)
			if !est.Monthly.Equal(d(tt.wantMonthly)) {
				t.Errorf("expected monthly %s, got %s", tt.wantMonthly, est.Monthly)
			}
			if len(est.Breakdown) != tt.wantRows {
				t.Errorf("expected %d rows, got %d: %+v", tt.wantRows, len(est.Breakdown), est.Breakdown)
			}
		})
	}

	est, _ := e.Price("hpc-cpu", d("12000"), "")
	if !est.Breakdown[1].Amount.Equal(d("-1000")) {
		t.Errorf("expected discount row of -1000, got %s", est.Breakdown[1].Amount)
	}
	// below the allocation only the used units are waived
	est, _ = e.Price("hpc-cpu", d("4000"), "")
	if !est.Breakdown[1].Amount.Equal(d("-400")) {
		t.Errorf("expected discount row of -400, got %s", est.Breakdown[1].Amount)
	}
}

func TestSubsidyFloor(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())

	for _, optIn := range []string{"", "dept-match", "grant-credit"} {
		for _, q := range []string{"0", "10", "49", "50", "51", "700"} {
			est, _ := e.Price("research-cloud", d(q), optIn)
			if est.Monthly.IsNegative() {
				t.Errorf("q=%s optIn=%q: negative monthly %s", q, optIn, est.Monthly)
			}
			if !est.Annual.Equal(est.Monthly.Mul(d("12"))) {
				t.Errorf("q=%s optIn=%q: annual %s != 12 x %s", q, optIn, est.Annual, est.Monthly)
			}

			sum := d("0")
			for _, row := range est.Breakdown {
				if row.Amount != nil {
					sum = sum.Add(*row.Amount)
				}
			}
			if !sum.Equal(est.Monthly) {
				t.Errorf("q=%s optIn=%q: rows sum to %s, monthly is %s", q, optIn, sum, est.Monthly)
			}
		}
	}

	est, _ := e.Price("research-cloud", d("700"), "grant-credit")
	if !est.Monthly.Equal(d("150")) {
		t.Errorf("expected 700 - 50 - 500 = 150, got %s", est.Monthly)
	}
}

func TestConsultationModel(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())
	est, ok := e.Price("secure-enclave", d("3"), "")
	if !ok {
		t.Fatal("secure-enclave not found")
	}
	if !est.Monthly.IsZero() || !est.Annual.IsZero() {
		t.Errorf("consultation must cost zero, got %s/%s", est.Monthly, est.Annual)
	}
	if len(est.Breakdown) != 1 || est.Breakdown[0].Amount != nil {
		t.Errorf("expected one informational row, got %+v", est.Breakdown)
	}
}

func TestUnknownServicePricesToZero(t *testing.T) {
	e := pricing.NewEvaluator(catalogtest.New())
	est, ok := e.Price("quantum-annealer", d("5"), "")
	if ok {
		t.Error("expected not found")
	}
	if !est.Monthly.IsZero() || len(est.Breakdown) != 0 {
		t.Errorf("expected empty estimate, got %+v", est)
	}
}
