package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"research-planner/core/slate"
	"research-planner/internal/config"
	"research-planner/internal/errors"
)

func testSlate(project string, quantities ...string) *slate.Slate {
	s := slate.Empty()
	s.ProjectName = project
	for i, q := range quantities {
		qty := decimal.RequireFromString(q)
		s.Items = append(s.Items, slate.Item{
			ID:               "item-" + q,
			Service:          "hpc-storage",
			Quantity:         qty,
			Unit:             "TB",
			MonthlyEstimate:  qty.Mul(decimal.NewFromInt(10)),
			AnnualEstimate:   qty.Mul(decimal.NewFromInt(120)),
			CalculatorInputs: map[string]any{"sample_count": float64(i + 1)},
			AddedAt:          time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		})
	}
	return &s
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	db, err := NewSQLiteStore(filepath.Join(dir, "slates.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"file":   file,
		"sqlite": db,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := testSlate("Coral reefs", "5", "2.5")
			if err := store.Save(ctx, "s1", in); err != nil {
				t.Fatalf("save: %v", err)
			}

			out, err := store.Load(ctx, "s1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if out.ProjectName != "Coral reefs" || out.Status != slate.StatusDraft || len(out.Items) != 2 {
				t.Fatalf("unexpected slate %+v", out)
			}
			if !out.Items[1].Quantity.Equal(decimal.RequireFromString("2.5")) {
				t.Errorf("quantity must survive exactly, got %s", out.Items[1].Quantity)
			}
			if !out.Items[0].AnnualEstimate.Equal(decimal.NewFromInt(600)) {
				t.Errorf("unexpected annual %s", out.Items[0].AnnualEstimate)
			}
			if out.Items[1].CalculatorInputs["sample_count"] != float64(2) {
				t.Errorf("unexpected inputs %v", out.Items[1].CalculatorInputs)
			}
		})
	}
}

func TestStoreOverwriteAndList(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, "a", testSlate("First", "1")); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Save(ctx, "b", testSlate("Second")); err != nil {
				t.Fatalf("save: %v", err)
			}

			submitted := testSlate("First", "1", "2", "3")
			submitted.Status = slate.StatusSubmitted
			if err := store.Save(ctx, "a", submitted); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("expected 2 sessions, got %+v", list)
			}
			var a Summary
			for _, s := range list {
				if s.SessionID == "a" {
					a = s
				}
			}
			if a.Status != slate.StatusSubmitted || a.ItemCount != 3 || a.ProjectName != "First" {
				t.Errorf("unexpected summary %+v", a)
			}
		})
	}
}

func TestStoreNotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(ctx, "missing"); !errors.IsType(err, errors.TypeNotFound) {
				t.Errorf("expected NOT_FOUND, got %v", err)
			}

			if err := store.Save(ctx, "gone", testSlate("x")); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Delete(ctx, "gone"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Load(ctx, "gone"); !errors.IsType(err, errors.TypeNotFound) {
				t.Errorf("expected NOT_FOUND after delete, got %v", err)
			}
			if err := store.Delete(ctx, "gone"); err != nil {
				t.Errorf("deleting twice must not fail: %v", err)
			}

			s, err := LoadOrEmpty(ctx, store, "fresh")
			if err != nil || s.Status != slate.StatusDraft || len(s.Items) != 0 {
				t.Errorf("expected empty draft, got %+v (%v)", s, err)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := testSlate("x", "1")
	store.Save(ctx, "s", in)

	in.Items[0].Quantity = decimal.NewFromInt(99)
	out, _ := store.Load(ctx, "s")
	if !out.Items[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Error("saved slate must not alias the caller's slate")
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"default", true},
		{"grant-2026_v1.2", true},
		{"", false},
		{"../etc/passwd", false},
		{".hidden", false},
		{"a/b", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if (err == nil) != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}

func TestFileStoreSkipsCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	store.Save(ctx, "good", testSlate("ok"))
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644)

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].SessionID != "good" {
		t.Errorf("expected only the good session, got %+v", list)
	}
	if _, err := store.Load(ctx, "bad"); !errors.IsType(err, errors.TypeStorage) {
		t.Errorf("expected STORAGE_ERROR, got %v", err)
	}
}

func TestNewPicksBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     config.StorageConfig
		wantErr bool
	}{
		{config.StorageConfig{Backend: "memory"}, false},
		{config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "f")}, false},
		{config.StorageConfig{Backend: "sqlite", Path: filepath.Join(dir, "db", "s.db")}, false},
		{config.StorageConfig{Backend: "file"}, true},
		{config.StorageConfig{Backend: "s3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Backend, func(t *testing.T) {
			s, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
