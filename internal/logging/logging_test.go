package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersWriteToInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(InitializeDefault)

	Debug("debug", zap.String("k", "v"))
	Info("info")
	Warn("warn")
	Error("error")
	With(zap.String("session", "default")).Info("with")
	Named("pricing").Info("named")
	Sync()

	entries := logs.AllUntimed()
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	levels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, want := range levels {
		if entries[i].Level != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, entries[i].Level)
		}
	}
	if got := entries[4].ContextMap()["session"]; got != "default" {
		t.Errorf("expected session field, got %v", got)
	}
	if entries[5].LoggerName != "pricing" {
		t.Errorf("expected logger name pricing, got %q", entries[5].LoggerName)
	}
}

func TestSetLoggerNil(t *testing.T) {
	SetLogger(nil)
	t.Cleanup(InitializeDefault)

	if Logger == nil || Sugar == nil {
		t.Fatal("nil must install a no-op logger")
	}
	Info("dropped")
	Sync()
}

func TestInitializeFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.log")
	t.Cleanup(InitializeDefault)

	tests := []struct {
		name    string
		cfg     Config
		logged  bool
		message string
	}{
		{"json at info", Config{Level: "info", Format: "json", Output: path}, true, "slate saved"},
		{"below level", Config{Level: "error", Format: "json", Output: path}, false, "quiet"},
		{"bad level falls back to warn", Config{Level: "loud", Format: "console", Output: path}, true, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Initialize(tt.cfg); err != nil {
				t.Fatal(err)
			}
			if tt.cfg.Level == "loud" {
				Warn(tt.message)
			} else {
				Info(tt.message)
			}
			Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(string(data), tt.message); got != tt.logged {
				t.Errorf("expected logged=%v for %q in\n%s", tt.logged, tt.message, data)
			}
		})
	}
}

func TestInitializeBadPath(t *testing.T) {
	t.Cleanup(InitializeDefault)
	cfg := Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")}
	if err := Initialize(cfg); err == nil {
		t.Error("expected an error for an unwritable output path")
	}
}
