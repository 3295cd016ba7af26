package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "brollplan.toml"), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Planner.MaxInsertions != 6 {
		t.Fatalf("expected default max insertions, got %d", cfg.Planner.MaxInsertions)
	}
}

func TestLoad_MissingRequiredFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), true); err == nil {
		t.Fatalf("expected error for missing required config")
	}
}

func TestLoad_OverridesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brollplan.toml")
	body := `
[server]
addr = ":9090"

[planner]
max_insertions = 3
min_confidence = 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected overridden addr, got %q", cfg.Server.Addr)
	}
	if cfg.Planner.MaxInsertions != 3 {
		t.Fatalf("expected overridden max insertions, got %d", cfg.Planner.MaxInsertions)
	}
	// Untouched keys keep their defaults.
	if cfg.Planner.MinInsertionGap != 8 {
		t.Fatalf("expected default gap, got %v", cfg.Planner.MinInsertionGap)
	}

	pc := cfg.PlannerConfig()
	if pc.MaxInsertions != 3 || pc.MinConfidence != 0.5 {
		t.Fatalf("planner config not derived from file: %+v", pc)
	}
}

func TestLoad_RejectsInvalidThresholds(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"zero min duration", "[planner]\nmin_insertion_duration = 0.0\n", "min_insertion_duration"},
		{"max below min", "[planner]\nmax_insertion_duration = 1.0\n", "max_insertion_duration"},
		{"confidence out of range", "[planner]\nmin_confidence = 1.5\n", "min_confidence"},
		{"zero cap", "[planner]\nmax_insertions = 0\n", "max_insertions"},
		{"negative gap", "[planner]\nmin_insertion_gap = -1.0\n", "min_insertion_gap"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "brollplan.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path, true)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
