package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/lkarlslund/usageguard/pkg/pricing"
)

func TestDefaultConfigPathUsesConfigToml(t *testing.T) {
	if got := filepath.Base(DefaultConfigPath()); got != defaultConfigFileName {
		t.Fatalf("expected default config file %q, got %q", defaultConfigFileName, got)
	}
}

func TestLoadWithoutOverrideUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WindowHours != 5 || cfg.WarningThresholdPct != 80 || cfg.BlockThresholdPct != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if strings.HasPrefix(cfg.CacheFile, "~") || strings.HasPrefix(cfg.ProjectsDir, "~") {
		t.Fatalf("expected expanded paths, got %q %q", cfg.CacheFile, cfg.ProjectsDir)
	}
	table := cfg.PricingTable()
	if got := pricing.Cost(pricing.Usage{InputTokens: 1_000_000}, "unlisted-model", table); got != 15.0 {
		t.Fatalf("expected default pricing 15.0, got %v", got)
	}
}

func TestLoadMergesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usageguard.toml")
	body := `
max_cost_per_window_usd = 10.0
warning_threshold_pct = 70.0
cache_file = "/tmp/state.json"

[pricing.custom-model]
input_per_mtok = 2.0

[pricing.claude-haiku-4-5]
input_per_mtok = 9.0
output_per_mtok = 9.0
cache_creation_per_mtok = 9.0
cache_read_per_mtok = 9.0
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxCostPerWindowUSD != 10 || cfg.WarningThresholdPct != 70 || cfg.BlockThresholdPct != 100 {
		t.Fatalf("unexpected merged scalars: %+v", cfg)
	}
	if cfg.CacheFile != "/tmp/state.json" {
		t.Fatalf("unexpected cache file %q", cfg.CacheFile)
	}
	table := cfg.PricingTable()
	custom := table["custom-model"]
	if custom.InputPerMTok != 2 || custom.OutputPerMTok != pricing.FallbackRates.OutputPerMTok {
		t.Fatalf("expected partial entry to inherit fallback rates, got %+v", custom)
	}
	if table["claude-haiku-4-5"].InputPerMTok != 9 {
		t.Fatalf("expected override of haiku pricing, got %+v", table["claude-haiku-4-5"])
	}
	if _, ok := table["claude-sonnet-4-5"]; !ok {
		t.Fatal("expected default pricing entries to survive merge")
	}
	if _, ok := table[pricing.DefaultModel]; !ok {
		t.Fatal("expected default entry to survive merge")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative max", body: "max_cost_per_window_usd = -1.0\n"},
		{name: "negative warn", body: "warning_threshold_pct = -5.0\n"},
		{name: "negative rate", body: "[pricing.x]\ninput_per_mtok = -1.0\n"},
		{name: "bad toml", body: "max_cost_per_window_usd = = 3\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "usageguard.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSaveOverrideOmitsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usageguard.toml")
	maxCost := 12.5
	if err := SaveOverride(path, &Override{MaxCostPerWindowUSD: &maxCost}); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, "max_cost_per_window_usd = 12.5") {
		t.Fatalf("expected max cost in output:\n%s", s)
	}
	for _, forbidden := range []string{"window_hours", "warning_threshold_pct", "cache_file", "pricing"} {
		if strings.Contains(s, forbidden) {
			t.Fatalf("found unexpected field %q in TOML:\n%s", forbidden, s)
		}
	}
	o, err := LoadOverride(path)
	if err != nil {
		t.Fatal(err)
	}
	if o.MaxCostPerWindowUSD == nil || *o.MaxCostPerWindowUSD != 12.5 || o.WarningThresholdPct != nil {
		t.Fatalf("unexpected round trip: %+v", o)
	}
}

func TestEmbeddedDefaultsDecode(t *testing.T) {
	var raw map[string]any
	if err := toml.Unmarshal(defaultTOML, &raw); err != nil {
		t.Fatalf("embedded defaults are not valid TOML: %v", err)
	}
	cfg := NewDefaultConfig()
	for model, e := range cfg.Pricing {
		if e.InputPerMTok == nil || e.CacheCreationPerMTok == nil || e.CacheReadPerMTok == nil || e.OutputPerMTok == nil {
			t.Fatalf("default pricing %q is incomplete", model)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Fatalf("expected ~user unchanged, got %q", got)
	}
}
