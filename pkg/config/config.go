package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/lkarlslund/usageguard/pkg/cache"
	"github.com/lkarlslund/usageguard/pkg/pricing"
	"github.com/lkarlslund/usageguard/pkg/window"
)

const defaultConfigFileName = "usageguard.toml"

//go:embed default.toml
var defaultTOML []byte

type PricingEntry struct {
	InputPerMTok         *float64 `toml:"input_per_mtok,omitempty"`
	CacheCreationPerMTok *float64 `toml:"cache_creation_per_mtok,omitempty"`
	CacheReadPerMTok     *float64 `toml:"cache_read_per_mtok,omitempty"`
	OutputPerMTok        *float64 `toml:"output_per_mtok,omitempty"`
}

// Rates resolves missing fields against pricing.FallbackRates.
func (e PricingEntry) Rates() pricing.Rates {
	r := pricing.FallbackRates
	if e.InputPerMTok != nil {
		r.InputPerMTok = *e.InputPerMTok
	}
	if e.CacheCreationPerMTok != nil {
		r.CacheCreationPerMTok = *e.CacheCreationPerMTok
	}
	if e.CacheReadPerMTok != nil {
		r.CacheReadPerMTok = *e.CacheReadPerMTok
	}
	if e.OutputPerMTok != nil {
		r.OutputPerMTok = *e.OutputPerMTok
	}
	return r
}

type Config struct {
	WindowHours         int                     `toml:"window_hours"`
	MaxCostPerWindowUSD float64                 `toml:"max_cost_per_window_usd"`
	WarningThresholdPct float64                 `toml:"warning_threshold_pct"`
	BlockThresholdPct   float64                 `toml:"block_threshold_pct"`
	CacheFile           string                  `toml:"cache_file"`
	ProjectsDir         string                  `toml:"projects_dir"`
	LogLevel            string                  `toml:"log_level"`
	Pricing             map[string]PricingEntry `toml:"pricing"`
}

// Override is the user file. Only keys present in it replace defaults;
// pricing entries are merged per model.
type Override struct {
	WindowHours         *int                    `toml:"window_hours,omitempty"`
	MaxCostPerWindowUSD *float64                `toml:"max_cost_per_window_usd,omitempty"`
	WarningThresholdPct *float64                `toml:"warning_threshold_pct,omitempty"`
	BlockThresholdPct   *float64                `toml:"block_threshold_pct,omitempty"`
	CacheFile           *string                 `toml:"cache_file,omitempty"`
	ProjectsDir         *string                 `toml:"projects_dir,omitempty"`
	LogLevel            *string                 `toml:"log_level,omitempty"`
	Pricing             map[string]PricingEntry `toml:"pricing,omitempty"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigFileName
	}
	return filepath.Join(home, ".config", "usageguard", defaultConfigFileName)
}

func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := toml.Unmarshal(defaultTOML, cfg); err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// Load merges the user override at path (if present) over the embedded
// defaults. A missing override file is not an error.
func Load(path string) (*Config, error) {
	o, err := LoadOverride(path)
	if err != nil {
		return nil, err
	}
	return Resolve(o)
}

func LoadOverride(path string) (*Override, error) {
	o := &Override{}
	if strings.TrimSpace(path) == "" {
		return o, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return o, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, o); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return o, nil
}

func SaveOverride(path string, o *Override) error {
	b, err := EncodeOverride(o)
	if err != nil {
		return err
	}
	return cache.WriteFileAtomic(path, b, 0o600)
}

func EncodeOverride(o *Override) ([]byte, error) {
	b, err := marshalTOML(o)
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return b, nil
}

// Resolve validates o merged over the embedded defaults without touching
// any file.
func Resolve(o *Override) (*Config, error) {
	cfg := NewDefaultConfig()
	cfg.Apply(o)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Apply(o *Override) {
	if o == nil {
		return
	}
	if o.WindowHours != nil {
		c.WindowHours = *o.WindowHours
	}
	if o.MaxCostPerWindowUSD != nil {
		c.MaxCostPerWindowUSD = *o.MaxCostPerWindowUSD
	}
	if o.WarningThresholdPct != nil {
		c.WarningThresholdPct = *o.WarningThresholdPct
	}
	if o.BlockThresholdPct != nil {
		c.BlockThresholdPct = *o.BlockThresholdPct
	}
	if o.CacheFile != nil {
		c.CacheFile = *o.CacheFile
	}
	if o.ProjectsDir != nil {
		c.ProjectsDir = *o.ProjectsDir
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if len(o.Pricing) > 0 && c.Pricing == nil {
		c.Pricing = map[string]PricingEntry{}
	}
	for model, entry := range o.Pricing {
		c.Pricing[model] = entry
	}
}

func (c *Config) Normalize() {
	if c.WindowHours <= 0 {
		c.WindowHours = window.DefaultHours
	}
	c.CacheFile = ExpandHome(strings.TrimSpace(c.CacheFile))
	c.ProjectsDir = ExpandHome(strings.TrimSpace(c.ProjectsDir))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.Pricing == nil {
		c.Pricing = map[string]PricingEntry{}
	}
}

func (c *Config) Validate() error {
	if c.MaxCostPerWindowUSD < 0 {
		return errors.New("max_cost_per_window_usd must be >= 0")
	}
	if c.WarningThresholdPct < 0 {
		return errors.New("warning_threshold_pct must be >= 0")
	}
	if c.BlockThresholdPct < 0 {
		return errors.New("block_threshold_pct must be >= 0")
	}
	if c.CacheFile == "" {
		return errors.New("cache_file cannot be empty")
	}
	for model, e := range c.Pricing {
		for _, v := range []*float64{e.InputPerMTok, e.CacheCreationPerMTok, e.CacheReadPerMTok, e.OutputPerMTok} {
			if v != nil && *v < 0 {
				return fmt.Errorf("pricing %q has a negative rate", model)
			}
		}
	}
	return nil
}

func (c *Config) PricingTable() pricing.Table {
	out := make(pricing.Table, len(c.Pricing))
	for model, e := range c.Pricing {
		out[model] = e.Rates()
	}
	return out
}

func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func marshalTOML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetArraysMultiline(true)
	enc.SetIndentSymbol("  ")
	enc.SetIndentTables(true)
	enc.SetTablesInline(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}
