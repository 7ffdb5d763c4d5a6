package pricing

import (
	"sort"
	"strings"
)

const DefaultModel = "default"

const tokensPerMillion = 1_000_000.0

// Rates are USD per million tokens.
type Rates struct {
	InputPerMTok         float64 `toml:"input_per_mtok" json:"input_per_mtok"`
	CacheCreationPerMTok float64 `toml:"cache_creation_per_mtok" json:"cache_creation_per_mtok"`
	CacheReadPerMTok     float64 `toml:"cache_read_per_mtok" json:"cache_read_per_mtok"`
	OutputPerMTok        float64 `toml:"output_per_mtok" json:"output_per_mtok"`
}

// FallbackRates apply when neither the model nor the "default" entry is priced.
var FallbackRates = Rates{
	InputPerMTok:         15.0,
	CacheCreationPerMTok: 18.75,
	CacheReadPerMTok:     1.50,
	OutputPerMTok:        75.0,
}

type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens + u.OutputTokens
}

type Table map[string]Rates

func (t Table) Lookup(model string) Rates {
	if r, ok := t[strings.TrimSpace(model)]; ok {
		return r
	}
	if r, ok := t[DefaultModel]; ok {
		return r
	}
	return FallbackRates
}

// Merge overwrites entries of t with those from other.
func (t Table) Merge(other Table) {
	for k, v := range other {
		t[k] = v
	}
}

func (t Table) Models() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Cost(u Usage, model string, table Table) float64 {
	return table.Lookup(model).Cost(u)
}

func (r Rates) Cost(u Usage) float64 {
	return float64(u.InputTokens)/tokensPerMillion*r.InputPerMTok +
		float64(u.CacheCreationInputTokens)/tokensPerMillion*r.CacheCreationPerMTok +
		float64(u.CacheReadInputTokens)/tokensPerMillion*r.CacheReadPerMTok +
		float64(u.OutputTokens)/tokensPerMillion*r.OutputPerMTok
}
