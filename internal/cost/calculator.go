// Package cost prices language-model token usage per provider and model.
package cost

// Rates holds per-provider pricing configuration keyed by model name.
type Rates struct {
	Groq      map[string]ModelRate `yaml:"groq" mapstructure:"groq"`
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input        float64 `yaml:"input" mapstructure:"input"`
	Output       float64 `yaml:"output" mapstructure:"output"`
	CacheReadMul float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Completion computes the USD cost of a single completion. Unknown providers
// and models cost 0.
func (c *Calculator) Completion(provider, model string, input, output, cacheRead int) float64 {
	var table map[string]ModelRate
	switch provider {
	case "groq":
		table = c.rates.Groq
	case "openai":
		table = c.rates.OpenAI
	case "anthropic":
		table = c.rates.Anthropic
	}
	rate, ok := table[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul
	return inCost + outCost + crCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Groq: map[string]ModelRate{
			"llama-3.3-70b-versatile": {Input: 0.59, Output: 0.79},
			"llama-3.1-8b-instant":    {Input: 0.05, Output: 0.08},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o":      {Input: 2.50, Output: 10.00, CacheReadMul: 0.5},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60, CacheReadMul: 0.5},
		},
		Anthropic: map[string]ModelRate{
			"claude-sonnet-4-20250514":  {Input: 3.00, Output: 15.00, CacheReadMul: 0.1},
			"claude-haiku-4-5-20251001": {Input: 0.80, Output: 4.00, CacheReadMul: 0.1},
		},
	}
}
