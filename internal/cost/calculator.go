package cost

import "github.com/halosight/presence-cli/internal/model"

// Rate holds token pricing in USD per million tokens, plus an optional
// flat per-query charge for vendors that bill per request on top of
// tokens.
type Rate struct {
	Input    float64 `yaml:"input" mapstructure:"input"`
	Output   float64 `yaml:"output" mapstructure:"output"`
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Calculator computes costs for platform API usage.
type Calculator struct {
	rates map[string]Rate
}

// NewCalculator creates a Calculator with the given rates, keyed by base
// platform identifier.
func NewCalculator(rates map[string]Rate) *Calculator {
	return &Calculator{rates: rates}
}

// Query computes the cost in USD of one platform query. Search variants
// price at their base platform's rate. Unknown platforms cost 0.
func (c *Calculator) Query(platform string, inputTokens, outputTokens int) float64 {
	rate, ok := c.rates[model.BasePlatform(platform)]
	if !ok {
		return 0
	}

	inCost := (float64(inputTokens) / 1e6) * rate.Input
	outCost := (float64(outputTokens) / 1e6) * rate.Output
	return inCost + outCost + rate.PerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() map[string]Rate {
	return map[string]Rate{
		model.PlatformChatGPT:    {Input: 2.50, Output: 10.00},
		model.PlatformClaude:     {Input: 3.00, Output: 15.00},
		model.PlatformPerplexity: {Input: 3.00, Output: 15.00, PerQuery: 0.005},
		model.PlatformGemini:     {Input: 0.30, Output: 2.50},
		model.PlatformGrok:       {Input: 3.00, Output: 15.00},
	}
}
