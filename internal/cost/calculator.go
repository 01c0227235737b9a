// Package cost computes classifier spend for billing attribution. The core
// reports usage per job; quota enforcement lives with the billing
// collaborator.
package cost

import "github.com/sells-group/datacleaner-cli/internal/model"

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for classifier usage.
type Calculator struct {
	rates map[string]ModelRate
}

// NewCalculator creates a Calculator with the given per-model rates.
func NewCalculator(rates map[string]ModelRate) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost in USD for one usage record. Unknown models
// cost zero rather than erroring; billing reconciles those offline.
func (c *Calculator) Claude(modelID string, usage model.TokenUsage) float64 {
	rate, found := c.rates[modelID]
	if !found {
		return 0
	}

	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	cwCost := (float64(usage.CacheCreationTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(usage.CacheReadTokens) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Report builds the per-job usage report for the billing collaborator.
func (c *Calculator) Report(jobID, modelID string, usage model.TokenUsage) model.UsageReport {
	return model.UsageReport{
		JobID:     jobID,
		TokensIn:  usage.InputTokens,
		TokensOut: usage.OutputTokens,
		CostUSD:   c.Claude(modelID, usage),
	}
}

// DefaultRates returns the default pricing rates.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"claude-haiku-4-5-20251001": {
			Input: 0.80, Output: 4.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-sonnet-4-5-20250929": {
			Input: 3.00, Output: 15.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
	}
}
