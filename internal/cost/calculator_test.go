package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

func TestClaude_KnownModel(t *testing.T) {
	c := NewCalculator(map[string]ModelRate{
		"test-model": {Input: 1.0, Output: 4.0, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	})

	usage := model.TokenUsage{
		InputTokens:         1_000_000,
		OutputTokens:        500_000,
		CacheCreationTokens: 1_000_000,
		CacheReadTokens:     1_000_000,
	}

	// 1.0 + 2.0 + 1.25 + 0.1
	assert.InDelta(t, 4.35, c.Claude("test-model", usage), 1e-9)
}

func TestClaude_UnknownModelCostsZero(t *testing.T) {
	c := NewCalculator(DefaultRates())
	cost := c.Claude("mystery-model", model.TokenUsage{InputTokens: 1_000_000})
	assert.Equal(t, 0.0, cost)
}

func TestClaude_ZeroUsage(t *testing.T) {
	c := NewCalculator(DefaultRates())
	assert.Equal(t, 0.0, c.Claude("claude-haiku-4-5-20251001", model.TokenUsage{}))
}

func TestReport(t *testing.T) {
	c := NewCalculator(map[string]ModelRate{"m": {Input: 1.0, Output: 1.0}})
	report := c.Report("job-1", "m", model.TokenUsage{InputTokens: 2_000_000, OutputTokens: 1_000_000})

	assert.Equal(t, "job-1", report.JobID)
	assert.Equal(t, 2_000_000, report.TokensIn)
	assert.Equal(t, 1_000_000, report.TokensOut)
	assert.InDelta(t, 3.0, report.CostUSD, 1e-9)
}

func TestDefaultRates_CoverConfiguredModels(t *testing.T) {
	rates := DefaultRates()
	assert.Contains(t, rates, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates, "claude-sonnet-4-5-20250929")
}
