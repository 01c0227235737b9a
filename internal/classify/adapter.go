// Package classify maps uncached values to structured classifications via the
// remote model, with a content-addressed cache in front.
package classify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/datacleaner-cli/internal/config"
	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/redact"
	"github.com/sells-group/datacleaner-cli/internal/resilience"
	"github.com/sells-group/datacleaner-cli/pkg/anthropic"
)

// Cache is the slice of the store the adapter needs.
type Cache interface {
	GetCachedClassification(ctx context.Context, key string) (*model.CacheEntry, error)
	PutCachedClassification(ctx context.Context, entry model.CacheEntry) error
}

// Outcome is one per-input classification result, order-aligned with the
// request. Err is set when the value could not be classified after the retry
// budget was spent; such failures stay scoped to the value.
type Outcome struct {
	Value      string
	Confidence float64
	FromCache  bool
	Err        error
}

// Adapter batches uncached values, calls the classifier, validates its
// structured responses, and writes results through to the cache.
type Adapter struct {
	client  anthropic.Client
	cache   Cache
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	now     func() time.Time
}

// NewAdapter wires an adapter from config. The limiter and concurrency bound
// are shared across every batch the adapter dispatches.
func NewAdapter(client anthropic.Client, cache Cache, cfg config.AnthropicConfig) *Adapter {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.BatchTimeoutSecs <= 0 {
		cfg.BatchTimeoutSecs = 30
	}
	if cfg.CacheTTLDays <= 0 {
		cfg.CacheTTLDays = 30
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "classify_batch")

	return &Adapter{
		client:  client,
		cache:   cache,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		retry:   retryCfg,
		now:     time.Now,
	}
}

// ClassifyBatch classifies values for one recipe, one outcome per input in
// order. Cache hits short-circuit; misses are deduplicated by cache key,
// grouped into bounded batches, and sent concurrently. The returned usage
// covers only calls actually made, so fully cached batches report zero.
func (a *Adapter) ClassifyBatch(ctx context.Context, recipeType model.RecipeType, values []string) ([]Outcome, model.TokenUsage, error) {
	var usage model.TokenUsage

	profile, err := ProfileFor(recipeType)
	if err != nil {
		return nil, usage, err
	}

	outcomes := make([]Outcome, len(values))

	// Partition into cache hits and misses. A cache read error is logged and
	// treated as a miss; the cache must never take a job down.
	missKeys := make([]string, 0, len(values))
	missValues := make([]string, 0, len(values))
	missIndices := make(map[string][]int, len(values))
	for i, value := range values {
		key := CacheKey(a.cfg.Model, recipeType, value)
		entry, cacheErr := a.cache.GetCachedClassification(ctx, key)
		if cacheErr != nil {
			zap.L().Warn("classification cache read failed",
				zap.String("recipe", string(recipeType)),
				zap.Error(cacheErr),
			)
		}
		if entry != nil {
			outcomes[i] = Outcome{Value: entry.Value, Confidence: entry.Confidence, FromCache: true}
			continue
		}
		if _, seen := missIndices[key]; !seen {
			missKeys = append(missKeys, key)
			missValues = append(missValues, value)
		}
		missIndices[key] = append(missIndices[key], i)
	}

	if len(missKeys) == 0 {
		return outcomes, usage, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrent)

	for start := 0; start < len(missKeys); start += a.cfg.MaxBatchSize {
		end := min(start+a.cfg.MaxBatchSize, len(missKeys))
		batchKeys := missKeys[start:end]
		batchValues := missValues[start:end]

		g.Go(func() error {
			results, callUsage, callErr := a.classifyOne(gctx, profile, batchValues)

			mu.Lock()
			defer mu.Unlock()
			usage.Add(callUsage)

			if callErr != nil {
				// Exhausted retries degrade to per-value errors rather than
				// failing the job.
				for _, key := range batchKeys {
					for _, idx := range missIndices[key] {
						outcomes[idx] = Outcome{Err: callErr}
					}
				}
				return nil
			}

			expires := a.now().UTC().Add(time.Duration(a.cfg.CacheTTLDays) * 24 * time.Hour)
			for k, key := range batchKeys {
				for _, idx := range missIndices[key] {
					outcomes[idx] = Outcome{
						Value:      results[k].Value,
						Confidence: results[k].Confidence,
					}
				}
				putErr := a.cache.PutCachedClassification(ctx, model.CacheEntry{
					Key:        key,
					Value:      results[k].Value,
					Confidence: results[k].Confidence,
					ExpiresAt:  expires,
				})
				if putErr != nil {
					zap.L().Warn("classification cache write failed",
						zap.String("recipe", string(recipeType)),
						zap.Error(putErr),
					)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, usage, eris.Wrap(err, "classify: batch dispatch")
	}
	return outcomes, usage, nil
}

// classifyOne sends one batch with the retry budget applied. Malformed
// responses count as transient so the single retry covers them.
func (a *Adapter) classifyOne(ctx context.Context, profile Profile, values []string) ([]model.Classification, model.TokenUsage, error) {
	var usage model.TokenUsage

	redacted := make([]string, len(values))
	for i, v := range values {
		redacted[i] = redact.Redact(v, profile.RedactMode)
	}
	prompt := buildPrompt(redacted)

	results, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) ([]model.Classification, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "classify: rate limit wait")
		}

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.BatchTimeoutSecs)*time.Second)
		defer cancel()

		resp, err := a.client.CreateMessage(callCtx, anthropic.MessageRequest{
			Model:     a.cfg.Model,
			MaxTokens: 4096,
			System:    anthropic.BuildCachedSystemBlocks(profile.SystemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return nil, err
		}

		usage.Add(model.TokenUsage{
			InputTokens:         int(resp.Usage.InputTokens),
			OutputTokens:        int(resp.Usage.OutputTokens),
			CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
			CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		})

		parsed, err := profile.Parse(resp.Text(), len(values))
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		return parsed, nil
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "classify: batch failed after retry")
	}
	return results, usage, nil
}

func buildPrompt(values []string) string {
	var b strings.Builder
	for i, v := range values {
		fmt.Fprintf(&b, "%d. %s\n", i+1, v)
	}
	return b.String()
}
