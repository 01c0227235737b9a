package model

import (
	"time"
)

// JobStatus represents the lifecycle state of a cleaning job.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusNeedsReview JobStatus = "needs_review"
	JobStatusComplete    JobStatus = "complete"
	JobStatusFailed      JobStatus = "failed"
)

// Terminal reports whether the status ends automatic processing.
// needs_review is terminal for the engine; a trusted manual approval
// may still move it to complete.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusComplete, JobStatusNeedsReview, JobStatusFailed:
		return true
	}
	return false
}

// Plan is the owning user's entitlement tier, captured at job admission.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Pro reports whether the plan unlocks entitlement-gated recipes.
func (p Plan) Pro() bool {
	return p == PlanPro
}

// Job represents a single cleaning job: one source file, one recipe.
type Job struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Plan       Plan           `json:"plan"`
	SourceFile string         `json:"source_file"`
	Recipe     RecipeType     `json:"recipe"`
	Params     map[string]any `json:"params,omitempty"`
	Status     JobStatus      `json:"status"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	TokensIn   int            `json:"llm_tokens_in"`
	TokensOut  int            `json:"llm_tokens_out"`
	CostUSD    float64        `json:"cost_usd"`
	PreviewKey string         `json:"preview_key,omitempty"`
	ResultKey  string         `json:"result_key,omitempty"`
	UndoKey    string         `json:"undo_key,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// EngineKind records which computation path produced a recipe run step.
type EngineKind string

const (
	EngineKindDeterministic EngineKind = "deterministic"
	EngineKindRemote        EngineKind = "remote"
)

// RecipeRun is one append-only audit record per executed step within a job.
// StepOrder is gapless and strictly increasing per job; records are never
// mutated once written.
type RecipeRun struct {
	ID           string     `json:"id"`
	JobID        string     `json:"job_id"`
	StepOrder    int        `json:"step_order"`
	Engine       EngineKind `json:"engine"`
	InputSample  string     `json:"input_sample,omitempty"`
	OutputSample string     `json:"output_sample,omitempty"`
	Confidence   *float64   `json:"confidence,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TokenUsage tracks classifier token consumption for a job.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// UsageReport is what the billing collaborator consumes per job.
type UsageReport struct {
	JobID     string  `json:"job_id"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	CostUSD   float64 `json:"cost_usd"`
}
