// Package store persists jobs, their append-only recipe-run audit trail,
// and the shared classification cache.
package store

import (
	"context"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	UserID string          `json:"user_id,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the cleaning engine.
//
// The classification cache is shared read/write across concurrent jobs:
// Get on an expired or malformed entry reports a miss, and concurrent Put
// for the same key is last-writer-wins (the value is a pure function of
// the key).
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, job model.Job) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Recipe runs (append-only)
	AppendRecipeRun(ctx context.Context, run model.RecipeRun) error
	ListRecipeRuns(ctx context.Context, jobID string) ([]model.RecipeRun, error)

	// Classification cache
	GetCachedClassification(ctx context.Context, key string) (*model.CacheEntry, error)
	PutCachedClassification(ctx context.Context, entry model.CacheEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
