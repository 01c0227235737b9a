package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// MemoryStore is an in-memory Store, safe for concurrent use. It backs tests
// and ephemeral runs; the cache path mirrors the database backends (expired
// entries report a miss, puts are last-writer-wins).
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]model.Job
	runs  map[string][]model.RecipeRun
	cache map[string]model.CacheEntry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]model.Job),
		runs:  make(map[string][]model.RecipeRun),
		cache: make(map[string]model.CacheEntry),
	}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                      { return nil }

func (s *MemoryStore) CreateJob(ctx context.Context, job model.Job) (*model.Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}
	if job.Plan == "" {
		job.Plan = model.PlanFree
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	out := job
	return &out, nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, found := s.jobs[jobID]
	if !found {
		return nil, eris.New("job not found")
	}
	out := j
	return &out, nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.jobs[job.ID]; !found {
		return eris.Errorf("job not found: %s", job.ID)
	}
	job.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []model.Job
	for _, j := range s.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && j.UserID != filter.UserID {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) AppendRecipeRun(ctx context.Context, run model.RecipeRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.runs[run.JobID] {
		if existing.StepOrder == run.StepOrder {
			return eris.Errorf("duplicate step order %d for job %s", run.StepOrder, run.JobID)
		}
	}
	s.runs[run.JobID] = append(s.runs[run.JobID], run)
	return nil
}

func (s *MemoryStore) ListRecipeRuns(ctx context.Context, jobID string) ([]model.RecipeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := append([]model.RecipeRun(nil), s.runs[jobID]...)
	sort.Slice(runs, func(i, k int) bool {
		return runs[i].StepOrder < runs[k].StepOrder
	})
	return runs, nil
}

func (s *MemoryStore) GetCachedClassification(ctx context.Context, key string) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, found := s.cache[key]
	if !found || e.Expired(time.Now().UTC()) {
		return nil, nil
	}
	out := e
	return &out, nil
}

func (s *MemoryStore) PutCachedClassification(ctx context.Context, entry model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[entry.Key] = entry
	return nil
}
