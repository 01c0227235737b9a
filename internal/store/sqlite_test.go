package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_JobRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.Job{
		UserID:     "u1",
		Plan:       model.PlanPro,
		SourceFile: "in.csv",
		Recipe:     model.RecipeNormalizePhones,
		Params:     map[string]any{"columns": []any{"phone"}, "defaultCountry": "US"},
	})
	require.NoError(t, err)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	assert.Equal(t, model.PlanPro, got.Plan)
	assert.Equal(t, "US", got.Params["defaultCountry"])
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.Confidence)
}

func TestSQLite_UpdateJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.Job{UserID: "u1", SourceFile: "in.csv", Recipe: model.RecipeNormalizeEmails})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	conf := 0.92
	job.Status = model.JobStatusComplete
	job.StartedAt = &now
	job.FinishedAt = &now
	job.TokensIn = 120
	job.TokensOut = 40
	job.CostUSD = 0.0012
	job.ResultKey = job.ID + "/result.csv"
	job.Confidence = &conf
	require.NoError(t, st.UpdateJob(ctx, job))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 120, got.TokensIn)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 0.92, *got.Confidence)
	assert.Equal(t, job.ResultKey, got.ResultKey)
}

func TestSQLite_UpdateJob_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.UpdateJob(context.Background(), &model.Job{ID: "ghost"})
	assert.Error(t, err)
}

func TestSQLite_ListJobs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.CreateJob(ctx, model.Job{UserID: "u1", SourceFile: "in.csv", Recipe: model.RecipeNormalizeEmails})
		require.NoError(t, err)
	}
	_, err := st.CreateJob(ctx, model.Job{UserID: "u2", SourceFile: "in.csv", Recipe: model.RecipeNormalizeEmails})
	require.NoError(t, err)

	jobs, err := st.ListJobs(ctx, JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = st.ListJobs(ctx, JobFilter{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestSQLite_RecipeRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.Job{UserID: "u1", SourceFile: "in.csv", Recipe: model.RecipeNormalizeCompanies})
	require.NoError(t, err)

	conf := 0.9
	require.NoError(t, st.AppendRecipeRun(ctx, model.RecipeRun{
		JobID:        job.ID,
		StepOrder:    0,
		Engine:       model.EngineKindDeterministic,
		InputSample:  "Acme Inc",
		OutputSample: "Acme",
		Notes:        "stripped legal suffixes from 1 values",
	}))
	require.NoError(t, st.AppendRecipeRun(ctx, model.RecipeRun{
		JobID:      job.ID,
		StepOrder:  1,
		Engine:     model.EngineKindRemote,
		Confidence: &conf,
	}))

	// The unique (job_id, step_order) constraint keeps the trail gapless
	// under retries.
	err = st.AppendRecipeRun(ctx, model.RecipeRun{JobID: job.ID, StepOrder: 1, Engine: model.EngineKindRemote})
	assert.Error(t, err)

	runs, err := st.ListRecipeRuns(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.EngineKindDeterministic, runs[0].Engine)
	require.NotNil(t, runs[1].Confidence)
	assert.Equal(t, 0.9, *runs[1].Confidence)
}

func TestSQLite_Cache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := model.CacheEntry{
		Key:        "hash123",
		Value:      "Senior",
		Confidence: 0.95,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.PutCachedClassification(ctx, entry))

	got, err := st.GetCachedClassification(ctx, "hash123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Senior", got.Value)
	assert.Equal(t, 0.95, got.Confidence)
}

func TestSQLite_Cache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCachedClassification(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Cache_ExpiredIsMiss(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutCachedClassification(ctx, model.CacheEntry{
		Key:        "stale",
		Value:      "old",
		Confidence: 0.9,
		ExpiresAt:  time.Now().UTC().Add(-time.Hour),
	}))

	got, err := st.GetCachedClassification(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Cache_Upsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.PutCachedClassification(ctx, model.CacheEntry{Key: "k", Value: "a", Confidence: 0.8, ExpiresAt: expires}))
	require.NoError(t, st.PutCachedClassification(ctx, model.CacheEntry{Key: "k", Value: "b", Confidence: 0.9, ExpiresAt: expires}))

	got, err := st.GetCachedClassification(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Value)
}
