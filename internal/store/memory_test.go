package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

func TestMemory_CreateAndGetJob(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.Job{
		UserID:     "u1",
		SourceFile: "in.csv",
		Recipe:     model.RecipeDedupeByColumns,
		Params:     map[string]any{"columns": []any{"email"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, model.PlanFree, job.Plan)
	assert.False(t, job.CreatedAt.IsZero())

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.RecipeDedupeByColumns, got.Recipe)
}

func TestMemory_GetJob_NotFound(t *testing.T) {
	st := NewMemory()
	_, err := st.GetJob(context.Background(), "nope")
	assert.Error(t, err)
}

func TestMemory_UpdateJob(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.Job{UserID: "u1", SourceFile: "in.csv", Recipe: model.RecipeNormalizeEmails})
	require.NoError(t, err)

	job.Status = model.JobStatusProcessing
	require.NoError(t, st.UpdateJob(ctx, job))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
}

func TestMemory_UpdateJob_NotFound(t *testing.T) {
	st := NewMemory()
	err := st.UpdateJob(context.Background(), &model.Job{ID: "ghost"})
	assert.Error(t, err)
}

func TestMemory_ListJobs_Filters(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	for _, j := range []model.Job{
		{UserID: "u1", SourceFile: "a.csv", Recipe: model.RecipeNormalizeEmails, Status: model.JobStatusComplete},
		{UserID: "u1", SourceFile: "b.csv", Recipe: model.RecipeNormalizeEmails, Status: model.JobStatusQueued},
		{UserID: "u2", SourceFile: "c.csv", Recipe: model.RecipeNormalizeEmails, Status: model.JobStatusQueued},
	} {
		_, err := st.CreateJob(ctx, j)
		require.NoError(t, err)
	}

	jobs, err := st.ListJobs(ctx, JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = st.ListJobs(ctx, JobFilter{Status: model.JobStatusQueued})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = st.ListJobs(ctx, JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestMemory_RecipeRuns_AppendOnlyAndOrdered(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	require.NoError(t, st.AppendRecipeRun(ctx, model.RecipeRun{JobID: "j1", StepOrder: 1, Engine: model.EngineKindRemote}))
	require.NoError(t, st.AppendRecipeRun(ctx, model.RecipeRun{JobID: "j1", StepOrder: 0, Engine: model.EngineKindDeterministic}))

	// Duplicate step order is rejected, the audit trail is append-only.
	err := st.AppendRecipeRun(ctx, model.RecipeRun{JobID: "j1", StepOrder: 0, Engine: model.EngineKindDeterministic})
	assert.Error(t, err)

	runs, err := st.ListRecipeRuns(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 0, runs[0].StepOrder)
	assert.Equal(t, 1, runs[1].StepOrder)
}

func TestMemory_Cache_PutGetExpiry(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	entry := model.CacheEntry{
		Key:        "k1",
		Value:      "Senior",
		Confidence: 0.95,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.PutCachedClassification(ctx, entry))

	got, err := st.GetCachedClassification(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Senior", got.Value)

	// Expired entries report a miss.
	entry.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.PutCachedClassification(ctx, entry))
	got, err = st.GetCachedClassification(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_Cache_LastWriterWins(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	require.NoError(t, st.PutCachedClassification(ctx, model.CacheEntry{Key: "k", Value: "a", Confidence: 0.9, ExpiresAt: expires}))
	require.NoError(t, st.PutCachedClassification(ctx, model.CacheEntry{Key: "k", Value: "b", Confidence: 0.9, ExpiresAt: expires}))

	got, err := st.GetCachedClassification(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Value)
}
