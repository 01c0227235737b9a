package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock implements it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id       TEXT NOT NULL,
	plan          TEXT NOT NULL DEFAULT 'free',
	source_file   TEXT NOT NULL,
	recipe        TEXT NOT NULL,
	params        JSONB,
	status        TEXT NOT NULL DEFAULT 'queued',
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ,
	tokens_in     BIGINT NOT NULL DEFAULT 0,
	tokens_out    BIGINT NOT NULL DEFAULT 0,
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	preview_key   TEXT,
	result_key    TEXT,
	undo_key      TEXT,
	confidence    DOUBLE PRECISION,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recipe_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id        TEXT NOT NULL REFERENCES jobs(id),
	step_order    INTEGER NOT NULL,
	engine        TEXT NOT NULL,
	input_sample  TEXT,
	output_sample TEXT,
	confidence    DOUBLE PRECISION,
	notes         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (job_id, step_order)
);

CREATE TABLE IF NOT EXISTS classification_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user ON jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_recipe_runs_job ON recipe_runs(job_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job model.Job) (*model.Job, error) {
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

	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, user_id, plan, source_file, recipe, params, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.UserID, string(job.Plan), job.SourceFile, string(job.Recipe), paramsJSON, string(job.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}
	return &job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, started_at = $2, finished_at = $3, tokens_in = $4, tokens_out = $5,
		 cost_usd = $6, preview_key = $7, result_key = $8, undo_key = $9, confidence = $10, error = $11, updated_at = $12
		 WHERE id = $13`,
		string(job.Status), job.StartedAt, job.FinishedAt, job.TokensIn, job.TokensOut,
		job.CostUSD, job.PreviewKey, job.ResultKey, job.UndoKey, job.Confidence, job.Error, job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", job.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", job.ID)
	}
	return nil
}

const pgSelectJobSQL = `SELECT id, user_id, plan, source_file, recipe, params, status, started_at, finished_at,
	tokens_in, tokens_out, cost_usd, preview_key, result_key, undo_key, confidence, error, created_at, updated_at
	FROM jobs`

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, pgSelectJobSQL+` WHERE id = $1`, jobID)
	return scanPgJob(row)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := pgSelectJobSQL + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) AppendRecipeRun(ctx context.Context, run model.RecipeRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO recipe_runs (id, job_id, step_order, engine, input_sample, output_sample, confidence, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.JobID, run.StepOrder, string(run.Engine), run.InputSample, run.OutputSample, run.Confidence, run.Notes, run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: append recipe run for job %s", run.JobID)
}

func (s *PostgresStore) ListRecipeRuns(ctx context.Context, jobID string) ([]model.RecipeRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, step_order, engine, input_sample, output_sample, confidence, notes, created_at
		 FROM recipe_runs WHERE job_id = $1 ORDER BY step_order ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recipe runs")
	}
	defer rows.Close()

	var runs []model.RecipeRun
	for rows.Next() {
		var r model.RecipeRun
		if err := rows.Scan(&r.ID, &r.JobID, &r.StepOrder, &r.Engine, &r.InputSample, &r.OutputSample, &r.Confidence, &r.Notes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recipe run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list recipe runs iterate")
}

func (s *PostgresStore) GetCachedClassification(ctx context.Context, key string) (*model.CacheEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT key, value, confidence, expires_at FROM classification_cache WHERE key = $1 AND expires_at > now()`,
		key,
	)

	var e model.CacheEntry
	err := row.Scan(&e.Key, &e.Value, &e.Confidence, &e.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached classification")
	}
	return &e, nil
}

func (s *PostgresStore) PutCachedClassification(ctx context.Context, entry model.CacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO classification_cache (key, value, confidence, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, confidence = EXCLUDED.confidence, expires_at = EXCLUDED.expires_at`,
		entry.Key, entry.Value, entry.Confidence, entry.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: put cached classification")
}

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var paramsJSON []byte
	var previewKey, resultKey, undoKey, jobErr *string
	var startedAt, finishedAt *time.Time
	var confidence *float64

	err := row.Scan(&j.ID, &j.UserID, &j.Plan, &j.SourceFile, &j.Recipe, &paramsJSON, &j.Status,
		&startedAt, &finishedAt, &j.TokensIn, &j.TokensOut, &j.CostUSD,
		&previewKey, &resultKey, &undoKey, &confidence, &jobErr, &j.CreatedAt, &j.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan job")
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &j.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
	}
	j.StartedAt = startedAt
	j.FinishedAt = finishedAt
	j.Confidence = confidence
	if previewKey != nil {
		j.PreviewKey = *previewKey
	}
	if resultKey != nil {
		j.ResultKey = *resultKey
	}
	if undoKey != nil {
		j.UndoKey = *undoKey
	}
	if jobErr != nil {
		j.Error = *jobErr
	}
	return &j, nil
}
