package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/datacleaner-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	plan          TEXT NOT NULL DEFAULT 'free',
	source_file   TEXT NOT NULL,
	recipe        TEXT NOT NULL,
	params        TEXT,
	status        TEXT NOT NULL DEFAULT 'queued',
	started_at    DATETIME,
	finished_at   DATETIME,
	tokens_in     INTEGER NOT NULL DEFAULT 0,
	tokens_out    INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	preview_key   TEXT,
	result_key    TEXT,
	undo_key      TEXT,
	confidence    REAL,
	error         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS recipe_runs (
	id            TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL REFERENCES jobs(id),
	step_order    INTEGER NOT NULL,
	engine        TEXT NOT NULL,
	input_sample  TEXT,
	output_sample TEXT,
	confidence    REAL,
	notes         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (job_id, step_order)
);

CREATE TABLE IF NOT EXISTS classification_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	confidence REAL NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user ON jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_recipe_runs_job ON recipe_runs(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job model.Job) (*model.Job, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, plan, source_file, recipe, params, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, string(job.Plan), job.SourceFile, string(job.Recipe), string(paramsJSON), string(job.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}
	return &job, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ?, finished_at = ?, tokens_in = ?, tokens_out = ?,
		 cost_usd = ?, preview_key = ?, result_key = ?, undo_key = ?, confidence = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		string(job.Status), job.StartedAt, job.FinishedAt, job.TokensIn, job.TokensOut,
		job.CostUSD, job.PreviewKey, job.ResultKey, job.UndoKey, job.Confidence, job.Error, job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, "job", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+` WHERE id = ?`, jobID)
	return scanJob(row)
}

const selectJobSQL = `SELECT id, user_id, plan, source_file, recipe, params, status, started_at, finished_at,
	tokens_in, tokens_out, cost_usd, preview_key, result_key, undo_key, confidence, error, created_at, updated_at
	FROM jobs`

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := selectJobSQL + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) AppendRecipeRun(ctx context.Context, run model.RecipeRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipe_runs (id, job_id, step_order, engine, input_sample, output_sample, confidence, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobID, run.StepOrder, string(run.Engine), run.InputSample, run.OutputSample, run.Confidence, run.Notes, run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: append recipe run for job %s", run.JobID)
}

func (s *SQLiteStore) ListRecipeRuns(ctx context.Context, jobID string) ([]model.RecipeRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, step_order, engine, input_sample, output_sample, confidence, notes, created_at
		 FROM recipe_runs WHERE job_id = ? ORDER BY step_order ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recipe runs")
	}
	defer rows.Close()

	var runs []model.RecipeRun
	for rows.Next() {
		var r model.RecipeRun
		if err := rows.Scan(&r.ID, &r.JobID, &r.StepOrder, &r.Engine, &r.InputSample, &r.OutputSample, &r.Confidence, &r.Notes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recipe run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list recipe runs iterate")
}

func (s *SQLiteStore) GetCachedClassification(ctx context.Context, key string) (*model.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, confidence, expires_at FROM classification_cache WHERE key = ?`,
		key,
	)

	var e model.CacheEntry
	err := row.Scan(&e.Key, &e.Value, &e.Confidence, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached classification")
	}
	// Lazy eviction: expired entries are inert and report a miss.
	if e.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return &e, nil
}

func (s *SQLiteStore) PutCachedClassification(ctx context.Context, entry model.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classification_cache (key, value, confidence, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, confidence = excluded.confidence, expires_at = excluded.expires_at`,
		entry.Key, entry.Value, entry.Confidence, entry.ExpiresAt,
	)
	return eris.Wrap(err, "sqlite: put cached classification")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var paramsJSON, previewKey, resultKey, undoKey, jobErr sql.NullString
	var startedAt, finishedAt sql.NullTime
	var confidence sql.NullFloat64

	err := row.Scan(&j.ID, &j.UserID, &j.Plan, &j.SourceFile, &j.Recipe, &paramsJSON, &j.Status,
		&startedAt, &finishedAt, &j.TokensIn, &j.TokensOut, &j.CostUSD,
		&previewKey, &resultKey, &undoKey, &confidence, &jobErr, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &j.Params); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal params")
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		j.FinishedAt = &t
	}
	if confidence.Valid {
		c := confidence.Float64
		j.Confidence = &c
	}
	j.PreviewKey = previewKey.String
	j.ResultKey = resultKey.String
	j.UndoKey = undoKey.String
	j.Error = jobErr.String
	return &j, nil
}
