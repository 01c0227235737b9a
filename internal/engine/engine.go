// Package engine executes cleaning jobs: it resolves the recipe, streams the
// source table through deterministic and remote steps, aggregates confidence,
// drives the job state machine, and writes the preview/result/undo artifacts.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/datacleaner-cli/internal/classify"
	"github.com/sells-group/datacleaner-cli/internal/config"
	"github.com/sells-group/datacleaner-cli/internal/cost"
	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/recipe"
	"github.com/sells-group/datacleaner-cli/internal/redact"
	"github.com/sells-group/datacleaner-cli/internal/storage"
	"github.com/sells-group/datacleaner-cli/internal/store"
	"github.com/sells-group/datacleaner-cli/internal/table"
	"github.com/sells-group/datacleaner-cli/internal/transform"
)

// Classifier is the remote classification capability the engine depends on.
type Classifier interface {
	ClassifyBatch(ctx context.Context, recipeType model.RecipeType, values []string) ([]classify.Outcome, model.TokenUsage, error)
}

// Engine orchestrates recipe execution over one job at a time.
type Engine struct {
	store      store.Store
	blobs      storage.Storage
	classifier Classifier
	costs      *cost.Calculator
	cfg        *config.Config
	rules      *transform.Rules
	sm         *StateMachine
}

// New wires an engine from its collaborators. A nil rules falls back to the
// built-in exception and suffix lists.
func New(st store.Store, blobs storage.Storage, classifier Classifier, costs *cost.Calculator, cfg *config.Config, rules *transform.Rules) *Engine {
	return &Engine{
		store:      st,
		blobs:      blobs,
		classifier: classifier,
		costs:      costs,
		cfg:        cfg,
		rules:      rules,
		sm:         NewStateMachine(st),
	}
}

// StateMachine exposes the lifecycle owner, for the manual-approval path.
func (e *Engine) StateMachine() *StateMachine { return e.sm }

// Execute runs a queued job to a terminal status. Re-executing a job that
// already finished is a no-op returning the stored job, so retried dispatches
// stay idempotent. The job is never left in processing when Execute returns.
func (e *Engine) Execute(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: load job %s", jobID)
	}

	if job.Status.Terminal() {
		zap.L().Info("job already finished", zap.String("job_id", job.ID), zap.String("status", string(job.Status)))
		return job, nil
	}
	if job.Status == model.JobStatusProcessing {
		return nil, eris.Errorf("engine: job %s is already processing", job.ID)
	}

	// Admission checks run before the job leaves queued: a bad submission is
	// rejected, never recorded as a failed run.
	def, err := recipe.Resolve(job.Recipe)
	if err != nil {
		return job, invalid("unknown recipe", err)
	}
	if err := recipe.ValidateParams(job.Recipe, job.Params); err != nil {
		return job, invalid("invalid parameters", err)
	}

	if err := e.sm.Transition(ctx, job, model.JobStatusProcessing); err != nil {
		return nil, err
	}

	result, confidences, runErr := e.run(ctx, job, def)
	if runErr == nil {
		runErr = e.writeArtifacts(ctx, job, result)
	}

	if runErr != nil {
		job.Error = runErr.Error()
		// The terminal status must land even when the run was cancelled.
		if terr := e.sm.Transition(context.WithoutCancel(ctx), job, model.JobStatusFailed); terr != nil {
			zap.L().Error("could not record job failure",
				zap.String("job_id", job.ID),
				zap.Error(terr),
			)
		}
		return job, runErr
	}

	conf := Aggregate(confidences)
	job.Confidence = &conf

	status := Decide(conf, e.cfg.Engine.ReviewThreshold)
	if err := e.sm.Transition(ctx, job, status); err != nil {
		return job, err
	}

	report := e.costs.Report(job.ID, e.cfg.Anthropic.Model, model.TokenUsage{
		InputTokens:  job.TokensIn,
		OutputTokens: job.TokensOut,
	})
	zap.L().Info("job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
		zap.Float64("confidence", conf),
		zap.Int("tokens_in", report.TokensIn),
		zap.Int("tokens_out", report.TokensOut),
		zap.Float64("cost_usd", job.CostUSD),
	)
	return job, nil
}

func (e *Engine) run(ctx context.Context, job *model.Job, def recipe.Definition) (*table.Table, []float64, error) {
	if def.RequiresPro && !job.Plan.Pro() {
		return nil, nil, fatalf("recipe %s requires a pro plan", job.Recipe)
	}

	tbl, err := table.Load(ctx, job.SourceFile)
	if err != nil {
		return nil, nil, fatal("read source file", err)
	}

	maxRows := e.cfg.Limits.FreeMaxRows
	if job.Plan.Pro() {
		maxRows = e.cfg.Limits.ProMaxRows
	}
	if maxRows > 0 && len(tbl.Rows) > maxRows {
		return nil, nil, fatalf("file has %d rows, plan allows at most %d", len(tbl.Rows), maxRows)
	}

	// Undo snapshot goes out before any step touches a row.
	undoData, err := table.MarshalCSV(tbl)
	if err != nil {
		return nil, nil, fatal("snapshot source table", err)
	}
	undoKey, err := e.blobs.Put(ctx, job.ID, storage.KindUndo, undoData)
	if err != nil {
		return nil, nil, fatal("write undo artifact", err)
	}
	job.UndoKey = undoKey

	var confidences []float64
	for order, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, fatal("job cancelled", err)
		}

		res, err := e.runStep(ctx, job, step, tbl)
		if err != nil {
			return nil, nil, err
		}
		confidences = append(confidences, res.confidences...)

		run := model.RecipeRun{
			JobID:        job.ID,
			StepOrder:    order,
			Engine:       res.engine,
			InputSample:  res.inputSample,
			OutputSample: res.outputSample,
			Notes:        strings.Join(res.notes, "; "),
		}
		if len(res.confidences) > 0 {
			c := Aggregate(res.confidences)
			run.Confidence = &c
		}
		if err := e.store.AppendRecipeRun(ctx, run); err != nil {
			return nil, nil, fatal("record step audit", err)
		}
	}

	return tbl, confidences, nil
}

// stepResult carries one step's outputs back to the run loop.
type stepResult struct {
	confidences  []float64
	engine       model.EngineKind
	inputSample  string
	outputSample string
	notes        []string
}

func (e *Engine) runStep(ctx context.Context, job *model.Job, step recipe.Step, tbl *table.Table) (*stepResult, error) {
	switch step.Name {
	case "dedupe":
		return e.stepDedupe(job, tbl)
	case "normalize_dates":
		p, err := recipe.DateParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepHybrid(ctx, job, tbl, p.Columns, model.RecipeNormalizeDates, func(v string) transform.Result {
			return transform.NormalizeDate(v, p.LocaleHint)
		})
	case "normalize_phones":
		p, err := recipe.PhoneParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepHybrid(ctx, job, tbl, p.Columns, model.RecipeNormalizePhones, func(v string) transform.Result {
			return transform.NormalizePhone(v, p.DefaultCountry)
		})
	case "normalize_emails":
		p, err := recipe.EmailParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepDeterministic(ctx, tbl, p.Columns, transform.NormalizeEmail)
	case "title_case":
		p, err := recipe.TitleCaseParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		exceptions := p.Exceptions
		if len(exceptions) == 0 && e.rules != nil {
			exceptions = e.rules.NameExceptions
		}
		return e.stepDeterministic(ctx, tbl, p.Columns, func(v string) transform.Result {
			return transform.TitleCase(v, exceptions)
		})
	case "map_seniority":
		p, err := recipe.JobTitleParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepSeniority(ctx, job, tbl, p.Column)
	case "strip_suffixes":
		p, err := recipe.CompanyParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepStripSuffixes(tbl, p.Column)
	case "normalize_company":
		p, err := recipe.CompanyParams(job.Params)
		if err != nil {
			return nil, fatal("decode parameters", err)
		}
		return e.stepRemoteColumn(ctx, job, tbl, p.Column, model.RecipeNormalizeCompanies)
	default:
		return nil, fatalf("unknown step %q in recipe %s", step.Name, job.Recipe)
	}
}

func (e *Engine) stepDedupe(job *model.Job, tbl *table.Table) (*stepResult, error) {
	p, err := recipe.DedupeParams(job.Params)
	if err != nil {
		return nil, fatal("decode parameters", err)
	}

	indices, missing := tbl.ColumnIndices(p.Columns)
	if len(indices) == 0 {
		return nil, fatalf("none of the selected columns exist: %s", strings.Join(missing, ", "))
	}

	res := &stepResult{engine: model.EngineKindDeterministic}
	if len(missing) > 0 {
		res.notes = append(res.notes, "missing columns ignored: "+strings.Join(missing, ", "))
	}

	before := len(tbl.Rows)
	res.inputSample = sampleColumn(tbl, indices[0])

	survivors := transform.Dedupe(tbl.Rows, indices, p.Keep())
	*tbl = *tbl.SelectRows(survivors)

	res.outputSample = sampleColumn(tbl, indices[0])
	res.notes = append(res.notes, fmt.Sprintf("removed %d duplicate rows of %d", before-len(tbl.Rows), before))
	return res, nil
}

// transformChunk is the number of rows one worker handles at a time.
const transformChunk = 256

// stepDeterministic applies a pure transform to every non-empty cell of the
// selected columns, fanning row chunks out across workers. Value failures
// score zero and are counted, never fatal.
func (e *Engine) stepDeterministic(ctx context.Context, tbl *table.Table, columns []string, fn func(string) transform.Result) (*stepResult, error) {
	indices, missing := tbl.ColumnIndices(columns)
	if len(indices) == 0 {
		return nil, fatalf("none of the selected columns exist: %s", strings.Join(missing, ", "))
	}

	res := &stepResult{engine: model.EngineKindDeterministic}
	if len(missing) > 0 {
		res.notes = append(res.notes, "missing columns ignored: "+strings.Join(missing, ", "))
	}
	res.inputSample = sampleColumn(tbl, indices[0])

	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(tbl.Rows); start += transformChunk {
		end := min(start+transformChunk, len(tbl.Rows))
		g.Go(func() error {
			confs := make([]float64, 0, end-start)
			failed := 0
			for r := start; r < end; r++ {
				if err := gctx.Err(); err != nil {
					return fatal("job cancelled", err)
				}
				for _, col := range indices {
					v := tbl.Cell(r, col)
					if strings.TrimSpace(v) == "" {
						continue
					}
					out := fn(v)
					if out.Err != nil {
						confs = append(confs, 0)
						failed++
						continue
					}
					if err := tbl.SetCell(r, col, out.Value); err != nil {
						return fatal("write cell", err)
					}
					confs = append(confs, out.Confidence)
				}
			}
			mu.Lock()
			res.confidences = append(res.confidences, confs...)
			failures += failed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.outputSample = sampleColumn(tbl, indices[0])
	if failures > 0 {
		res.notes = append(res.notes, fmt.Sprintf("%d values failed", failures))
	}
	return res, nil
}

// stepHybrid tries the deterministic transform per value and re-routes
// deferred or low-confidence results to the remote classifier.
func (e *Engine) stepHybrid(ctx context.Context, job *model.Job, tbl *table.Table, columns []string, recipeType model.RecipeType, fn func(string) transform.Result) (*stepResult, error) {
	indices, missing := tbl.ColumnIndices(columns)
	if len(indices) == 0 {
		return nil, fatalf("none of the selected columns exist: %s", strings.Join(missing, ", "))
	}

	res := &stepResult{engine: model.EngineKindDeterministic}
	if len(missing) > 0 {
		res.notes = append(res.notes, "missing columns ignored: "+strings.Join(missing, ", "))
	}
	res.inputSample = sampleColumn(tbl, indices[0])

	type cellRef struct{ row, col int }
	var remoteRefs []cellRef
	var remoteValues []string
	failures := 0

	for _, col := range indices {
		for r := range tbl.Rows {
			if err := ctx.Err(); err != nil {
				return nil, fatal("job cancelled", err)
			}
			v := tbl.Cell(r, col)
			if strings.TrimSpace(v) == "" {
				continue
			}
			out := fn(v)
			switch {
			case out.Err != nil:
				res.confidences = append(res.confidences, 0)
				failures++
			case out.Deferred || out.Confidence < e.cfg.Engine.HybridFloor:
				remoteRefs = append(remoteRefs, cellRef{row: r, col: col})
				remoteValues = append(remoteValues, v)
			default:
				if err := tbl.SetCell(r, col, out.Value); err != nil {
					return nil, fatal("write cell", err)
				}
				res.confidences = append(res.confidences, out.Confidence)
			}
		}
	}

	if len(remoteValues) > 0 {
		res.engine = model.EngineKindRemote
		res.notes = append(res.notes, fmt.Sprintf("%d values routed to remote classifier", len(remoteValues)))

		outcomes, usage, err := e.classifier.ClassifyBatch(ctx, recipeType, remoteValues)
		e.applyUsage(job, usage)
		if err != nil {
			return nil, fatal("remote classification", err)
		}

		for i, outcome := range outcomes {
			switch {
			case outcome.Err != nil:
				res.confidences = append(res.confidences, 0)
				failures++
			case outcome.Value == model.ClassifierUnknown:
				res.confidences = append(res.confidences, 0)
				failures++
			default:
				ref := remoteRefs[i]
				if err := tbl.SetCell(ref.row, ref.col, outcome.Value); err != nil {
					return nil, fatal("write cell", err)
				}
				res.confidences = append(res.confidences, outcome.Confidence)
			}
		}
	}

	res.outputSample = sampleColumn(tbl, indices[0])
	if failures > 0 {
		res.notes = append(res.notes, fmt.Sprintf("%d values failed", failures))
	}
	return res, nil
}

// stepSeniority classifies a job-title column into a derived seniority
// column appended to the table.
func (e *Engine) stepSeniority(ctx context.Context, job *model.Job, tbl *table.Table, column string) (*stepResult, error) {
	col := tbl.ColumnIndex(column)
	if col < 0 {
		return nil, fatalf("column %q does not exist", column)
	}

	res := &stepResult{engine: model.EngineKindRemote}
	res.inputSample = sampleColumn(tbl, col)

	var rowRefs []int
	var values []string
	for r := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return nil, fatal("job cancelled", err)
		}
		v := tbl.Cell(r, col)
		if strings.TrimSpace(v) == "" {
			continue
		}
		rowRefs = append(rowRefs, r)
		values = append(values, v)
	}

	seniorityCol := len(tbl.Headers)
	tbl.Headers = append(tbl.Headers, column+"_seniority")

	failures := 0
	if len(values) > 0 {
		outcomes, usage, err := e.classifier.ClassifyBatch(ctx, model.RecipeMapJobTitles, values)
		e.applyUsage(job, usage)
		if err != nil {
			return nil, fatal("remote classification", err)
		}

		for i, outcome := range outcomes {
			if outcome.Err != nil {
				res.confidences = append(res.confidences, 0)
				failures++
				continue
			}
			if err := tbl.SetCell(rowRefs[i], seniorityCol, outcome.Value); err != nil {
				return nil, fatal("write cell", err)
			}
			res.confidences = append(res.confidences, outcome.Confidence)
		}
	}

	// Derived column must exist on every row for a rectangular result.
	for r := range tbl.Rows {
		for len(tbl.Rows[r]) <= seniorityCol {
			tbl.Rows[r] = append(tbl.Rows[r], "")
		}
	}

	res.outputSample = sampleColumn(tbl, seniorityCol)
	if failures > 0 {
		res.notes = append(res.notes, fmt.Sprintf("%d titles could not be classified", failures))
	}
	return res, nil
}

func (e *Engine) stepStripSuffixes(tbl *table.Table, column string) (*stepResult, error) {
	col := tbl.ColumnIndex(column)
	if col < 0 {
		return nil, fatalf("column %q does not exist", column)
	}

	res := &stepResult{engine: model.EngineKindDeterministic}
	res.inputSample = sampleColumn(tbl, col)

	var suffixes []string
	if e.rules != nil {
		suffixes = e.rules.CompanySuffixes
	}

	stripped := 0
	for r := range tbl.Rows {
		v := tbl.Cell(r, col)
		if strings.TrimSpace(v) == "" {
			continue
		}
		out, changed := transform.StripCompanySuffix(v, suffixes)
		if changed {
			stripped++
		}
		if err := tbl.SetCell(r, col, out); err != nil {
			return nil, fatal("write cell", err)
		}
	}

	res.outputSample = sampleColumn(tbl, col)
	res.notes = append(res.notes, fmt.Sprintf("stripped legal suffixes from %d values", stripped))
	return res, nil
}

// stepRemoteColumn sends every non-empty value of one column to the remote
// classifier and writes the results in place.
func (e *Engine) stepRemoteColumn(ctx context.Context, job *model.Job, tbl *table.Table, column string, recipeType model.RecipeType) (*stepResult, error) {
	col := tbl.ColumnIndex(column)
	if col < 0 {
		return nil, fatalf("column %q does not exist", column)
	}

	res := &stepResult{engine: model.EngineKindRemote}
	res.inputSample = sampleColumn(tbl, col)

	var rowRefs []int
	var values []string
	for r := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return nil, fatal("job cancelled", err)
		}
		v := tbl.Cell(r, col)
		if strings.TrimSpace(v) == "" {
			continue
		}
		rowRefs = append(rowRefs, r)
		values = append(values, v)
	}

	failures := 0
	if len(values) > 0 {
		outcomes, usage, err := e.classifier.ClassifyBatch(ctx, recipeType, values)
		e.applyUsage(job, usage)
		if err != nil {
			return nil, fatal("remote classification", err)
		}

		for i, outcome := range outcomes {
			if outcome.Err != nil {
				res.confidences = append(res.confidences, 0)
				failures++
				continue
			}
			if err := tbl.SetCell(rowRefs[i], col, outcome.Value); err != nil {
				return nil, fatal("write cell", err)
			}
			res.confidences = append(res.confidences, outcome.Confidence)
		}
	}

	res.outputSample = sampleColumn(tbl, col)
	if failures > 0 {
		res.notes = append(res.notes, fmt.Sprintf("%d values failed", failures))
	}
	return res, nil
}

func (e *Engine) writeArtifacts(ctx context.Context, job *model.Job, result *table.Table) error {
	resultData, err := table.MarshalCSV(result)
	if err != nil {
		return fatal("render result", err)
	}
	resultKey, err := e.blobs.Put(ctx, job.ID, storage.KindResult, resultData)
	if err != nil {
		return fatal("write result artifact", err)
	}
	job.ResultKey = resultKey

	preview := buildPreview(result,
		e.cfg.Engine.PreviewHead, e.cfg.Engine.PreviewTail, e.cfg.Engine.PreviewRandom,
		job.ID)
	previewData, err := table.MarshalCSV(preview)
	if err != nil {
		return fatal("render preview", err)
	}
	previewKey, err := e.blobs.Put(ctx, job.ID, storage.KindPreview, previewData)
	if err != nil {
		return fatal("write preview artifact", err)
	}
	job.PreviewKey = previewKey
	return nil
}

func (e *Engine) applyUsage(job *model.Job, usage model.TokenUsage) {
	job.TokensIn += usage.InputTokens + usage.CacheCreationTokens + usage.CacheReadTokens
	job.TokensOut += usage.OutputTokens
	job.CostUSD += e.costs.Claude(e.cfg.Anthropic.Model, usage)
}

const sampleSize = 3

// sampleColumn collects a redacted sample of a column for the audit trail.
func sampleColumn(tbl *table.Table, col int) string {
	var vals []string
	for r := 0; r < len(tbl.Rows) && len(vals) < sampleSize; r++ {
		v := strings.TrimSpace(tbl.Cell(r, col))
		if v == "" {
			continue
		}
		vals = append(vals, redact.Redact(v, redact.MaskToken))
	}
	return strings.Join(vals, ", ")
}
