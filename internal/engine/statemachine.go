package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/store"
)

// InvalidTransitionError is returned when a requested status change is not
// permitted. The job's persisted state is untouched.
type InvalidTransitionError struct {
	From model.JobStatus
	To   model.JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("engine: invalid transition %s -> %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return eris.As(err, &ite)
}

// engineTransitions are the status changes the engine itself may drive.
// Manual approval (needs_review -> complete) goes through Approve instead.
var engineTransitions = map[model.JobStatus]map[model.JobStatus]bool{
	model.JobStatusQueued: {
		model.JobStatusProcessing: true,
	},
	model.JobStatusProcessing: {
		model.JobStatusComplete:    true,
		model.JobStatusNeedsReview: true,
		model.JobStatusFailed:      true,
	},
}

// StateMachine owns job lifecycle writes. Nothing else persists a status
// change, which keeps the finished-iff-terminal invariant in one place.
type StateMachine struct {
	store store.Store
	now   func() time.Time
}

// NewStateMachine wires a state machine over the given store.
func NewStateMachine(s store.Store) *StateMachine {
	return &StateMachine{store: s, now: time.Now}
}

// Transition moves a job to the requested status and persists it, stamping
// StartedAt on entry to processing and FinishedAt on any terminal status.
// Invalid transitions return InvalidTransitionError with no partial writes.
func (m *StateMachine) Transition(ctx context.Context, job *model.Job, to model.JobStatus) error {
	if !engineTransitions[job.Status][to] {
		return &InvalidTransitionError{From: job.Status, To: to}
	}
	return m.persist(ctx, job, to)
}

// Approve records a trusted manual approval, moving a job out of
// needs_review. Any other starting status is an invalid transition.
func (m *StateMachine) Approve(ctx context.Context, job *model.Job) error {
	if job.Status != model.JobStatusNeedsReview {
		return &InvalidTransitionError{From: job.Status, To: model.JobStatusComplete}
	}
	return m.persist(ctx, job, model.JobStatusComplete)
}

func (m *StateMachine) persist(ctx context.Context, job *model.Job, to model.JobStatus) error {
	updated := *job
	from := job.Status
	updated.Status = to

	now := m.now().UTC()
	if to == model.JobStatusProcessing {
		updated.StartedAt = &now
	}
	if to.Terminal() && updated.FinishedAt == nil {
		updated.FinishedAt = &now
	}

	if err := m.store.UpdateJob(ctx, &updated); err != nil {
		return eris.Wrapf(err, "engine: persist transition %s -> %s", from, to)
	}
	*job = updated

	zap.L().Info("job transition",
		zap.String("job_id", job.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}
