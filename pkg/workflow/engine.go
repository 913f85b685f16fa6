// Package workflow walks a job through the administrator-defined ordered
// status sequence. Forward progression is strictly single-step by sequence;
// cancellation is a one-way jump to the sequence-0 sentinel.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/metrics"
	"github.com/printdesk/printdesk/pkg/model"
)

var (
	// ErrFinalStage reports a job already at the last stage. Informational,
	// not a failure.
	ErrFinalStage = errors.New("job is already at the final stage")

	ErrJobCancelled      = errors.New("job has been cancelled")
	ErrAlreadyCompleted  = errors.New("completed jobs cannot be cancelled")
	ErrTooLateToCancel   = errors.New("job is too far along to cancel")
	ErrNoCancelledStatus = errors.New("cancelled status is not configured")
	ErrUnknownStatus     = errors.New("job status not recognized")

	// ErrStatusChanged reports a lost compare-and-swap: another writer moved
	// the job between read and update.
	ErrStatusChanged = errors.New("job status changed concurrently")
)

type StatusStore interface {
	ListActive(ctx context.Context) ([]model.WorkflowStatus, error)
	GetByID(ctx context.Context, id uint) (*model.WorkflowStatus, error)
	GetCancelled(ctx context.Context) (*model.WorkflowStatus, error)
}

type JobStore interface {
	UpdateStatus(ctx context.Context, id string, fromStatusID uint, to *model.WorkflowStatus) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

type Engine struct {
	statuses     StatusStore
	jobs         JobStore
	bus          Publisher
	logger       *zap.Logger
	cancelCutoff int
}

// NewEngine wires the transition controller. bus may be nil; event publishing
// is best-effort either way. cancelCutoff is the first sequence at which
// cancellation is no longer allowed.
func NewEngine(statuses StatusStore, jobs JobStore, bus Publisher, logger *zap.Logger, cancelCutoff int) *Engine {
	if cancelCutoff <= 0 {
		cancelCutoff = 3
	}
	return &Engine{
		statuses:     statuses,
		jobs:         jobs,
		bus:          bus,
		logger:       logger,
		cancelCutoff: cancelCutoff,
	}
}

// NextStatus returns the active status whose sequence immediately follows the
// current one, excluding the Cancelled sentinel. A nil result with nil error
// means there is no forward step: the current status is unknown or the job is
// at the last stage.
func (e *Engine) NextStatus(ctx context.Context, currentStatusID uint) (*model.WorkflowStatus, error) {
	statuses, err := e.statuses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}

	var current *model.WorkflowStatus
	for i := range statuses {
		if statuses[i].ID == currentStatusID {
			current = &statuses[i]
			break
		}
	}
	if current == nil {
		return nil, nil
	}

	for i := range statuses {
		candidate := &statuses[i]
		if candidate.Sequence <= model.CancelledSequence {
			continue
		}
		if candidate.Sequence == current.Sequence+1 {
			return candidate, nil
		}
	}
	return nil, nil
}

// Advance moves the job one step forward and publishes a status_updated
// event. The committed transition is the source of truth; a publish failure
// is logged and never rolls it back.
func (e *Engine) Advance(ctx context.Context, job *model.Job) (*model.Job, error) {
	current, err := e.currentStatus(ctx, job)
	if err != nil {
		return nil, err
	}
	if current.IsCancelled() {
		return nil, ErrJobCancelled
	}

	next, err := e.NextStatus(ctx, job.CurrentStatusID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, ErrFinalStage
	}

	swapped, err := e.jobs.UpdateStatus(ctx, job.ID.String(), job.CurrentStatusID, next)
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	if !swapped {
		return nil, ErrStatusChanged
	}

	metrics.StatusTransitions.WithLabelValues(current.Name, next.Name).Inc()

	job.CurrentStatusID = next.ID
	job.CurrentStatus = next
	job.Status = next.Name

	e.publishJobEvent(ctx, eventbus.EventStatusUpdated, job)
	return job, nil
}

// Cancel short-circuits the job to the Cancelled sentinel, bypassing the
// sequence order. Completed jobs and jobs at or past the cutoff stage reject.
func (e *Engine) Cancel(ctx context.Context, job *model.Job) (*model.Job, error) {
	current, err := e.currentStatus(ctx, job)
	if err != nil {
		return nil, err
	}
	if current.IsCancelled() {
		return nil, ErrJobCancelled
	}

	final, err := e.finalSequence(ctx)
	if err != nil {
		return nil, err
	}
	if current.Sequence == final {
		return nil, ErrAlreadyCompleted
	}
	if current.Sequence >= e.cancelCutoff {
		return nil, ErrTooLateToCancel
	}

	sentinel, err := e.statuses.GetCancelled(ctx)
	if err != nil {
		return nil, ErrNoCancelledStatus
	}

	swapped, err := e.jobs.UpdateStatus(ctx, job.ID.String(), job.CurrentStatusID, sentinel)
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	if !swapped {
		return nil, ErrStatusChanged
	}

	metrics.StatusTransitions.WithLabelValues(current.Name, sentinel.Name).Inc()

	job.CurrentStatusID = sentinel.ID
	job.CurrentStatus = sentinel
	job.Status = sentinel.Name

	e.publishJobEvent(ctx, eventbus.EventJobCancelled, job)
	return job, nil
}

func (e *Engine) currentStatus(ctx context.Context, job *model.Job) (*model.WorkflowStatus, error) {
	current, err := e.statuses.GetByID(ctx, job.CurrentStatusID)
	if err != nil {
		return nil, ErrUnknownStatus
	}
	return current, nil
}

func (e *Engine) finalSequence(ctx context.Context) (int, error) {
	statuses, err := e.statuses.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list statuses: %w", err)
	}
	final := 0
	for _, status := range statuses {
		if status.Sequence > final {
			final = status.Sequence
		}
	}
	return final, nil
}

func (e *Engine) publishJobEvent(ctx context.Context, eventType string, job *model.Job) {
	if e.bus == nil {
		return
	}
	payload := eventbus.JobEvent{
		JobID:        job.ID.String(),
		CustomerID:   job.CustomerID.String(),
		Status:       job.Status,
		TrackingCode: job.TrackingCode,
	}
	event, err := eventbus.NewEvent(eventType, payload)
	if err != nil {
		e.logger.Warn("failed to encode job event", zap.Error(err))
		return
	}
	if err := e.bus.Publish(ctx, eventbus.ChannelJob, event); err != nil {
		e.logger.Warn("failed to publish job event",
			zap.String("event", eventType),
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
	}
}
