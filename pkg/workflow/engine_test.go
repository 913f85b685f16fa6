package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printdesk/printdesk/pkg/eventbus"
	"github.com/printdesk/printdesk/pkg/model"
)

type fakeStatusStore struct {
	statuses []model.WorkflowStatus
	listErr  error
}

func (f *fakeStatusStore) ListActive(ctx context.Context) ([]model.WorkflowStatus, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.statuses, nil
}

func (f *fakeStatusStore) GetByID(ctx context.Context, id uint) (*model.WorkflowStatus, error) {
	for i := range f.statuses {
		if f.statuses[i].ID == id {
			return &f.statuses[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStatusStore) GetCancelled(ctx context.Context) (*model.WorkflowStatus, error) {
	for i := range f.statuses {
		if f.statuses[i].Sequence == model.CancelledSequence {
			return &f.statuses[i], nil
		}
	}
	return nil, errors.New("not found")
}

type fakeJobStore struct {
	swapped   bool
	lastFrom  uint
	lastTo    *model.WorkflowStatus
	updateErr error
}

func (f *fakeJobStore) UpdateStatus(ctx context.Context, id string, fromStatusID uint, to *model.WorkflowStatus) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.lastFrom = fromStatusID
	f.lastTo = to
	return f.swapped, nil
}

type fakeBus struct {
	events []eventbus.Event
	err    error
}

func (f *fakeBus) Publish(ctx context.Context, channel string, event eventbus.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func pipeline() []model.WorkflowStatus {
	return []model.WorkflowStatus{
		{ID: 9, Name: "Cancelled", Sequence: 0, IsActive: true},
		{ID: 1, Name: "Pending", Sequence: 1, IsActive: true},
		{ID: 2, Name: "Received", Sequence: 2, IsActive: true},
		{ID: 3, Name: "Processing", Sequence: 3, IsActive: true},
	}
}

func testJob(statusID uint, name string) *model.Job {
	return &model.Job{
		ID:              uuid.New(),
		CustomerID:      uuid.New(),
		Title:           "Business cards",
		CurrentStatusID: statusID,
		Status:          name,
		TrackingCode:    "PD-TEST01",
	}
}

func TestNextStatusWalksSequence(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	next, err := engine.NextStatus(context.Background(), 2)
	if err != nil {
		t.Fatalf("NextStatus() error: %v", err)
	}
	if next == nil || next.Name != "Processing" {
		t.Fatalf("expected Processing, got %+v", next)
	}
}

func TestNextStatusNilAtFinalStage(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	next, err := engine.NextStatus(context.Background(), 3)
	if err != nil {
		t.Fatalf("NextStatus() error: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil at final stage, got %+v", next)
	}
}

func TestNextStatusNilOnGap(t *testing.T) {
	statuses := []model.WorkflowStatus{
		{ID: 1, Name: "Pending", Sequence: 1, IsActive: true},
		{ID: 3, Name: "Printing", Sequence: 4, IsActive: true},
	}
	engine := NewEngine(&fakeStatusStore{statuses: statuses}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	next, err := engine.NextStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("NextStatus() error: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil across sequence gap, got %+v", next)
	}
}

func TestNextStatusNeverReturnsSentinel(t *testing.T) {
	// A status at sequence -1 would make the sentinel its successor if the
	// sentinel were not excluded.
	statuses := []model.WorkflowStatus{
		{ID: 9, Name: "Cancelled", Sequence: 0, IsActive: true},
		{ID: 8, Name: "Draft", Sequence: -1, IsActive: true},
	}
	engine := NewEngine(&fakeStatusStore{statuses: statuses}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	next, err := engine.NextStatus(context.Background(), 8)
	if err != nil {
		t.Fatalf("NextStatus() error: %v", err)
	}
	if next != nil {
		t.Fatalf("sentinel must never be a forward target, got %+v", next)
	}
}

func TestNextStatusUnknownCurrent(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	next, err := engine.NextStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("NextStatus() error: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil for unknown status, got %+v", next)
	}
}

func TestNextStatusStoreError(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{listErr: errors.New("db down")}, &fakeJobStore{}, nil, zap.NewNop(), 3)

	if _, err := engine.NextStatus(context.Background(), 1); err == nil {
		t.Fatal("expected error when the status store is unreachable")
	}
}

func TestAdvanceMovesOneStep(t *testing.T) {
	jobs := &fakeJobStore{swapped: true}
	bus := &fakeBus{}
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, jobs, bus, zap.NewNop(), 3)

	job := testJob(2, "Received")
	updated, err := engine.Advance(context.Background(), job)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if updated.Status != "Processing" || updated.CurrentStatusID != 3 {
		t.Fatalf("expected Processing(3), got %s(%d)", updated.Status, updated.CurrentStatusID)
	}
	if jobs.lastFrom != 2 {
		t.Fatalf("expected CAS against status 2, got %d", jobs.lastFrom)
	}
	if len(bus.events) != 1 || bus.events[0].Type != eventbus.EventStatusUpdated {
		t.Fatalf("expected one status_updated event, got %+v", bus.events)
	}
}

func TestAdvanceAtFinalStageIsInformational(t *testing.T) {
	jobs := &fakeJobStore{swapped: true}
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, jobs, nil, zap.NewNop(), 3)

	job := testJob(3, "Processing")
	_, err := engine.Advance(context.Background(), job)
	if !errors.Is(err, ErrFinalStage) {
		t.Fatalf("expected ErrFinalStage, got %v", err)
	}
	if job.CurrentStatusID != 3 || job.Status != "Processing" {
		t.Fatalf("job must be unchanged at final stage, got %s(%d)", job.Status, job.CurrentStatusID)
	}
	if jobs.lastTo != nil {
		t.Fatal("no update must be issued at final stage")
	}
}

func TestAdvanceRejectsCancelledJob(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{swapped: true}, nil, zap.NewNop(), 3)

	job := testJob(9, "Cancelled")
	if _, err := engine.Advance(context.Background(), job); !errors.Is(err, ErrJobCancelled) {
		t.Fatalf("expected ErrJobCancelled, got %v", err)
	}
}

func TestAdvanceReportsLostRace(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{swapped: false}, nil, zap.NewNop(), 3)

	job := testJob(1, "Pending")
	if _, err := engine.Advance(context.Background(), job); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
}

func TestAdvanceSurvivesPublishFailure(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{swapped: true},
		&fakeBus{err: errors.New("redis down")}, zap.NewNop(), 3)

	job := testJob(1, "Pending")
	updated, err := engine.Advance(context.Background(), job)
	if err != nil {
		t.Fatalf("Advance() must not fail on publish error: %v", err)
	}
	if updated.Status != "Received" {
		t.Fatalf("expected Received, got %s", updated.Status)
	}
}

func TestCancelEarlyStageJob(t *testing.T) {
	jobs := &fakeJobStore{swapped: true}
	bus := &fakeBus{}
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, jobs, bus, zap.NewNop(), 3)

	job := testJob(2, "Received")
	updated, err := engine.Cancel(context.Background(), job)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if updated.Status != "Cancelled" || updated.CurrentStatusID != 9 {
		t.Fatalf("expected Cancelled(9), got %s(%d)", updated.Status, updated.CurrentStatusID)
	}
	if len(bus.events) != 1 || bus.events[0].Type != eventbus.EventJobCancelled {
		t.Fatalf("expected one job_cancelled event, got %+v", bus.events)
	}
}

func TestCancelRejectsLateStage(t *testing.T) {
	// Processing sits at the cutoff so the job is past the point of no return,
	// but it is not the final stage in this longer pipeline.
	statuses := append(pipeline(), model.WorkflowStatus{ID: 4, Name: "Printing", Sequence: 4, IsActive: true})
	engine := NewEngine(&fakeStatusStore{statuses: statuses}, &fakeJobStore{swapped: true}, nil, zap.NewNop(), 3)

	job := testJob(3, "Processing")
	if _, err := engine.Cancel(context.Background(), job); !errors.Is(err, ErrTooLateToCancel) {
		t.Fatalf("expected ErrTooLateToCancel, got %v", err)
	}
}

func TestCancelRejectsCompletedJob(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{swapped: true}, nil, zap.NewNop(), 5)

	job := testJob(3, "Processing") // highest sequence in this pipeline
	if _, err := engine.Cancel(context.Background(), job); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCancelRequiresSentinel(t *testing.T) {
	statuses := []model.WorkflowStatus{
		{ID: 1, Name: "Pending", Sequence: 1, IsActive: true},
		{ID: 2, Name: "Received", Sequence: 2, IsActive: true},
	}
	engine := NewEngine(&fakeStatusStore{statuses: statuses}, &fakeJobStore{swapped: true}, nil, zap.NewNop(), 3)

	job := testJob(1, "Pending")
	if _, err := engine.Cancel(context.Background(), job); !errors.Is(err, ErrNoCancelledStatus) {
		t.Fatalf("expected ErrNoCancelledStatus, got %v", err)
	}
}

func TestCancelRejectsCancelledJob(t *testing.T) {
	engine := NewEngine(&fakeStatusStore{statuses: pipeline()}, &fakeJobStore{swapped: true}, nil, zap.NewNop(), 3)

	job := testJob(9, "Cancelled")
	if _, err := engine.Cancel(context.Background(), job); !errors.Is(err, ErrJobCancelled) {
		t.Fatalf("expected ErrJobCancelled, got %v", err)
	}
}
