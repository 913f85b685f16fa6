package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Service").
		Preload("CurrentStatus").
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByTrackingCode(ctx context.Context, code string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Preload("CurrentStatus").
		First(&job, "tracking_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus persists a transition with a compare-and-swap on the previous
// status id. A zero rows-affected result means a concurrent writer moved the
// job first.
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, fromStatusID uint, to *model.WorkflowStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND current_status_id = ?", id, fromStatusID).
		Updates(map[string]interface{}{
			"current_status_id": to.ID,
			"status":            to.Name,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *JobRepository) List(ctx context.Context, customerID string, statusID *uint, limit, offset int) ([]model.Job, int64, error) {
	var jobs []model.Job
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Job{})

	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if statusID != nil {
		query = query.Where("current_status_id = ?", *statusID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("CurrentStatus").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error

	return jobs, total, err
}
