package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
)

type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) ListActive(ctx context.Context) ([]model.WorkflowStatus, error) {
	var statuses []model.WorkflowStatus
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sequence ASC").
		Find(&statuses).Error
	return statuses, err
}

func (r *StatusRepository) GetByID(ctx context.Context, id uint) (*model.WorkflowStatus, error) {
	var status model.WorkflowStatus
	err := r.db.WithContext(ctx).First(&status, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetCancelled resolves the Cancelled sentinel by its reserved sequence
// rather than a hardcoded id.
func (r *StatusRepository) GetCancelled(ctx context.Context) (*model.WorkflowStatus, error) {
	var status model.WorkflowStatus
	err := r.db.WithContext(ctx).
		First(&status, "sequence = ? AND is_active = ?", model.CancelledSequence, true).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetInitial returns the lowest-sequence active status excluding the sentinel.
func (r *StatusRepository) GetInitial(ctx context.Context) (*model.WorkflowStatus, error) {
	var status model.WorkflowStatus
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND sequence > ?", true, model.CancelledSequence).
		Order("sequence ASC").
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *StatusRepository) Create(ctx context.Context, status *model.WorkflowStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

func (r *StatusRepository) Update(ctx context.Context, status *model.WorkflowStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkflowStatus{}).
		Where("id = ?", status.ID).
		Updates(map[string]interface{}{
			"name":      status.Name,
			"sequence":  status.Sequence,
			"is_active": status.IsActive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Referenced reports whether any job still points at the status. Statuses are
// never deleted while referenced.
func (r *StatusRepository) Referenced(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("current_status_id = ?", id).
		Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return count > 0, nil
}
