package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, schedule *model.DeliverySchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*model.DeliverySchedule, error) {
	var schedule model.DeliverySchedule
	err := r.db.WithContext(ctx).
		Preload("Job").
		First(&schedule, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id string, status model.DeliveryStatus, driverNote string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if driverNote != "" {
		updates["driver_note"] = driverNote
	}

	result := r.db.WithContext(ctx).
		Model(&model.DeliverySchedule{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DeliveryRepository) ListByJob(ctx context.Context, jobID string) ([]model.DeliverySchedule, error) {
	var schedules []model.DeliverySchedule
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("scheduled_for ASC").
		Find(&schedules).Error
	return schedules, err
}
