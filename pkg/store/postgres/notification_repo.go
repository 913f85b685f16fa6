package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetOrCreate returns the customer's preference row, creating it with
// defaults on first access.
func (r *PreferenceRepository) GetOrCreate(ctx context.Context, customerID string) (*model.NotificationPreference, error) {
	var pref model.NotificationPreference
	err := r.db.WithContext(ctx).First(&pref, "customer_id = ?", customerID).Error
	if err == nil {
		return &pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var customer model.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", customerID).Error; err != nil {
		return nil, err
	}

	created := model.DefaultPreference(customer.ID)
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PreferenceRepository) Update(ctx context.Context, pref *model.NotificationPreference) error {
	return r.db.WithContext(ctx).
		Model(&model.NotificationPreference{}).
		Where("customer_id = ?", pref.CustomerID).
		Updates(map[string]interface{}{
			"email_notifications":  pref.EmailNotifications,
			"sms_notifications":    pref.SMSNotifications,
			"job_status_updates":   pref.JobStatusUpdates,
			"delivery_updates":     pref.DeliveryUpdates,
			"promotional_messages": pref.PromotionalMessages,
		}).Error
}

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Append inserts one attempt row. The table is append-only; there is no
// update or delete path.
func (r *NotificationLogRepository) Append(ctx context.Context, entry *model.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

type LogQuery struct {
	CustomerID string
	Channel    string
	Status     string
	Limit      int
	Offset     int
}

func (r *NotificationLogRepository) Query(ctx context.Context, query LogQuery) ([]model.NotificationLog, int64, error) {
	var logs []model.NotificationLog
	var total int64

	dbQuery := r.db.WithContext(ctx).Model(&model.NotificationLog{})

	if query.CustomerID != "" {
		dbQuery = dbQuery.Where("customer_id = ?", query.CustomerID)
	}
	if query.Channel != "" {
		dbQuery = dbQuery.Where("channel = ?", query.Channel)
	}
	if query.Status != "" {
		dbQuery = dbQuery.Where("status = ?", query.Status)
	}

	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	err := dbQuery.
		Order("sent_at DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&logs).Error

	return logs, total, err
}
