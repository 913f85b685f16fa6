package model

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationPreference is one row per customer, created lazily with
// defaults on first access and mutated only by the customer.
type NotificationPreference struct {
	CustomerID          uuid.UUID `gorm:"type:uuid;primary_key"`
	EmailNotifications  bool      `gorm:"not null;default:true"`
	SMSNotifications    bool      `gorm:"not null;default:false"`
	JobStatusUpdates    bool      `gorm:"not null;default:true"`
	DeliveryUpdates     bool      `gorm:"not null;default:true"`
	PromotionalMessages bool      `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func DefaultPreference(customerID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		CustomerID:         customerID,
		EmailNotifications: true,
		SMSNotifications:   false,
		JobStatusUpdates:   true,
		DeliveryUpdates:    true,
	}
}

// NotificationLog is append-only: exactly one row per channel attempt,
// success or failure. Rows are never updated or deleted.
type NotificationLog struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"`
	CustomerID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Channel            Channel   `gorm:"type:varchar(10);not null"`
	Event              string    `gorm:"not null"`
	RecipientEmail     string
	RecipientPhone     string
	Subject            string
	Message            string `gorm:"type:text"`
	Status             string `gorm:"type:varchar(10);not null;index"`
	ExternalID         string
	ErrorMessage       string
	JobID              *uuid.UUID `gorm:"type:uuid;index"`
	DeliveryScheduleID *uuid.UUID `gorm:"type:uuid"`
	SentAt             time.Time  `gorm:"autoCreateTime;not null"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
