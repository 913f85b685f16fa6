package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryScheduled      DeliveryStatus = "scheduled"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryFailed         DeliveryStatus = "failed"
)

type DeliverySchedule struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Job          *Job           `gorm:"foreignKey:JobID"`
	ScheduledFor time.Time      `gorm:"not null"`
	Address      string         `gorm:"not null"`
	Status       DeliveryStatus `gorm:"type:varchar(30);default:'scheduled';index"`
	DriverNote   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
