package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type DeliveryMethod string

const (
	DeliveryCollection DeliveryMethod = "collection"
	DeliveryCourier    DeliveryMethod = "delivery"
)

type Job struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title            string          `gorm:"not null"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Customer         *Customer       `gorm:"foreignKey:CustomerID"`
	ServiceID        uuid.UUID       `gorm:"type:uuid;not null"`
	Service          *PrintService   `gorm:"foreignKey:ServiceID"`
	CurrentStatusID  uint            `gorm:"not null;index"`
	CurrentStatus    *WorkflowStatus `gorm:"foreignKey:CurrentStatusID"`
	Status           string          `gorm:"not null"` // denormalized status name
	DeliveryMethod   DeliveryMethod  `gorm:"type:varchar(20);default:'collection'"`
	TrackingCode     string          `gorm:"uniqueIndex;not null"`
	Quantity         int             `gorm:"default:1"`
	FinishingOptions pq.StringArray  `gorm:"type:text[]"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}
