package model

import "time"

// CancelledSequence marks the out-of-band Cancelled sentinel. It is the only
// status allowed to carry sequence 0 and is never a forward-progression target.
const CancelledSequence = 0

type WorkflowStatus struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;not null"`
	Sequence  int    `gorm:"not null;index"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WorkflowStatus) TableName() string {
	return "workflow_statuses"
}

func (s *WorkflowStatus) IsCancelled() bool {
	return s.Sequence == CancelledSequence
}
