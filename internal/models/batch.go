package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch statuses.
const (
	BatchPending    = "pending"
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
)

type Batch struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string    `json:"filename"`
	TotalRecords     int       `json:"total_records"`
	ProcessedRecords int       `json:"processed_records"`
	MatchedRecords   int       `json:"matched_records"`
	FlaggedRecords   int       `json:"flagged_records"`
	UnmatchedRecords int       `json:"unmatched_records"`
	Status           string    `gorm:"index" json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (Batch) TableName() string {
	return "processing_batches"
}
