package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UsageRecord is one row from an uploaded usage file. Rows are immutable
// once created and belong to exactly one batch.
type UsageRecord struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	BatchID         uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	RowNumber       int       `json:"row_number"`
	WorkTitle       string    `gorm:"size:500" json:"work_title,omitempty"`
	Songwriter      string    `gorm:"size:500" json:"songwriter,omitempty"`
	RecordingTitle  string    `gorm:"size:500" json:"recording_title,omitempty"`
	RecordingArtist string    `gorm:"size:500" json:"recording_artist,omitempty"`
	OriginalRow     datatypes.JSON `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}
