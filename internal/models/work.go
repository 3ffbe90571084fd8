package models

import (
	"time"

	"gorm.io/datatypes"
)

// Work is a catalog composition entry. The catalog is seeded externally and
// read-only from this service's perspective.
type Work struct {
	ID                    int64  `gorm:"primaryKey" json:"id"`
	WorkCode              string `gorm:"size:50;uniqueIndex" json:"work_code"`
	Title                 string `gorm:"size:500" json:"title"`
	TitleNormalized       string `gorm:"size:500;index" json:"-"`
	Songwriters           datatypes.JSON `json:"songwriters"`
	SongwritersNormalized datatypes.JSON `json:"-"`
	AlternativeTitles     datatypes.JSON `json:"alternative_titles,omitempty"`
	Publishers            datatypes.JSON `json:"publishers,omitempty"`
	ISWC                  string `gorm:"size:20" json:"iswc,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
