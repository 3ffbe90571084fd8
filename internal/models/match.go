package models

import "time"

// Match types assigned by the matching engine. AIMatched is reserved for
// upstream-adjudicated matches and is never produced by the engine itself.
const (
	MatchExact            = "exact"
	MatchHighConfidence   = "high_confidence"
	MatchMediumConfidence = "medium_confidence"
	MatchLowConfidence    = "low_confidence"
	MatchAIMatched        = "ai_matched"
)

type Match struct {
	ID                   int64    `gorm:"primaryKey" json:"id"`
	UsageRecordID        int64    `gorm:"index" json:"usage_record_id"`
	WorkID               int64    `gorm:"index" json:"work_id"`
	ConfidenceScore      float64  `gorm:"index" json:"confidence_score"`
	MatchType            string   `gorm:"size:50;index" json:"match_type"`
	TitleSimilarity      *float64 `json:"title_similarity,omitempty"`
	SongwriterSimilarity *float64 `json:"songwriter_similarity,omitempty"`
	VectorSimilarity     *float64 `json:"vector_similarity,omitempty"`
	AIReasoning          string   `json:"ai_reasoning,omitempty"`
	IsConfirmed          bool     `json:"is_confirmed"`
	IsRejected           bool     `json:"is_rejected"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`

	UsageRecord UsageRecord `gorm:"foreignKey:UsageRecordID;constraint:OnDelete:CASCADE" json:"usage_record"`
	Work        Work        `gorm:"foreignKey:WorkID" json:"work"`
}

// Reviewed reports whether either review flag has been set.
func (m *Match) Reviewed() bool {
	return m.IsConfirmed || m.IsRejected
}

func (Match) TableName() string {
	return "match_results"
}
