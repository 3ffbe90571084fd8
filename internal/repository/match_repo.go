package repository

import (
	"time"

	"works-matching-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) CreateBatch(matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return r.db.Create(&matches).Error
}

func (r *MatchRepository) GetByID(id int64) (*models.Match, error) {
	var match models.Match
	if err := r.db.Preload("UsageRecord").Preload("Work").
		First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// MatchFilter narrows a batch match listing. Reviewed=nil means no filter on
// review state; Reviewed=false selects rows with neither flag set.
// MaxConfidence is exclusive, so the flagged view's upper bound does not
// overlap the matched view's inclusive lower bound.
type MatchFilter struct {
	MatchType     string
	MinConfidence *float64
	MaxConfidence *float64
	Reviewed      *bool
}

func (r *MatchRepository) batchQuery(batchID uuid.UUID, filter MatchFilter) *gorm.DB {
	query := r.db.Model(&models.Match{}).
		Joins("JOIN usage_records ON usage_records.id = match_results.usage_record_id").
		Where("usage_records.batch_id = ?", batchID)

	if filter.MatchType != "" {
		query = query.Where("match_results.match_type = ?", filter.MatchType)
	}
	if filter.MinConfidence != nil {
		query = query.Where("match_results.confidence_score >= ?", *filter.MinConfidence)
	}
	if filter.MaxConfidence != nil {
		query = query.Where("match_results.confidence_score < ?", *filter.MaxConfidence)
	}
	if filter.Reviewed != nil {
		if *filter.Reviewed {
			query = query.Where("match_results.is_confirmed = ? OR match_results.is_rejected = ?", true, true)
		} else {
			query = query.Where("match_results.is_confirmed = ? AND match_results.is_rejected = ?", false, false)
		}
	}
	return query
}

// ListByBatch returns one page of matches for a batch, highest confidence
// first, with their usage record and work loaded.
func (r *MatchRepository) ListByBatch(batchID uuid.UUID, filter MatchFilter, page, pageSize int) ([]models.Match, int64, error) {
	var total int64
	if err := r.batchQuery(batchID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var matches []models.Match
	err := r.batchQuery(batchID, filter).
		Preload("UsageRecord").
		Preload("Work").
		Order("match_results.confidence_score DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&matches).Error
	return matches, total, err
}

// Review sets exactly one of the review flags and stamps the review time.
func (r *MatchRepository) Review(id int64, confirm bool) (*models.Match, error) {
	var match models.Match
	if err := r.db.First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	match.IsConfirmed = confirm
	match.IsRejected = !confirm
	match.ReviewedAt = &now
	if err := r.db.Save(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// AllFlagged returns every unreviewed medium/low confidence match for a
// batch, for CSV export.
func (r *MatchRepository) AllFlagged(batchID uuid.UUID) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.Model(&models.Match{}).
		Joins("JOIN usage_records ON usage_records.id = match_results.usage_record_id").
		Where("usage_records.batch_id = ?", batchID).
		Where("match_results.match_type IN ?", []string{models.MatchMediumConfidence, models.MatchLowConfidence}).
		Where("match_results.is_confirmed = ? AND match_results.is_rejected = ?", false, false).
		Preload("UsageRecord").
		Preload("Work").
		Order("match_results.confidence_score DESC").
		Find(&matches).Error
	return matches, err
}
