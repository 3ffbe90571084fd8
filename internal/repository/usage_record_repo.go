package repository

import (
	"works-matching-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsageRecordRepository struct {
	db *gorm.DB
}

func NewUsageRecordRepository(db *gorm.DB) *UsageRecordRepository {
	return &UsageRecordRepository{db: db}
}

func (r *UsageRecordRepository) CreateBatch(records []models.UsageRecord) ([]models.UsageRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	if err := r.db.Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *UsageRecordRepository) unmatchedQuery(batchID uuid.UUID) *gorm.DB {
	matched := r.db.Model(&models.Match{}).Distinct("usage_record_id")
	return r.db.Model(&models.UsageRecord{}).
		Where("batch_id = ?", batchID).
		Where("id NOT IN (?)", matched)
}

// ListUnmatched returns one page of usage records with no match rows,
// ordered by row number, plus the total unmatched count.
func (r *UsageRecordRepository) ListUnmatched(batchID uuid.UUID, page, pageSize int) ([]models.UsageRecord, int64, error) {
	var total int64
	if err := r.unmatchedQuery(batchID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.UsageRecord
	err := r.unmatchedQuery(batchID).
		Order("row_number ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}

// AllUnmatched returns every unmatched record for a batch, for CSV export.
func (r *UsageRecordRepository) AllUnmatched(batchID uuid.UUID) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.unmatchedQuery(batchID).
		Order("row_number ASC").
		Find(&records).Error
	return records, err
}
