package repository

import (
	"time"

	"works-matching-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(batch *models.Batch) error {
	return r.db.Create(batch).Error
}

func (r *BatchRepository) GetByID(id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns one page of batches, newest first, with the total count.
func (r *BatchRepository) List(page, pageSize int, status string) ([]models.Batch, int64, error) {
	query := r.db.Model(&models.Batch{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []models.Batch
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&batches).Error
	return batches, total, err
}

func (r *BatchRepository) MarkProcessing(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.BatchProcessing,
			"started_at": now,
		}).Error
}

// UpdateProgress persists the running counters for a batch mid-processing.
func (r *BatchRepository) UpdateProgress(id uuid.UUID, processed, matched, flagged, unmatched int) error {
	return r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_records": processed,
			"matched_records":   matched,
			"flagged_records":   flagged,
			"unmatched_records": unmatched,
		}).Error
}

func (r *BatchRepository) MarkCompleted(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.BatchCompleted,
			"completed_at": now,
		}).Error
}

func (r *BatchRepository) MarkFailed(id uuid.UUID, message string) error {
	return r.db.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.BatchFailed,
			"error_message": message,
		}).Error
}

// Delete removes a batch with all of its usage records and matches.
func (r *BatchRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"usage_record_id IN (?)",
			tx.Model(&models.UsageRecord{}).Select("id").Where("batch_id = ?", id),
		).Delete(&models.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Where("batch_id = ?", id).Delete(&models.UsageRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Batch{}, "id = ?", id).Error
	})
}
