package repository

import (
	"strings"

	"works-matching-backend/internal/models"

	"gorm.io/gorm"
)

type WorkRepository struct {
	db *gorm.DB
}

func NewWorkRepository(db *gorm.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

func (r *WorkRepository) GetByID(id int64) (*models.Work, error) {
	var work models.Work
	if err := r.db.First(&work, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &work, nil
}

// GetAll loads the full catalog. The matching engine indexes works in
// memory, so this runs once at startup and after catalog reloads.
func (r *WorkRepository) GetAll() ([]models.Work, error) {
	var works []models.Work
	err := r.db.Find(&works).Error
	return works, err
}

// FindByNormalizedTitle returns works whose normalized title contains the
// given normalized title, capped at limit.
func (r *WorkRepository) FindByNormalizedTitle(title string, limit int) ([]models.Work, error) {
	var works []models.Work
	like := "%" + strings.ToLower(title) + "%"
	err := r.db.
		Where("LOWER(title_normalized) LIKE ?", like).
		Limit(limit).
		Find(&works).Error
	return works, err
}

func (r *WorkRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Work{}).Count(&count).Error
	return count, err
}
