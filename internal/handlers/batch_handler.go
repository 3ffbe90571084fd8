package handlers

import (
	"errors"
	"net/http"

	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchHandler struct {
	batches *repository.BatchRepository
	log     *logger.Logger
}

func NewBatchHandler(batches *repository.BatchRepository, log *logger.Logger) *BatchHandler {
	return &BatchHandler{batches: batches, log: log.With("handler", "batches")}
}

func (h *BatchHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	status := c.Query("status")

	batches, total, err := h.batches.List(page, pageSize, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches":   batches,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *BatchHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	batch, err := h.batches.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// Delete removes a batch and everything derived from it.
func (h *BatchHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	if _, err := h.batches.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load batch"})
		return
	}

	if err := h.batches.Delete(id); err != nil {
		h.log.Error("batch delete failed", "batchID", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete batch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Batch deleted successfully"})
}
