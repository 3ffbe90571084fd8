package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchHandler struct {
	matches *repository.MatchRepository
	records *repository.UsageRecordRepository
	log     *logger.Logger
}

func NewMatchHandler(matches *repository.MatchRepository, records *repository.UsageRecordRepository, log *logger.Logger) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		records: records,
		log:     log.With("handler", "matches"),
	}
}

// pageParams reads 1-based page and page_size query params with the
// defaults and caps every paginated endpoint shares.
func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ListByBatch returns one page of a batch's matches, filterable by
// match_type, min_confidence, and reviewed state.
func (h *MatchHandler) ListByBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	page, pageSize := pageParams(c)

	filter := repository.MatchFilter{MatchType: c.Query("match_type")}
	if raw := c.Query("min_confidence"); raw != "" {
		minConfidence, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_confidence"})
			return
		}
		filter.MinConfidence = &minConfidence
	}
	if raw := c.Query("max_confidence"); raw != "" {
		maxConfidence, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_confidence"})
			return
		}
		filter.MaxConfidence = &maxConfidence
	}
	if raw := c.Query("reviewed"); raw != "" {
		reviewed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reviewed flag"})
			return
		}
		filter.Reviewed = &reviewed
	}

	matches, total, err := h.matches.ListByBatch(batchID, filter, page, pageSize)
	if err != nil {
		h.log.Error("match listing failed", "batchID", batchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches":   matches,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ListUnmatched returns one page of a batch's usage records that have no
// match rows at all.
func (h *MatchHandler) ListUnmatched(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	page, pageSize := pageParams(c)

	records, total, err := h.records.ListUnmatched(batchID, page, pageSize)
	if err != nil {
		h.log.Error("unmatched listing failed", "batchID", batchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list unmatched records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Review confirms or rejects a match. Exactly one review flag ends up set.
func (h *MatchHandler) Review(c *gin.Context) {
	matchID, err := strconv.ParseInt(c.Param("matchId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Action != "confirm" && payload.Action != "reject" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Use 'confirm' or 'reject'"})
		return
	}

	if _, err := h.matches.Review(matchID, payload.Action == "confirm"); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		h.log.Error("review failed", "matchID", matchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to review match"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Match %sed successfully", payload.Action)})
}
