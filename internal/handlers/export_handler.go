package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/models"
	"works-matching-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExportHandler struct {
	matches *repository.MatchRepository
	records *repository.UsageRecordRepository
	log     *logger.Logger
}

func NewExportHandler(matches *repository.MatchRepository, records *repository.UsageRecordRepository, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		matches: matches,
		records: records,
		log:     log.With("handler", "export"),
	}
}

// Unmatched streams a CSV of every usage record with no match.
func (h *ExportHandler) Unmatched(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	records, err := h.records.AllUnmatched(batchID)
	if err != nil {
		h.log.Error("unmatched export failed", "batchID", batchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export unmatched records"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=unmatched_%s.csv", batchID))

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"Row Number", "Recording Title", "Recording Artist", "Work Title", "Songwriter"})
	for _, rec := range records {
		_ = writer.Write([]string{
			strconv.Itoa(rec.RowNumber),
			rec.RecordingTitle,
			rec.RecordingArtist,
			rec.WorkTitle,
			rec.Songwriter,
		})
	}
	writer.Flush()
}

// Flagged streams a CSV of every unreviewed medium/low confidence match.
func (h *ExportHandler) Flagged(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	matches, err := h.matches.AllFlagged(batchID)
	if err != nil {
		h.log.Error("flagged export failed", "batchID", batchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export flagged matches"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=flagged_%s.csv", batchID))

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{
		"Row Number", "Usage Title", "Usage Songwriter",
		"Matched Work Code", "Matched Work Title", "Matched Songwriters",
		"Confidence Score", "Match Type", "AI Reasoning",
	})
	for _, m := range matches {
		usageTitle := m.UsageRecord.WorkTitle
		if usageTitle == "" {
			usageTitle = m.UsageRecord.RecordingTitle
		}
		_ = writer.Write([]string{
			strconv.Itoa(m.UsageRecord.RowNumber),
			usageTitle,
			m.UsageRecord.Songwriter,
			m.Work.WorkCode,
			m.Work.Title,
			joinSongwriters(m.Work),
			fmt.Sprintf("%.2f%%", m.ConfidenceScore*100),
			m.MatchType,
			m.AIReasoning,
		})
	}
	writer.Flush()
}

func joinSongwriters(work models.Work) string {
	var names []string
	if len(work.Songwriters) > 0 {
		_ = json.Unmarshal(work.Songwriters, &names)
	}
	return strings.Join(names, "; ")
}
