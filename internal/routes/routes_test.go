package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"works-matching-backend/internal/client"
	"works-matching-backend/internal/config"
	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Work{},
		&models.Batch{},
		&models.UsageRecord{},
		&models.Match{},
	))

	seedWorks(t, db)

	cfg := &config.Config{
		MaxFileSizeMB:   10,
		ExactThreshold:  0.95,
		HighThreshold:   0.85,
		MediumThreshold: 0.70,
		LowThreshold:    0.50,
	}

	r := gin.New()
	require.NoError(t, RegisterRoutes(r, db, cfg, logger.NewNop()))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, db
}

func seedWorks(t *testing.T, db *gorm.DB) {
	t.Helper()
	works := []models.Work{
		{WorkCode: "W001", Title: "Yesterday", TitleNormalized: "yesterday", Songwriters: []byte(`["paul mccartney"]`)},
		{WorkCode: "W002", Title: "Imagine", TitleNormalized: "imagine", Songwriters: []byte(`["john lennon"]`)},
	}
	for i := range works {
		require.NoError(t, db.Create(&works[i]).Error)
	}
}

// usageFile builds a file whose rows land deterministically in the three
// populations: exact title and writer hits matched, exact title with a wrong
// writer scores in the review band, and a title unlike anything in the
// catalog stays unmatched.
func usageFile(matched, flagged, unmatched int) []byte {
	var sb strings.Builder
	sb.WriteString("Work Title,Songwriter\n")
	for i := 0; i < matched; i++ {
		sb.WriteString("Yesterday,Paul McCartney\n")
	}
	for i := 0; i < flagged; i++ {
		sb.WriteString("Imagine,Somebody Else\n")
	}
	for i := 0; i < unmatched; i++ {
		sb.WriteString("Zzyzx Boulevard Polka,Nobody Known\n")
	}
	return []byte(sb.String())
}

func uploadFile(t *testing.T, c *client.Client, raw []byte) *client.UploadResult {
	t.Helper()
	result, err := c.Upload(context.Background(), "usage.csv", bytes.NewReader(raw), nil)
	require.NoError(t, err)
	return result
}

func TestUploadStreamReportsCompleteBatch(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())

	var events []client.ProgressEvent
	result, err := c.Upload(context.Background(), "usage.csv", bytes.NewReader(usageFile(3, 2, 1)),
		func(ev client.ProgressEvent) { events = append(events, ev) })
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRecords)
	assert.Equal(t, result.TotalRecords, result.Matched+result.Flagged+result.Unmatched)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 2, result.Flagged)
	assert.Equal(t, 1, result.Unmatched)

	require.NotEmpty(t, events)
	assert.Equal(t, client.StageParsing, events[0].Stage)
	assert.Equal(t, client.StageComplete, events[len(events)-1].Stage)
	assert.Equal(t, 100.0, events[len(events)-1].DisplayPercent)

	batch, err := c.GetBatch(context.Background(), result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, "completed", batch.Status)
	assert.Equal(t, 6, batch.TotalRecords)
	assert.Equal(t, batch.TotalRecords, batch.MatchedRecords+batch.FlaggedRecords+batch.UnmatchedRecords)
}

func TestMatchedAndFlaggedViewsAreDisjoint(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	result := uploadFile(t, c, usageFile(3, 2, 1))

	pages := client.NewPageView(c, result.BatchID)

	matchedPage, err := pages.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, matchedPage.Total)
	matchedIDs := map[int64]bool{}
	for _, m := range matchedPage.Matches {
		matchedIDs[m.ID] = true
		assert.GreaterOrEqual(t, m.ConfidenceScore, 0.85)
	}

	pages.SetView(client.ViewFlagged)
	flaggedPage, err := pages.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaggedPage.Total)
	for _, m := range flaggedPage.Matches {
		assert.False(t, matchedIDs[m.ID], "match %d appears in both views", m.ID)
		assert.GreaterOrEqual(t, m.ConfidenceScore, 0.50)
		assert.Less(t, m.ConfidenceScore, 0.85)
		assert.False(t, m.Reviewed())
	}

	pages.SetView(client.ViewUnmatched)
	unmatchedPage, err := pages.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, unmatchedPage.Total)
	require.Len(t, unmatchedPage.Records, 1)
	assert.Equal(t, "Zzyzx Boulevard Polka", unmatchedPage.Records[0].WorkTitle)
}

func TestReviewedMatchLeavesFlaggedView(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	result := uploadFile(t, c, usageFile(1, 2, 0))

	pages := client.NewPageView(c, result.BatchID)
	pages.SetView(client.ViewFlagged)

	before, err := pages.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, before.Matches, 2)
	target := before.Matches[0].ID

	require.NoError(t, c.ReviewMatch(context.Background(), target, "confirm"))
	pages.Invalidate()

	after, err := pages.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, after.Total)
	for _, m := range after.Matches {
		assert.NotEqual(t, target, m.ID)
	}
}

func TestReviewRejectsUnknownAction(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	result := uploadFile(t, c, usageFile(0, 1, 0))

	pages := client.NewPageView(c, result.BatchID)
	pages.SetView(client.ViewFlagged)
	page, err := pages.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, page.Matches)

	err = c.ReviewMatch(context.Background(), page.Matches[0].ID, "approve")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())

	validation, err := c.Validate(context.Background(), "usage.csv", bytes.NewReader(usageFile(4, 2, 1)))
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Equal(t, 7, validation.TotalRecords)
	assert.Len(t, validation.SampleRecords, 5)
	assert.Contains(t, validation.DetectedColumns, "work_title")
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())

	_, err := c.Upload(context.Background(), "usage.xlsx", bytes.NewReader(usageFile(1, 0, 0)), nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestUploadErrorFrameForEmptyFile(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())

	_, err := c.Upload(context.Background(), "bad.csv", strings.NewReader("Territory\nGB\n"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrProcessingFailed))
}

func TestDeleteBatchRemovesRecordsAndMatches(t *testing.T) {
	srv, db := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	result := uploadFile(t, c, usageFile(2, 1, 1))

	require.NoError(t, c.DeleteBatch(context.Background(), result.BatchID))

	_, err := c.GetBatch(context.Background(), result.BatchID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	var records, matches int64
	require.NoError(t, db.Model(&models.UsageRecord{}).Count(&records).Error)
	require.NoError(t, db.Model(&models.Match{}).Count(&matches).Error)
	assert.Zero(t, records)
	assert.Zero(t, matches)
}

func TestBatchListFiltersByStatus(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	uploadFile(t, c, usageFile(1, 0, 0))
	uploadFile(t, c, usageFile(0, 1, 0))

	list, err := c.ListBatches(context.Background(), 1, 20, "completed")
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	empty, err := c.ListBatches(context.Background(), 1, 20, "failed")
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestExportUnmatchedCSV(t *testing.T) {
	srv, _ := testServer(t)
	c := client.New(srv.URL, logger.NewNop())
	result := uploadFile(t, c, usageFile(1, 0, 2))

	var buf bytes.Buffer
	require.NoError(t, c.DownloadExport(context.Background(), c.ExportUnmatchedURL(result.BatchID), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header plus one line per unmatched record.
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Zzyzx Boulevard Polka")
}
