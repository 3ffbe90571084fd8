// Package client is the Go SDK for the works-matching backend. It drives the
// streamed upload pipeline and the review surface over its results: the
// progress stream consumer, the batch read cache, the tabbed pagination
// engine, and the review action controller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"works-matching-backend/internal/logger"
)

// Batch mirrors the server's batch aggregate. Counters are authoritative on
// the server; the client never computes them locally.
type Batch struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	TotalRecords     int        `json:"total_records"`
	ProcessedRecords int        `json:"processed_records"`
	MatchedRecords   int        `json:"matched_records"`
	FlaggedRecords   int        `json:"flagged_records"`
	UnmatchedRecords int        `json:"unmatched_records"`
	Status           string     `json:"status"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type UsageRecord struct {
	ID              int64  `json:"id"`
	BatchID         string `json:"batch_id"`
	RowNumber       int    `json:"row_number"`
	WorkTitle       string `json:"work_title,omitempty"`
	Songwriter      string `json:"songwriter,omitempty"`
	RecordingTitle  string `json:"recording_title,omitempty"`
	RecordingArtist string `json:"recording_artist,omitempty"`
}

type Work struct {
	ID          int64    `json:"id"`
	WorkCode    string   `json:"work_code"`
	Title       string   `json:"title"`
	Songwriters []string `json:"songwriters"`
	ISWC        string   `json:"iswc,omitempty"`
}

type Match struct {
	ID                   int64       `json:"id"`
	ConfidenceScore      float64     `json:"confidence_score"`
	MatchType            string      `json:"match_type"`
	TitleSimilarity      *float64    `json:"title_similarity,omitempty"`
	SongwriterSimilarity *float64    `json:"songwriter_similarity,omitempty"`
	VectorSimilarity     *float64    `json:"vector_similarity,omitempty"`
	AIReasoning          string      `json:"ai_reasoning,omitempty"`
	IsConfirmed          bool        `json:"is_confirmed"`
	IsRejected           bool        `json:"is_rejected"`
	ReviewedAt           *time.Time  `json:"reviewed_at,omitempty"`
	UsageRecord          UsageRecord `json:"usage_record"`
	Work                 Work        `json:"work"`
}

// Reviewed reports whether either review flag is set.
func (m *Match) Reviewed() bool {
	return m.IsConfirmed || m.IsRejected
}

// ConfidenceTier buckets a score for display coloring. This is independent
// of MatchType, which is assigned upstream and may disagree.
func (m *Match) ConfidenceTier() string {
	switch {
	case m.ConfidenceScore >= 0.85:
		return "high"
	case m.ConfidenceScore >= 0.70:
		return "medium"
	default:
		return "low"
	}
}

type BatchList struct {
	Batches  []Batch `json:"batches"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type MatchList struct {
	Matches  []Match `json:"matches"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

type UnmatchedList struct {
	Records  []UsageRecord `json:"records"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type Validation struct {
	Valid           bool          `json:"valid"`
	TotalRecords    int           `json:"total_records"`
	SampleRecords   []UsageRecord `json:"sample_records"`
	DetectedColumns []string      `json:"detected_columns"`
	Error           string        `json:"error,omitempty"`
}

// APIError carries the server-provided message for a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the backend API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		// No overall timeout: the upload stream stays open for the whole
		// processing pipeline.
		httpClient: &http.Client{},
		log:        log.With("component", "client"),
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Error != "" {
			message = payload.Error
		} else if payload.Message != "" {
			message = payload.Message
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func multipartBody(filename string, content io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// Upload submits a usage file and consumes the progress stream, invoking
// onEvent for every frame. It returns the terminal result once the server
// reports complete, or an error for transport failures and error frames.
// A dropped connection is not resumable; callers must re-upload.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, onEvent func(ProgressEvent)) (*UploadResult, error) {
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	consumer := NewProgressConsumer(c.log)
	return consumer.Consume(resp.Body, onEvent)
}

// Validate submits a file for parsing without processing it.
func (c *Client) Validate(ctx context.Context, filename string, content io.Reader) (*Validation, error) {
	body, contentType, err := multipartBody(filename, content)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload/validate", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var result Validation
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	var batch Batch
	if err := c.getJSON(ctx, "/api/batches/"+batchID, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (c *Client) ListBatches(ctx context.Context, page, pageSize int, status string) (*BatchList, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	if status != "" {
		query.Set("status", status)
	}

	var list BatchList
	if err := c.getJSON(ctx, "/api/batches", query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) DeleteBatch(ctx context.Context, batchID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/batches/"+batchID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

// MatchQuery narrows a batch match listing. MaxConfidence is exclusive.
type MatchQuery struct {
	Page          int
	PageSize      int
	MatchType     string
	MinConfidence *float64
	MaxConfidence *float64
	Reviewed      *bool
}

func (c *Client) ListMatches(ctx context.Context, batchID string, q MatchQuery) (*MatchList, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("page_size", strconv.Itoa(q.PageSize))
	if q.MatchType != "" {
		query.Set("match_type", q.MatchType)
	}
	if q.MinConfidence != nil {
		query.Set("min_confidence", strconv.FormatFloat(*q.MinConfidence, 'f', -1, 64))
	}
	if q.MaxConfidence != nil {
		query.Set("max_confidence", strconv.FormatFloat(*q.MaxConfidence, 'f', -1, 64))
	}
	if q.Reviewed != nil {
		query.Set("reviewed", strconv.FormatBool(*q.Reviewed))
	}

	var list MatchList
	if err := c.getJSON(ctx, "/api/matches/batch/"+batchID, query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) ListUnmatched(ctx context.Context, batchID string, page, pageSize int) (*UnmatchedList, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var list UnmatchedList
	if err := c.getJSON(ctx, "/api/matches/unmatched/"+batchID, query, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ReviewMatch submits a confirm/reject decision. The server flips exactly
// one review flag; nothing is mutated locally.
func (c *Client) ReviewMatch(ctx context.Context, matchID int64, action string) error {
	payload, _ := json.Marshal(map[string]string{"action": action})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/matches/%d/review", c.baseURL, matchID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

// ExportUnmatchedURL is the stable download address for a batch's unmatched
// records CSV.
func (c *Client) ExportUnmatchedURL(batchID string) string {
	return fmt.Sprintf("%s/api/matches/export/%s/unmatched", c.baseURL, batchID)
}

// ExportFlaggedURL is the stable download address for a batch's flagged
// matches CSV.
func (c *Client) ExportFlaggedURL(batchID string) string {
	return fmt.Sprintf("%s/api/matches/export/%s/flagged", c.baseURL, batchID)
}

// DownloadExport fetches one of the export URLs into w.
func (c *Client) DownloadExport(ctx context.Context, exportURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
