package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"works-matching-backend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCacheReadThrough(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(Batch{
			ID:               "b1",
			Status:           "completed",
			TotalRecords:     100,
			MatchedRecords:   60,
			FlaggedRecords:   30,
			UnmatchedRecords: 10,
		})
	}))
	defer srv.Close()

	cache := NewBatchCache(New(srv.URL, logger.NewNop()), time.Minute)
	ctx := context.Background()

	batch, err := cache.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, batch.TotalRecords, batch.MatchedRecords+batch.FlaggedRecords+batch.UnmatchedRecords)

	_, err = cache.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetches, "second read must come from cache")

	cache.Invalidate("b1")
	_, err = cache.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, fetches, "invalidate must force a re-fetch")
}

func TestBatchCacheSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Batch{
			ID:           "b2",
			Status:       "failed",
			ErrorMessage: "Processing failed: no valid records found in file",
		})
	}))
	defer srv.Close()

	cache := NewBatchCache(New(srv.URL, logger.NewNop()), time.Minute)

	batch, err := cache.Get(context.Background(), "b2")
	require.NoError(t, err)
	assert.Equal(t, "failed", batch.Status)
	assert.Equal(t, "Processing failed: no valid records found in file", batch.ErrorMessage)
}

func TestBatchCacheNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "batch not found"})
	}))
	defer srv.Close()

	cache := NewBatchCache(New(srv.URL, logger.NewNop()), time.Minute)

	_, err := cache.Get(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "batch not found", apiErr.Message)
}
