package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhinengfan/clearmedia-go/internal/config"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
)

var seedInodeCounter int64

func newTestRouter(t *testing.T, store mediastore.Store) http.Handler {
	t.Helper()
	sm := mediastore.NewStatusManager(store)
	holder := config.NewConfigHolder(config.NewLoader(""), config.NewDBOverrideSource(store))
	require.NoError(t, holder.Reload(context.Background()))
	svc := config.NewService(holder, store)

	return NewRouter(Deps{
		Store:         store,
		StatusManager: sm,
		Config:        svc,
		CORSOrigins:   []string{"*"},
	})
}

func seedMediaFile(t *testing.T, store mediastore.Store, status mediastore.Status) int64 {
	t.Helper()
	seedInodeCounter++
	mf := &mediastore.MediaFile{
		Inode: uint64(seedInodeCounter), DeviceID: 1,
		OriginalFilepath: "/src/movie.mkv", OriginalFilename: "movie.mkv",
		FileSize: 100,
	}
	require.NoError(t, store.Insert(context.Background(), mf))
	if status != mediastore.StatusPending {
		require.NoError(t, store.UpdateFields(context.Background(), mf.ID, status, nil, mediastore.Patch{}))
	}
	return mf.ID
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func doRequestRaw(t *testing.T, h http.Handler, method, path string, raw []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListFilesDefaultsAndFiltering(t *testing.T) {
	store := mediastore.NewMemoryStore()
	seedMediaFile(t, store, mediastore.StatusCompleted)
	seedMediaFile(t, store, mediastore.StatusFailed)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 20, resp.Limit)

	rec = doRequest(t, h, http.MethodGet, "/api/files?status=failed", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "FAILED", resp.Items[0].Status)
}

func TestListFilesInvalidStatusReturns422(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files?status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListFilesInvalidLimitReturns422(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files?limit=0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/files?limit=501", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetFileNotFoundReturns404(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Detail)
}

func TestGetFileReturnsRow(t *testing.T) {
	store := mediastore.NewMemoryStore()
	id := seedMediaFile(t, store, mediastore.StatusCompleted)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var view fileView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "COMPLETED", view.Status)
}

func TestSuggestFilesEmptyKeywordReturnsEmptyList(t *testing.T) {
	store := mediastore.NewMemoryStore()
	seedMediaFile(t, store, mediastore.StatusPending)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files/suggest", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSuggestFilesPrefixMatch(t *testing.T) {
	store := mediastore.NewMemoryStore()
	seedMediaFile(t, store, mediastore.StatusPending)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/files/suggest?keyword=mov", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["movie.mkv"]`, rec.Body.String())
}

func TestStatsGroupsByStatus(t *testing.T) {
	store := mediastore.NewMemoryStore()
	seedMediaFile(t, store, mediastore.StatusCompleted)
	seedMediaFile(t, store, mediastore.StatusCompleted)
	seedMediaFile(t, store, mediastore.StatusFailed)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats["COMPLETED"])
	assert.Equal(t, 1, stats["FAILED"])
}

func TestRetryFileFromFailedSucceeds(t *testing.T) {
	store := mediastore.NewMemoryStore()
	id := seedMediaFile(t, store, mediastore.StatusFailed)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/files/"+itoa(id)+"/retry", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp retryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FAILED", resp.PreviousStatus)
	assert.Equal(t, "PENDING", resp.CurrentStatus)

	mf, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, mediastore.StatusPending, mf.Status)
}

func TestRetryFileFromCompletedReturns400(t *testing.T) {
	store := mediastore.NewMemoryStore()
	id := seedMediaFile(t, store, mediastore.StatusCompleted)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/files/"+itoa(id)+"/retry", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetryFileMissingReturns404(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/files/404/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchRetryMixedOutcomes(t *testing.T) {
	store := mediastore.NewMemoryStore()
	retryable := seedMediaFile(t, store, mediastore.StatusFailed)
	notRetryable := seedMediaFile(t, store, mediastore.StatusCompleted)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/files/batch-retry", batchRequest{FileIDs: []int64{retryable, notRetryable, 9999}})
	assert.Equal(t, http.StatusOK, rec.Code)

	var results []batchItemResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.False(t, results[2].Success)
}

func TestBatchRetryRejectsOversizedBatch(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	ids := make([]int64, 101)
	rec := doRequest(t, h, http.MethodPost, "/api/files/batch-retry", batchRequest{FileIDs: ids})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBatchDeleteRemovesRows(t *testing.T) {
	store := mediastore.NewMemoryStore()
	id := seedMediaFile(t, store, mediastore.StatusCompleted)
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/files/batch-delete", batchRequest{FileIDs: []int64{id}})
	assert.Equal(t, http.StatusOK, rec.Code)

	mf, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, mf)
}
