package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
)

func TestGetConfigReturnsRegistryWithCurrentValues(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var entries map[string]configEntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	logLevel, ok := entries["LOG_LEVEL"]
	require.True(t, ok)
	assert.Equal(t, "INFO", logLevel.Value)
}

func TestPostConfigRejectsBlacklistedKeys(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	rec := doRequest(t, h, http.MethodPost, "/api/config", map[string]string{
		"DATABASE_URL": "sqlite:///evil",
		"LOG_LEVEL":    "ERROR",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp configUpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"DATABASE_URL"}, resp.RejectedKeys)
	assert.Equal(t, []string{"LOG_LEVEL"}, resp.UpdatedKeys)

	rec = doRequest(t, h, http.MethodGet, "/api/config", nil)
	var entries map[string]configEntryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Equal(t, "ERROR", entries["LOG_LEVEL"].Value)
	assert.Equal(t, "clearmedia.db", entries["DATABASE_URL"].Value)
}

func TestPostConfigInvalidBodyReturns400(t *testing.T) {
	store := mediastore.NewMemoryStore()
	h := newTestRouter(t, store)

	req := doRequestRaw(t, h, http.MethodPost, "/api/config", []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, req.Code)
}
