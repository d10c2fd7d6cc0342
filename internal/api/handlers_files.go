package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
)

// fileView is the §4.10 JSON projection of a MediaFile row.
type fileView struct {
	ID               int64   `json:"id"`
	OriginalFilepath string  `json:"original_filepath"`
	OriginalFilename string  `json:"original_filename"`
	FileSize         int64   `json:"file_size"`
	Status           string  `json:"status"`
	LLMGuess         *string `json:"llm_guess,omitempty"`
	TMDBID           *int64  `json:"tmdb_id,omitempty"`
	MediaType        *string `json:"media_type,omitempty"`
	ProcessedData    *string `json:"processed_data,omitempty"`
	NewFilepath      *string `json:"new_filepath,omitempty"`
	ErrorMessage     *string `json:"error_message,omitempty"`
	RetryCount       int     `json:"retry_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toFileView(m *mediastore.MediaFile) fileView {
	return fileView{
		ID:               m.ID,
		OriginalFilepath: m.OriginalFilepath,
		OriginalFilename: m.OriginalFilename,
		FileSize:         m.FileSize,
		Status:           string(m.Status),
		LLMGuess:         m.LLMGuess,
		TMDBID:           m.TMDBID,
		MediaType:        m.MediaType,
		ProcessedData:    m.ProcessedData,
		NewFilepath:      m.NewFilepath,
		ErrorMessage:     m.ErrorMessage,
		RetryCount:       m.RetryCount,
		CreatedAt:        m.CreatedAt.Format(timeLayout),
		UpdatedAt:        m.UpdatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05.999999Z07:00"

var validSortFields = map[string]mediastore.SortField{
	"created_at":        mediastore.SortCreatedAt,
	"updated_at":        mediastore.SortUpdatedAt,
	"original_filename": mediastore.SortFilename,
	"status":            mediastore.SortStatus,
}

var validStatuses = map[string]mediastore.Status{
	"PENDING":    mediastore.StatusPending,
	"QUEUED":     mediastore.StatusQueued,
	"PROCESSING": mediastore.StatusProcessing,
	"COMPLETED":  mediastore.StatusCompleted,
	"FAILED":     mediastore.StatusFailed,
	"CONFLICT":   mediastore.StatusConflict,
	"NO_MATCH":   mediastore.StatusNoMatch,
}

type listResponse struct {
	Total        int        `json:"total"`
	Skip         int        `json:"skip"`
	Limit        int        `json:"limit"`
	HasNext      bool       `json:"has_next"`
	HasPrevious  bool       `json:"has_previous"`
	Items        []fileView `json:"items"`
}

// listFiles implements GET /api/files.
func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	skip, err := parseIntParam(q.Get("skip"), 0)
	if err != nil || skip < 0 {
		writeUnprocessable(w, "skip must be a non-negative integer")
		return
	}
	limit, err := parseIntParam(q.Get("limit"), 20)
	if err != nil || limit < 1 || limit > 500 {
		writeUnprocessable(w, "limit must be between 1 and 500")
		return
	}

	var statuses []mediastore.Status
	if raw := q.Get("status"); raw != "" {
		for _, tok := range strings.Split(raw, ",") {
			tok = strings.ToUpper(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			s, ok := validStatuses[tok]
			if !ok {
				writeUnprocessable(w, "invalid status: "+tok)
				return
			}
			statuses = append(statuses, s)
		}
	}

	var search []string
	if raw := strings.TrimSpace(q.Get("search")); raw != "" {
		search = strings.Fields(raw)
	}

	sortField := mediastore.SortCreatedAt
	sortDir := mediastore.SortDesc
	if raw := q.Get("sort"); raw != "" {
		field, dir, ok := strings.Cut(raw, ":")
		sf, fieldOK := validSortFields[field]
		if !ok || !fieldOK || (dir != "asc" && dir != "desc") {
			writeUnprocessable(w, "invalid sort: "+raw)
			return
		}
		sortField = sf
		if dir == "asc" {
			sortDir = mediastore.SortAsc
		} else {
			sortDir = mediastore.SortDesc
		}
	}

	items, total, err := h.store.List(r.Context(),
		mediastore.Filter{Statuses: statuses, Search: search},
		mediastore.Sort{Field: sortField, Direction: sortDir},
		skip, limit)
	if err != nil {
		writeInternalError(w, "list media files: "+err.Error())
		return
	}

	views := make([]fileView, len(items))
	for i, m := range items {
		views[i] = toFileView(m)
	}

	writeJSON(w, http.StatusOK, listResponse{
		Total:       total,
		Skip:        skip,
		Limit:       limit,
		HasNext:     skip+len(items) < total,
		HasPrevious: skip > 0,
		Items:       views,
	})
}

// getFile implements GET /api/files/{id}.
func (h *handlers) getFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeUnprocessable(w, "id must be an integer")
		return
	}
	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeInternalError(w, "get media file: "+err.Error())
		return
	}
	if m == nil {
		writeNotFound(w, "media file not found")
		return
	}
	writeJSON(w, http.StatusOK, toFileView(m))
}

// suggestFiles implements GET /api/files/suggest.
func (h *handlers) suggestFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := strings.TrimSpace(q.Get("keyword"))

	limit, err := parseIntParam(q.Get("limit"), 20)
	if err != nil || limit < 1 || limit > 100 {
		writeUnprocessable(w, "limit must be between 1 and 100")
		return
	}

	if keyword == "" {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	names, err := h.store.DistinctFilenames(r.Context(), keyword, limit)
	if err != nil {
		writeInternalError(w, "suggest filenames: "+err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// stats implements GET /api/stats.
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.GroupByStatus(r.Context())
	if err != nil {
		writeInternalError(w, "group by status: "+err.Error())
		return
	}
	out := make(map[string]int, len(groups))
	for status, count := range groups {
		out[string(status)] = count
	}
	writeJSON(w, http.StatusOK, out)
}

type retryResponse struct {
	Message        string `json:"message"`
	FileID         int64  `json:"file_id"`
	PreviousStatus string `json:"previous_status"`
	CurrentStatus  string `json:"current_status"`
}

// retryFile implements POST /api/files/{id}/retry.
func (h *handlers) retryFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeUnprocessable(w, "id must be an integer")
		return
	}
	resp, status, detail := h.doRetry(r.Context(), id)
	if detail != "" {
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// doRetry is the single retry path shared by retryFile and batchRetry: 404 if
// absent, 400 if the current status isn't retryable, else reset to PENDING.
func (h *handlers) doRetry(ctx context.Context, id int64) (retryResponse, int, string) {
	m, err := h.store.GetByID(ctx, id)
	if err != nil {
		return retryResponse{}, http.StatusInternalServerError, "get media file: " + err.Error()
	}
	if m == nil {
		return retryResponse{}, http.StatusNotFound, "media file not found"
	}
	if _, ok := mediastore.RetryableStatuses[m.Status]; !ok {
		return retryResponse{}, http.StatusBadRequest, "media file is not in a retryable status: " + string(m.Status)
	}
	previous := m.Status
	if err := h.sm.Retry(ctx, id); err != nil {
		return retryResponse{}, http.StatusInternalServerError, "retry: " + err.Error()
	}
	return retryResponse{
		Message:        "media file queued for retry",
		FileID:         id,
		PreviousStatus: string(previous),
		CurrentStatus:  string(mediastore.StatusPending),
	}, http.StatusOK, ""
}

type batchRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

type batchItemResult struct {
	FileID  int64  `json:"file_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func decodeBatchRequest(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return nil, false
	}
	if len(req.FileIDs) < 1 || len(req.FileIDs) > 100 {
		writeUnprocessable(w, "file_ids must contain between 1 and 100 entries")
		return nil, false
	}
	return req.FileIDs, true
}

// batchRetry implements POST /api/files/batch-retry.
func (h *handlers) batchRetry(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}
	results := make([]batchItemResult, len(ids))
	for i, id := range ids {
		_, _, detail := h.doRetry(r.Context(), id)
		results[i] = batchItemResult{FileID: id, Success: detail == "", Error: detail}
	}
	writeJSON(w, http.StatusOK, results)
}

// batchDelete implements POST /api/files/batch-delete.
func (h *handlers) batchDelete(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}
	results := make([]batchItemResult, len(ids))
	for i, id := range ids {
		if err := h.store.Delete(r.Context(), id); err != nil {
			results[i] = batchItemResult{FileID: id, Success: false, Error: err.Error()}
			continue
		}
		results[i] = batchItemResult{FileID: id, Success: true}
	}
	writeJSON(w, http.StatusOK, results)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseIntParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
