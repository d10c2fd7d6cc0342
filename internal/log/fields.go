package log

// Canonical field name constants for structured logging, so call sites never
// hand-roll a key string that drifts from what a dashboard or log query
// expects.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMediaFileID = "media_file_id"
	FieldEvent       = "event"

	FieldPath       = "path"
	FieldStatus     = "status"
	FieldOldStatus  = "old_status"
	FieldNewStatus  = "new_status"
	FieldError      = "error"
	FieldDurationMS = "duration_ms"

	FieldTMDBID    = "tmdb_id"
	FieldLinkState = "link_result"
)
