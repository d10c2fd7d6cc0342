// Package mediastore persists MediaFile rows and ConfigItem overrides, and
// implements the atomic claim primitive the Producer relies on for
// at-most-once dispatch.
package mediastore

import "time"

// Status is one of the closed set of MediaFile lifecycle states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusConflict   Status = "CONFLICT"
	StatusNoMatch    Status = "NO_MATCH"
)

// RetryableStatuses are the only terminal states Retry may move out of.
var RetryableStatuses = map[Status]struct{}{
	StatusFailed:   {},
	StatusConflict: {},
	StatusNoMatch:  {},
}

// MediaFile is one row per discovered file, the unit of work flowing through
// Scanner → Producer → Worker → Status Manager.
type MediaFile struct {
	ID int64

	Inode    uint64
	DeviceID uint64

	OriginalFilepath string
	OriginalFilename string
	FileSize         int64

	Status Status

	LLMGuess    *string // JSON-encoded structured guess from Resolver Stage A
	TMDBID      *int64
	MediaType   *string // "movie" or "tv"
	ProcessedData *string // JSON-encoded canonical provider record

	NewFilepath  *string
	ErrorMessage *string
	RetryCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch carries the whitelisted subset of MediaFile fields the Status
// Manager (and only the Status Manager) is allowed to mutate, per I3.
type Patch struct {
	LLMGuess      *string
	TMDBID        *int64
	MediaType     *string
	ProcessedData *string
	NewFilepath   *string
}

// Filter narrows a List/Count query.
type Filter struct {
	Statuses []Status // empty means no status filter
	Search   []string // whitespace-split tokens, AND'd, matched against filename OR filepath
}

// SortField is one of the columns List may order by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortFilename  SortField = "original_filename"
	SortStatus    SortField = "status"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort picks the List ordering; both Store implementations treat an empty
// Field or Direction as the §4.10 default of created_at:desc.
type Sort struct {
	Field     SortField
	Direction SortDirection
}
