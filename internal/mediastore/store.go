package mediastore

import "context"

// Store is the State Store (C1) contract: persistence for MediaFile rows,
// the atomic claim primitive Producer relies on, and the ConfigItem
// key-value table internal/config layers DB overrides from.
type Store interface {
	Insert(ctx context.Context, m *MediaFile) error
	GetByID(ctx context.Context, id int64) (*MediaFile, error)
	GetByInodeDevice(ctx context.Context, inode, device uint64) (*MediaFile, error)

	List(ctx context.Context, filter Filter, sort Sort, skip, limit int) ([]*MediaFile, int, error)
	DistinctFilenames(ctx context.Context, prefix string, limit int) ([]string, error)
	GroupByStatus(ctx context.Context) (map[Status]int, error)

	// UpdateFields applies the Status Manager's (status, error_message, patch)
	// mutation atomically. It is the only entry point that may change a
	// terminal or working status; see statusmanager.go.
	UpdateFields(ctx context.Context, id int64, status Status, errorMessage *string, patch Patch) error

	// ClaimPending atomically moves up to limit rows from PENDING to QUEUED
	// and returns their ids. Two concurrent calls must never return
	// overlapping id sets.
	ClaimPending(ctx context.Context, limit int) ([]int64, error)

	// ResetStaleRows moves every row currently in QUEUED or PROCESSING back
	// to PENDING; run once at startup before any component begins (I4).
	ResetStaleRows(ctx context.Context) (int, error)

	// Delete removes a MediaFile row outright; used by the Control API's
	// batch-delete endpoint. Deleting a row that doesn't exist is not an
	// error (idempotent).
	Delete(ctx context.Context, id int64) error

	GetAllConfigItems(ctx context.Context) (map[string]string, error)
	UpsertConfigItems(ctx context.Context, items map[string]string) error
	DeleteConfigItemsNotIn(ctx context.Context, keys []string) (int, error)

	Close() error
}

// ErrNotFound is reserved for callers that want a typed not-found sentinel;
// GetByID/GetByInodeDevice themselves report a missing row as (nil, nil),
// matching both implementations' actual return value.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "mediastore: not found" }
