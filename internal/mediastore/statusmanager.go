package mediastore

import (
	"context"
	"fmt"

	cmlog "github.com/zhinengfan/clearmedia-go/internal/log"
)

// StatusManager is the Status Manager (C8): the single write path for
// MediaFile state transitions. Every other component mutates status through
// these methods rather than calling Store.UpdateFields directly, per I3.
// Grounded on the original's status_manager.py update_status plus its
// set_processing/set_completed/set_failed/set_no_match/set_conflict
// convenience wrappers.
type StatusManager struct {
	store Store
}

// NewStatusManager constructs a StatusManager around store.
func NewStatusManager(store Store) *StatusManager {
	return &StatusManager{store: store}
}

// update is the single synchronous function every wrapper funnels through.
// A missing row logs and returns without raising, matching the original's
// tolerant behavior for a row deleted out from under an in-flight worker.
func (s *StatusManager) update(ctx context.Context, id int64, status Status, errorMessage *string, patch Patch) error {
	if err := s.store.UpdateFields(ctx, id, status, errorMessage, patch); err != nil {
		return fmt.Errorf("update status for media file %d: %w", id, err)
	}
	cmlog.WithComponentFromContext(ctx, "statusmanager").Debug().
		Int64(cmlog.FieldMediaFileID, id).
		Str(cmlog.FieldNewStatus, string(status)).
		Msg("status updated")
	return nil
}

// SetProcessing moves QUEUED -> PROCESSING, clearing any prior error.
func (s *StatusManager) SetProcessing(ctx context.Context, id int64) error {
	return s.update(ctx, id, StatusProcessing, nil, Patch{})
}

// SetCompleted moves PROCESSING -> COMPLETED, persisting every resolved
// field including the destination path.
func (s *StatusManager) SetCompleted(ctx context.Context, id int64, patch Patch) error {
	return s.update(ctx, id, StatusCompleted, nil, patch)
}

// SetFailed moves PROCESSING -> FAILED, persisting whatever fields were
// obtained before the failure and the error message.
func (s *StatusManager) SetFailed(ctx context.Context, id int64, errorMessage string, patch Patch) error {
	return s.update(ctx, id, StatusFailed, &errorMessage, patch)
}

// SetNoMatch moves PROCESSING -> NO_MATCH when Resolver Stage B returns no
// candidate; llm_guess is persisted so the filename guess isn't lost.
func (s *StatusManager) SetNoMatch(ctx context.Context, id int64, patch Patch) error {
	msg := "No TMDB match found"
	return s.update(ctx, id, StatusNoMatch, &msg, patch)
}

// SetConflict moves PROCESSING -> CONFLICT when the Linker reports the
// destination path already exists.
func (s *StatusManager) SetConflict(ctx context.Context, id int64, conflictPath string, patch Patch) error {
	msg := fmt.Sprintf("destination path already exists: %s", conflictPath)
	return s.update(ctx, id, StatusConflict, &msg, patch)
}

// Retry moves a row from any of {FAILED, CONFLICT, NO_MATCH} back to
// PENDING, clearing its error message. It is the only edge back into the
// working set (§4.7) and is rejected by the caller (Control API) for any
// other current status.
func (s *StatusManager) Retry(ctx context.Context, id int64) error {
	return s.update(ctx, id, StatusPending, nil, Patch{})
}
