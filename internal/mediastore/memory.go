package mediastore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// fold does locale-independent Unicode case folding for filename
// search/sort, used in place of strings.ToLower. SQLiteStore matches with
// LIKE and COLLATE NOCASE, which fold ASCII letters only, so for non-ASCII
// filenames (e.g. Turkish "İ") the two stores can disagree.
var fold = cases.Fold()

func foldCase(s string) string {
	return fold.String(s)
}

// MemoryStore is an in-memory Store fake for tests, grounded on the
// teacher's internal/pipeline/store in-memory test double shape: a
// mutex-guarded map standing in for the database, implementing the exact
// same claim-primitive contract as SQLiteStore.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	files      map[int64]*MediaFile
	configItems map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:       make(map[int64]*MediaFile),
		configItems: make(map[string]string),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, mf *MediaFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.files {
		if existing.Inode == mf.Inode && existing.DeviceID == mf.DeviceID {
			return &uniqueViolation{inode: mf.Inode, device: mf.DeviceID}
		}
	}

	m.nextID++
	now := time.Now().UTC()
	clone := *mf
	clone.ID = m.nextID
	clone.Status = StatusPending
	clone.CreatedAt = now
	clone.UpdatedAt = now
	m.files[clone.ID] = &clone
	*mf = clone
	return nil
}

type uniqueViolation struct {
	inode, device uint64
}

func (e *uniqueViolation) Error() string { return "mediastore: (inode, device) already exists" }

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, nil
	}
	clone := *f
	return &clone, nil
}

func (m *MemoryStore) GetByInodeDevice(ctx context.Context, inode, device uint64) (*MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.Inode == inode && f.DeviceID == device {
			clone := *f
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, filter Filter, sortBy Sort, skip, limit int) ([]*MediaFile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*MediaFile
	for _, f := range m.files {
		if matchesFilter(f, filter) {
			clone := *f
			matched = append(matched, &clone)
		}
	}

	field := sortBy.Field
	if field == "" {
		field = SortCreatedAt
	}
	direction := sortBy.Direction
	if direction == "" {
		direction = SortDesc
	}
	sort.Slice(matched, func(i, j int) bool {
		less := lessBy(matched[i], matched[j], field)
		if direction == SortDesc {
			return !less && matched[i].ID != matched[j].ID
		}
		return less
	})

	total := len(matched)
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

func lessBy(a, b *MediaFile, field SortField) bool {
	switch field {
	case SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case SortFilename:
		return foldCase(a.OriginalFilename) < foldCase(b.OriginalFilename)
	case SortStatus:
		return a.Status < b.Status
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func matchesFilter(f *MediaFile, filter Filter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if f.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, token := range filter.Search {
		token = foldCase(token)
		if !strings.Contains(foldCase(f.OriginalFilename), token) &&
			!strings.Contains(foldCase(f.OriginalFilepath), token) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) DistinctFilenames(ctx context.Context, prefix string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix = foldCase(prefix)
	seen := make(map[string]struct{})
	var out []string
	for _, f := range m.files {
		name := f.OriginalFilename
		if !strings.HasPrefix(foldCase(name), prefix) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GroupByStatus(ctx context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Status]int)
	for _, f := range m.files {
		out[f.Status]++
	}
	return out, nil
}

func (m *MemoryStore) UpdateFields(ctx context.Context, id int64, status Status, errorMessage *string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil // Status Manager contract: missing-row updates log and return without raising
	}
	f.Status = status
	f.ErrorMessage = errorMessage
	if patch.LLMGuess != nil {
		f.LLMGuess = patch.LLMGuess
	}
	if patch.TMDBID != nil {
		f.TMDBID = patch.TMDBID
	}
	if patch.MediaType != nil {
		f.MediaType = patch.MediaType
	}
	if patch.ProcessedData != nil {
		f.ProcessedData = patch.ProcessedData
	}
	if patch.NewFilepath != nil {
		f.NewFilepath = patch.NewFilepath
	}
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) ClaimPending(ctx context.Context, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	var ordered []*MediaFile
	for _, f := range m.files {
		if f.Status == StatusPending {
			ordered = append(ordered, f)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, f := range ordered {
		if len(ids) >= limit {
			break
		}
		f.Status = StatusQueued
		f.UpdatedAt = time.Now().UTC()
		ids = append(ids, f.ID)
	}
	return ids, nil
}

func (m *MemoryStore) ResetStaleRows(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.files {
		if f.Status == StatusQueued || f.Status == StatusProcessing {
			f.Status = StatusPending
			f.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetAllConfigItems(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.configItems))
	for k, v := range m.configItems {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) UpsertConfigItems(ctx context.Context, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		m.configItems[k] = v
	}
	return nil
}

func (m *MemoryStore) DeleteConfigItemsNotIn(ctx context.Context, keys []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	n := 0
	for k := range m.configItems {
		if _, ok := keep[k]; !ok {
			delete(m.configItems, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
