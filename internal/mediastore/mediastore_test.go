package mediastore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEnforcesInodeDeviceUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	f1 := &MediaFile{Inode: 1, DeviceID: 1, OriginalFilepath: "/a", OriginalFilename: "a.mp4", FileSize: 100}
	require.NoError(t, store.Insert(ctx, f1))

	f2 := &MediaFile{Inode: 1, DeviceID: 1, OriginalFilepath: "/b", OriginalFilename: "b.mp4", FileSize: 100}
	err := store.Insert(ctx, f2)
	assert.Error(t, err)
}

func TestClaimPendingNeverReturnsOverlappingIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		f := &MediaFile{Inode: uint64(i), DeviceID: 1, OriginalFilepath: "/f", OriginalFilename: "f.mp4", FileSize: 1}
		require.NoError(t, store.Insert(ctx, f))
	}

	seen := make(map[int64]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := store.ClaimPending(ctx, 5)
			require.NoError(t, err)
			mu.Lock()
			for _, id := range ids {
				seen[id]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	for id, count := range seen {
		assert.Equal(t, 1, count, "id %d claimed more than once", id)
	}

	groups, err := store.GroupByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seen), groups[StatusQueued])
}

func TestResetStaleRowsRestoresPending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	f := &MediaFile{Inode: 1, DeviceID: 1, OriginalFilepath: "/a", OriginalFilename: "a.mp4", FileSize: 1}
	require.NoError(t, store.Insert(ctx, f))
	ids, err := store.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	n, err := store.ResetStaleRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestStatusManagerTransitions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sm := NewStatusManager(store)

	f := &MediaFile{Inode: 1, DeviceID: 1, OriginalFilepath: "/a", OriginalFilename: "a.mp4", FileSize: 1}
	require.NoError(t, store.Insert(ctx, f))

	require.NoError(t, sm.SetProcessing(ctx, f.ID))
	got, _ := store.GetByID(ctx, f.ID)
	assert.Equal(t, StatusProcessing, got.Status)

	require.NoError(t, sm.SetNoMatch(ctx, f.ID, Patch{}))
	got, _ = store.GetByID(ctx, f.ID)
	assert.Equal(t, StatusNoMatch, got.Status)
	assert.Equal(t, "No TMDB match found", *got.ErrorMessage)

	require.NoError(t, sm.Retry(ctx, f.ID))
	got, _ = store.GetByID(ctx, f.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.ErrorMessage)
}

func TestListFilterAndSearch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &MediaFile{Inode: 1, DeviceID: 1, OriginalFilepath: "/x/Movie.One.mp4", OriginalFilename: "Movie.One.mp4", FileSize: 1}))
	require.NoError(t, store.Insert(ctx, &MediaFile{Inode: 2, DeviceID: 1, OriginalFilepath: "/x/Show.S01E01.mkv", OriginalFilename: "Show.S01E01.mkv", FileSize: 1}))

	items, total, err := store.List(ctx, Filter{Search: []string{"movie"}}, Sort{}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Movie.One.mp4", items[0].OriginalFilename)

	items, total, err = store.List(ctx, Filter{Statuses: []Status{StatusPending}}, Sort{}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}
