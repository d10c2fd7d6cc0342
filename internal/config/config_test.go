package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDefaults(t *testing.T) {
	l := NewLoader("")
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.ScanIntervalSeconds)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoaderDotfileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	dotfile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotfile, []byte("WORKER_COUNT=5\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("LOG_LEVEL", "warn")

	l := NewLoader(dotfile)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.WorkerCount, "dotfile value applies when env unset")
	assert.Equal(t, "warn", cfg.LogLevel, "env overrides dotfile")
}

func TestLoaderAcceptsYAMLDotfile(t *testing.T) {
	dir := t.TempDir()
	dotfile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(dotfile, []byte("worker_count: 7\nlog_level: debug\ncors_origins: [\"a.example\", \"b.example\"]\n"), 0o600))

	l := NewLoader(dotfile)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.WorkerCount)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"a.example", "b.example"}, cfg.CORSOrigins)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cfg := defaultSettings()
	cfg.ScanIntervalSeconds = 10
	assert.Error(t, Validate(cfg))

	cfg = defaultSettings()
	cfg.WorkerCount = 99
	assert.Error(t, Validate(cfg))

	cfg = defaultSettings()
	cfg.VideoExtensions = []string{"mp4"}
	assert.Error(t, Validate(cfg))

	cfg = defaultSettings()
	assert.NoError(t, Validate(cfg))
}

type fakeItemStore struct {
	items map[string]string
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[string]string{}}
}

func (f *fakeItemStore) GetAllConfigItems(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.items))
	for k, v := range f.items {
		out[k] = v
	}
	return out, nil
}

func (f *fakeItemStore) UpsertConfigItems(ctx context.Context, items map[string]string) error {
	for k, v := range items {
		f.items[k] = v
	}
	return nil
}

func (f *fakeItemStore) DeleteConfigItemsNotIn(ctx context.Context, keys []string) (int, error) {
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	deleted := 0
	for k := range f.items {
		if _, ok := keep[k]; !ok {
			delete(f.items, k)
			deleted++
		}
	}
	return deleted, nil
}

func TestServiceUpdateRejectsBlacklistedKeys(t *testing.T) {
	store := newFakeItemStore()
	holder := NewConfigHolder(NewLoader(""), NewDBOverrideSource(store))
	require.NoError(t, holder.Reload(context.Background()))

	svc := NewService(holder, store)

	result, err := svc.Update(context.Background(), map[string]string{
		"DATABASE_URL": "sqlite:///evil",
		"LOG_LEVEL":    "ERROR",
	})
	require.NoError(t, err)

	assert.Contains(t, result.RejectedKeys, "DATABASE_URL")
	assert.Contains(t, result.UpdatedKeys, "LOG_LEVEL")

	require.NoError(t, holder.Reload(context.Background()))
	assert.Equal(t, "ERROR", holder.Current().LogLevel)
	assert.NotEqual(t, "sqlite:///evil", holder.Current().DatabaseURL)
}

func TestServiceUpdateRollsBackOnValidationFailure(t *testing.T) {
	store := newFakeItemStore()
	holder := NewConfigHolder(NewLoader(""), NewDBOverrideSource(store))
	require.NoError(t, holder.Reload(context.Background()))
	svc := NewService(holder, store)

	_, err := svc.Update(context.Background(), map[string]string{
		"WORKER_COUNT": "999",
	})
	assert.Error(t, err)
	assert.Empty(t, store.items)
}

func TestServiceCleanupRemovesStaleKeys(t *testing.T) {
	store := newFakeItemStore()
	store.items["LOG_LEVEL"] = `"DEBUG"`
	store.items["REMOVED_LEGACY_KEY"] = `"x"`

	holder := NewConfigHolder(NewLoader(""), NewDBOverrideSource(store))
	svc := NewService(holder, store)

	removed, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, stillThere := store.items["REMOVED_LEGACY_KEY"]
	assert.False(t, stillThere)
	_, kept := store.items["LOG_LEVEL"]
	assert.True(t, kept)
}
