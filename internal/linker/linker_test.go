package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	dst := filepath.Join(dir, "nested", "dest.mp4")
	got := Link(src, dst)
	assert.Equal(t, Success, got)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	srcInfo, _ := os.Stat(src)
	assert.True(t, os.SameFile(info, srcInfo))
}

func TestLinkNoSource(t *testing.T) {
	dir := t.TempDir()
	got := Link(filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "dest.mp4"))
	assert.Equal(t, FailedNoSource, got)
}

func TestLinkNoSourceOnDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "adir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	got := Link(sub, filepath.Join(dir, "dest.mp4"))
	assert.Equal(t, FailedNoSource, got)
}

func TestLinkConflict(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	dst := filepath.Join(dir, "dest.mp4")
	require.NoError(t, os.WriteFile(dst, []byte("exists"), 0o644))

	got := Link(src, dst)
	assert.Equal(t, FailedConflict, got)

	content, _ := os.ReadFile(dst)
	assert.Equal(t, "exists", string(content), "conflicting destination must be left untouched")
}

func TestLinkNoPartialStateOnFailure(t *testing.T) {
	dir := t.TempDir()
	got := Link(filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "dest.mp4"))
	assert.Equal(t, FailedNoSource, got)
	_, err := os.Stat(filepath.Join(dir, "dest.mp4"))
	assert.True(t, os.IsNotExist(err))
}
