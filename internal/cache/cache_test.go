package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheDisabled(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	mtime := time.Now()
	require.NoError(t, c.Store("/test/file", 100, mtime, "deadbeef"))

	digest, err := c.Lookup("/test/file", 100, mtime)
	require.NoError(t, err)
	require.Empty(t, digest)
}

func TestCacheRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(cachePath)
	require.NoError(t, err)

	mtime := time.Unix(1609459200, 0)
	require.NoError(t, c1.Store("/test/file.txt", 1024, mtime, "abcdef0123456789"))
	require.NoError(t, c1.Close())

	c2, err := Open(cachePath)
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	digest, err := c2.Lookup("/test/file.txt", 1024, mtime)
	require.NoError(t, err)
	require.Equal(t, "abcdef0123456789", digest)
}

func TestCacheMissOnMtimeChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(cachePath)
	require.NoError(t, err)
	mtime := time.Unix(1609459200, 0)
	require.NoError(t, c1.Store("/test/file.txt", 1024, mtime, "abcdef0123456789"))
	require.NoError(t, c1.Close())

	c2, err := Open(cachePath)
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	digest, err := c2.Lookup("/test/file.txt", 1024, mtime.Add(time.Second))
	require.NoError(t, err)
	require.Empty(t, digest)
}

func TestCacheMissOnSizeChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(cachePath)
	require.NoError(t, err)
	mtime := time.Now()
	require.NoError(t, c1.Store("/test/file.txt", 1024, mtime, "abcdef0123456789"))
	require.NoError(t, c1.Close())

	c2, err := Open(cachePath)
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	digest, err := c2.Lookup("/test/file.txt", 2048, mtime)
	require.NoError(t, err)
	require.Empty(t, digest)
}

func TestCacheMissOnPathChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, err := Open(cachePath)
	require.NoError(t, err)
	mtime := time.Now()
	require.NoError(t, c1.Store("/test/file.txt", 1024, mtime, "abcdef0123456789"))
	require.NoError(t, c1.Close())

	c2, err := Open(cachePath)
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	digest, err := c2.Lookup("/test/other.txt", 1024, mtime)
	require.NoError(t, err)
	require.Empty(t, digest)
}
