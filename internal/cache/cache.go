// Package cache provides persistent, self-cleaning caching of whole-file
// fingerprints using BoltDB (spec §4.4 "Caching").
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "digests"

// Cache provides persistent caching of file MD5 digests using BoltDB.
//
// Self-cleaning: every run opens the existing database read-only and
// writes a fresh database alongside it; only entries actually looked up
// or stored during the run survive into the replacement, so stale entries
// for files that no longer exist are dropped automatically on Close.
type Cache struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool
}

// Open opens the cache at path for this run. Passing an empty path returns
// a disabled cache whose Lookup always misses and whose Store is a no-op.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err == nil {
			c.readDB = readDB
		}
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache file
// with the new one, provided the new one closed cleanly.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1

// makeKey builds a deterministic key identifying a whole file by path,
// size and modification time: any change to any of the three is a miss.
func makeKey(path string, size int64, modTime time.Time) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(path)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, modTime.UnixNano())
	return buf.Bytes()
}

// Lookup returns the cached digest for (path, size, modTime), or "" if
// there is no entry. A hit is copied forward into the new database so it
// survives this run's self-cleaning (spec §4.4 "Caching").
func (c *Cache) Lookup(path string, size int64, modTime time.Time) (string, error) {
	if !c.enabled || c.readDB == nil {
		return "", nil
	}

	key := makeKey(path, size, modTime)
	var digest string

	err := c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		if data := b.Get(key); data != nil {
			digest = string(data)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cache lookup: %w", err)
	}
	if digest == "" {
		return "", nil
	}

	_ = c.Store(path, size, modTime, digest)
	return digest, nil
}

// Store saves digest for (path, size, modTime) into the new database.
func (c *Cache) Store(path string, size int64, modTime time.Time, digest string) error {
	if !c.enabled || c.writeDB == nil {
		return nil
	}
	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(path, size, modTime), []byte(digest))
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
