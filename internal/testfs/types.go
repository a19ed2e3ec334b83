// Package testfs provides fixture-building test infrastructure for
// scanner and archive tests: a declarative Tree spec materialized under
// t.TempDir(), plus zip/tar.gz builders for archive-member fixtures
// (including archives nested inside archives).
package testfs

import "github.com/dustin/go-humanize"

// Tree describes a set of files to create under a Harness's root.
type Tree struct {
	Files []File
}

// File defines a regular file to create, relative to the Harness root.
// Either Content or Chunks may be set; Chunks is for large pattern-filled
// fixtures (e.g. stability/fingerprint tests needing a specific size)
// without holding the whole payload in memory at once.
type File struct {
	Path    string
	Content []byte
	Chunks  []Chunk
}

// Chunk defines a region of file content filled with a pattern byte.
type Chunk struct {
	Pattern byte
	Size    string // IEC/SI size string parsed via go-humanize, e.g. "1MiB"
}

// TotalSize returns the sum of all chunk sizes in bytes.
func (f *File) TotalSize() int64 {
	var total int64
	for _, c := range f.Chunks {
		size, _ := humanize.ParseBytes(c.Size)
		total += int64(size)
	}
	return total
}

// Member is one entry to pack into a zip or tar.gz fixture archive.
type Member struct {
	Name    string // archive-internal member name
	Content []byte
}
