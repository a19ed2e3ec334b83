// Package archive provides adapters for reading members out of container
// files (zip, tar.gz, rar) without the scanner needing to know codec
// details. The concrete codecs are external collaborators (spec §1/§6):
// this package only adapts them behind a narrow Reader/Member surface.
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Member is one entry inside an opened container.
type Member interface {
	Name() string // member name, as stored in the container
	Size() int64  // uncompressed size in bytes
	Open() (io.ReadCloser, error)
}

// Reader iterates the members of one opened container. Callers must call
// Close when done to release any underlying file handles or temp state.
type Reader interface {
	Next() (Member, error) // returns io.EOF when exhausted
	Close() error
}

// OpenFunc opens a container file and returns a Reader over its members.
type OpenFunc func(path string) (Reader, error)

// registry maps a lowercase, dot-less extension to its opener.
var registry = map[string]OpenFunc{}

// Register adds (or replaces) the opener for an extension. Extensions are
// matched case-insensitively without a leading dot.
func Register(ext string, fn OpenFunc) {
	registry[strings.ToLower(ext)] = fn
}

// IsContainer reports whether name's extension identifies a known
// container format (spec §4.1 "known container").
func IsContainer(name string) bool {
	_, ok := registry[extOf(name)]
	return ok
}

// Open dispatches to the registered opener for path's extension.
// Returns ErrUnsupported if no opener is registered.
func Open(path string) (Reader, error) {
	ext := extOf(path)
	fn, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return fn(path)
}

// ErrUnsupported is returned by Open for an extension with no registered codec.
var ErrUnsupported = fmt.Errorf("archive: unsupported container extension")

func extOf(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
