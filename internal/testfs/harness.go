package testfs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dustin/go-humanize"
)

// Harness provides scanner/pipeline test infrastructure backed by a
// t.TempDir() root. Unlike the teacher's Docker-backed E2E harness,
// fileferry has no hardlink or cross-device concept to exercise, so this
// harness only ever needs one real filesystem directory.
type Harness struct {
	t    *testing.T
	root string
}

// New creates a Harness, materializing tree under a fresh t.TempDir().
func New(t *testing.T, tree Tree) *Harness {
	t.Helper()

	root := t.TempDir()
	h := &Harness{t: t, root: root}

	for _, f := range tree.Files {
		if err := h.writeFile(f); err != nil {
			t.Fatalf("testfs: %v", err)
		}
	}

	return h
}

// Root returns the harness's temporary root directory.
func (h *Harness) Root() string {
	return h.root
}

// Path joins rel onto the harness root.
func (h *Harness) Path(rel string) string {
	return filepath.Join(h.root, rel)
}

func (h *Harness) writeFile(f File) error {
	path := filepath.Join(h.root, f.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", f.Path, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Path, err)
	}
	defer func() { _ = out.Close() }()

	if len(f.Content) > 0 || len(f.Chunks) == 0 {
		_, err = out.Write(f.Content)
		return err
	}

	for _, c := range f.Chunks {
		if err := writeChunk(out, c); err != nil {
			return fmt.Errorf("write chunk in %s: %w", f.Path, err)
		}
	}
	return nil
}

// writeChunk streams a pattern-filled region to f, buffering in at most
// 1MiB increments so multi-gigabyte fixtures don't require that much
// memory up front.
func writeChunk(f *os.File, c Chunk) error {
	const maxBufSize = 1 << 20

	size, err := humanize.ParseBytes(c.Size)
	if err != nil {
		return fmt.Errorf("parse chunk size %q: %w", c.Size, err)
	}

	bufSize := int(size)
	if bufSize > maxBufSize {
		bufSize = maxBufSize
	}
	buf := bytes.Repeat([]byte{c.Pattern}, bufSize)

	remaining := int64(size)
	for remaining > 0 {
		toWrite := int64(len(buf))
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			return err
		}
		remaining -= toWrite
	}
	return nil
}
