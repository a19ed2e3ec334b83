package testfs

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
)

// BuildZip writes a zip file at rel (relative to the harness root)
// containing members, and returns the zip's absolute path. Member
// content may itself be the bytes of another archive built by BuildZip
// or BuildTarGz, allowing tests to construct nested-archive fixtures
// (spec §8 "Nested zip match").
func (h *Harness) BuildZip(rel string, members []Member) string {
	h.t.Helper()

	path := h.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("testfs: mkdir for %s: %v", rel, err)
	}

	f, err := os.Create(path)
	if err != nil {
		h.t.Fatalf("testfs: create %s: %v", rel, err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			h.t.Fatalf("testfs: zip create member %s: %v", m.Name, err)
		}
		if _, err := w.Write(m.Content); err != nil {
			h.t.Fatalf("testfs: zip write member %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		h.t.Fatalf("testfs: zip close %s: %v", rel, err)
	}

	return path
}

// BuildTarGz writes a .tar.gz file at rel containing members, and returns
// its absolute path.
func (h *Harness) BuildTarGz(rel string, members []Member) string {
	h.t.Helper()

	path := h.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("testfs: mkdir for %s: %v", rel, err)
	}

	f, err := os.Create(path)
	if err != nil {
		h.t.Fatalf("testfs: create %s: %v", rel, err)
	}
	defer func() { _ = f.Close() }()

	gzw := gzip.NewWriter(f)
	tw := tar.NewWriter(gzw)
	for _, m := range members {
		hdr := &tar.Header{Name: m.Name, Size: int64(len(m.Content)), Mode: 0o644}
		if err := tw.WriteHeader(hdr); err != nil {
			h.t.Fatalf("testfs: tar header %s: %v", m.Name, err)
		}
		if _, err := tw.Write(m.Content); err != nil {
			h.t.Fatalf("testfs: tar write %s: %v", m.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		h.t.Fatalf("testfs: tar close %s: %v", rel, err)
	}
	if err := gzw.Close(); err != nil {
		h.t.Fatalf("testfs: gzip close %s: %v", rel, err)
	}

	return path
}

// ZipBytes builds an in-memory zip archive (for embedding as a nested
// archive's member content) without touching disk.
func ZipBytes(members []Member) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			panic(fmt.Sprintf("testfs: zip create member %s: %v", m.Name, err))
		}
		if _, err := w.Write(m.Content); err != nil {
			panic(fmt.Sprintf("testfs: zip write member %s: %v", m.Name, err))
		}
	}
	if err := zw.Close(); err != nil {
		panic(fmt.Sprintf("testfs: zip close: %v", err))
	}
	return buf.Bytes()
}
