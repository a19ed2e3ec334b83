package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
)

func init() {
	Register("tgz", openTarGz)
	Register("gz", openTarGz)
}

// tarGzReader streams members out of a .tar.gz (or .tgz) container.
// Unlike zip, tar is not seekable: members are read in stream order and
// Open() on a member is only valid until the next call to Next().
type tarGzReader struct {
	file *os.File
	gzr  *gzip.Reader
	tr   *tar.Reader
	cur  *tarMember
}

func openTarGz(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gzr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &tarGzReader{file: f, gzr: gzr, tr: tar.NewReader(gzr)}, nil
}

func (r *tarGzReader) Next() (Member, error) {
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		r.cur = &tarMember{name: hdr.Name, size: hdr.Size, tr: r.tr}
		return r.cur, nil
	}
}

func (r *tarGzReader) Close() error {
	gzErr := r.gzr.Close()
	fErr := r.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// tarMember wraps the shared tar.Reader; Open just returns the stream
// positioned at this member's content (tar.Reader advances itself).
type tarMember struct {
	name string
	size int64
	tr   *tar.Reader
}

func (m *tarMember) Name() string { return m.name }
func (m *tarMember) Size() int64  { return m.size }
func (m *tarMember) Open() (io.ReadCloser, error) {
	return io.NopCloser(m.tr), nil
}
