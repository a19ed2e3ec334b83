package archive

import (
	"archive/zip"
	"io"
)

func init() {
	Register("zip", openZip)
}

type zipReader struct {
	zr   *zip.ReadCloser
	idx  int
}

func openZip(path string) (Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &zipReader{zr: zr}, nil
}

func (r *zipReader) Next() (Member, error) {
	if r.idx >= len(r.zr.File) {
		return nil, io.EOF
	}
	f := r.zr.File[r.idx]
	r.idx++
	if f.FileInfo().IsDir() {
		return r.Next()
	}
	return &zipMember{f: f}, nil
}

func (r *zipReader) Close() error { return r.zr.Close() }

type zipMember struct {
	f *zip.File
}

func (m *zipMember) Name() string { return m.f.Name }
func (m *zipMember) Size() int64  { return int64(m.f.UncompressedSize64) }
func (m *zipMember) Open() (io.ReadCloser, error) {
	return m.f.Open()
}
