package archive

import (
	"io"

	rardecode "github.com/nwaples/rardecode/v2"
)

func init() {
	Register("rar", openRar)
}

// rarReader adapts github.com/nwaples/rardecode/v2, which exposes a single
// io.Reader positioned at the current entry rather than per-member handles.
// Per spec §4.1 "Policy for RAR when no decoder is available", failure to
// open is surfaced by the scanner as an archive-open ScanFailure, never a
// fatal error.
type rarReader struct {
	rc  *rardecode.ReadCloser
	rr  *rardecode.Reader
	cur *rarMember
}

func openRar(path string) (Reader, error) {
	rr, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &rarReader{rc: rr, rr: &rr.Reader}, nil
}

func (r *rarReader) Next() (Member, error) {
	for {
		hdr, err := r.rr.Next()
		if err != nil {
			return nil, err
		}
		if hdr.IsDir {
			continue
		}
		r.cur = &rarMember{name: hdr.Name, size: hdr.UnPackedSize, rr: r.rr}
		return r.cur, nil
	}
}

func (r *rarReader) Close() error { return r.rc.Close() }

type rarMember struct {
	name string
	size int64
	rr   *rardecode.Reader
}

func (m *rarMember) Name() string { return m.name }
func (m *rarMember) Size() int64  { return m.size }
func (m *rarMember) Open() (io.ReadCloser, error) {
	return io.NopCloser(m.rr), nil
}
