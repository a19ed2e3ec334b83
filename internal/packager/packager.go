// Package packager groups fingerprinted items into bounded zip archives for
// transport (spec §4.5).
package packager

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

// Packager accumulates QueueItems into Packages bounded by a target byte
// size, sealing each one as an atomically-renamed zip file.
//
// Designed for a single run: create with New, call Add for every
// fingerprinted item (sealing packages as the threshold is crossed), and
// call Flush once at the end to seal whatever remains.
type Packager struct {
	rootDir    string
	targetSize int64
	outDir     string

	mu      sync.Mutex
	current []*types.QueueItem
	curSize int64
	seq     int
}

// New creates a Packager rooted at rootDir (used to compute member paths
// for filesystem-origin items), writing sealed packages into outDir, with
// a target size of packageSizeMB megabytes (spec §4.5 "packageSize").
func New(rootDir, outDir string, packageSizeMB int) *Packager {
	if packageSizeMB <= 0 {
		packageSizeMB = 1
	}
	return &Packager{
		rootDir:    rootDir,
		outDir:     outDir,
		targetSize: int64(packageSizeMB) * 1 << 20,
	}
}

// Add appends item to the package under construction. If adding it would
// exceed the target size, the current package is sealed first and item
// starts a new one (spec §4.5 "A package seals when adding the next
// member would exceed the threshold"). Returns the sealed Package, or nil
// if no seal was triggered.
func (p *Packager) Add(item *types.QueueItem) (*types.Package, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := item.Item.Size

	if len(p.current) > 0 && p.curSize+size > p.targetSize {
		pkg, err := p.sealLocked()
		if err != nil {
			return nil, err
		}
		p.current = append(p.current, item)
		p.curSize = size
		return pkg, nil
	}

	p.current = append(p.current, item)
	p.curSize += size
	return nil, nil
}

// Flush seals whatever items remain in the package under construction
// (spec §4.5 "or when the pipeline is flushing"). Returns nil, nil if
// there was nothing pending.
func (p *Packager) Flush() (*types.Package, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.current) == 0 {
		return nil, nil
	}
	return p.sealLocked()
}

// sealLocked writes the current batch of items into a zip file, sealing
// it via write-to-temp-name-then-rename (spec §4.5 "Seal is atomic").
// Caller must hold p.mu.
//
// On failure, the accumulated batch is left in place (not cleared) so the
// caller may retry by calling Flush/Add again rather than losing track of
// which items were in flight.
func (p *Packager) sealLocked() (*types.Package, error) {
	items := p.current
	totalBytes := p.curSize

	name := packageName(time.Now(), p.seq)

	finalPath := filepath.Join(p.outDir, name)
	tempPath := finalPath + ".tmp"

	if err := writeZip(tempPath, p.rootDir, items); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("seal package %s: %w", name, err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("finalize package %s: %w", name, err)
	}

	p.current = nil
	p.curSize = 0
	p.seq++

	return &types.Package{
		Name:       name,
		Items:      items,
		TotalBytes: totalBytes,
		LocalPath:  finalPath,
	}, nil
}

// packageName builds the package_<YYYYMMDD>_<HHMMSS>_<seq>.zip filename
// pattern (spec §4.5 "Package filename pattern").
func packageName(t time.Time, seq int) string {
	return fmt.Sprintf("package_%s_%d.zip", t.Format("20060102_150405"), seq)
}

// writeZip streams every item's content into a new zip file at path,
// naming members via types.MemberPath so archive-origin items keep their
// nestedPath and filesystem-origin items keep their path relative to
// rootDir (spec §4.5 "Member naming").
func writeZip(path, rootDir string, items []*types.QueueItem) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)

	for _, qi := range items {
		if err := addMember(zw, rootDir, qi.Item); err != nil {
			_ = zw.Close()
			return err
		}
	}

	return zw.Close()
}

func addMember(zw *zip.Writer, rootDir string, item *types.FileItem) error {
	src, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", item.Path, err)
	}
	defer func() { _ = src.Close() }()

	member := types.MemberPath(rootDir, item)
	w, err := zw.Create(member)
	if err != nil {
		return fmt.Errorf("create member %s: %w", member, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write member %s: %w", member, err)
	}
	return nil
}
