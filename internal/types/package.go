package types

import "path/filepath"

// Package is an ordered group of QueueItems sealed into one transportable
// archive (spec §3/§4.5).
type Package struct {
	Name       string // generated filename, e.g. package_20260731_153000_0.zip
	Items      []*QueueItem
	TotalBytes int64
	LocalPath  string // set once sealed
}

// MemberPath returns the path a QueueItem's file should have inside the
// package: the nestedPath for archive-origin items, the path relative to
// rootDir for filesystem-origin items (spec §4.5).
func MemberPath(rootDir string, item *FileItem) string {
	if item.Origin == OriginArchive && item.NestedPath != "" {
		return item.NestedPath
	}
	return relPath(rootDir, item.Path)
}

// relPath returns path relative to root, falling back to the base name if
// the two share no common ancestor.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
