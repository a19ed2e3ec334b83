package types

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// Origin identifies where a FileItem was discovered.
type Origin int

const (
	// OriginFilesystem means the item was found directly under a scanned root.
	OriginFilesystem Origin = iota
	// OriginArchive means the item was found inside an archive (possibly nested).
	OriginArchive
)

func (o Origin) String() string {
	if o == OriginArchive {
		return "archive"
	}
	return "filesystem"
}

// FileItem is a discovered candidate file, matched against a set of MatchRules.
//
// Invariants (spec §3):
//   - Path is unique within a run.
//   - If Origin == OriginFilesystem, NestedLevel == 0 and NestedPath == "".
//   - If Origin == OriginArchive and NestedLevel > 0, NestedPath contains at
//     least one archive separator ("/" joining container display names).
type FileItem struct {
	Path        string    // absolute local path (container file, or extracted temp copy)
	Name        string    // display name (basename for filesystem items, member name for archive items)
	Origin      Origin
	NestedLevel int       // archive boundaries crossed, 0 = top level
	NestedPath  string    // e.g. "outer.zip/middle.rar/inner.docx"
	Size        int64     // bytes
	CreatedAt   time.Time
	ModTime     time.Time
	Fingerprint string    // 32-hex digest, empty until computed
}

// DisplayPath returns NestedPath for archive items, Path otherwise.
func (f *FileItem) DisplayPath() string {
	if f.Origin == OriginArchive && f.NestedPath != "" {
		return f.NestedPath
	}
	return f.Path
}

// MatchRule pairs an extension allow-list with a name regex (spec §3).
// A FileItem matches iff its extension (case-insensitive, no dot) is in
// Extensions (or Extensions is empty, meaning "any") AND Name matches Regex.
type MatchRule struct {
	Extensions []string
	Regex      *regexp.Regexp
}

// NewMatchRule compiles a MatchRule from raw extensions and a regex pattern.
func NewMatchRule(extensions []string, pattern string) (MatchRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return MatchRule{}, fmt.Errorf("compile rule regex %q: %w", pattern, err)
	}
	lower := make([]string, len(extensions))
	for i, e := range extensions {
		lower[i] = strings.ToLower(strings.TrimPrefix(e, "."))
	}
	return MatchRule{Extensions: lower, Regex: re}, nil
}

// Match reports whether name satisfies this rule.
func (r MatchRule) Match(name string) bool {
	if len(r.Extensions) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		ok := false
		for _, e := range r.Extensions {
			if e == ext {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return r.Regex.MatchString(name)
}

// MatchAny reports whether name satisfies at least one of rules (OR semantics).
// An empty rule set matches nothing.
func MatchAny(rules []MatchRule, name string) bool {
	for _, r := range rules {
		if r.Match(name) {
			return true
		}
	}
	return false
}

// ScanOptions configures a Scanner run (spec §3/§4.1).
type ScanOptions struct {
	RootDir            string
	Rules              []MatchRule
	Depth              int            // -1 = unlimited, 0 = root only
	SkipDirs           map[string]struct{}
	MaxFileSize        int64          // 0 = unlimited
	ScanNestedArchives bool
	MaxNestedLevel     int            // archive boundaries crossed beyond the root archive
	FollowSymlinks     bool           // default false; loop-safe default per spec §4.1
}

// FailureKind enumerates ScanFailure causes (spec §3/§7).
type FailureKind string

const (
	FailurePermission     FailureKind = "permission"
	FailureRead           FailureKind = "read"
	FailureArchiveOpen    FailureKind = "archive-open"
	FailureArchiveMember  FailureKind = "archive-member"
	FailureCodecUnavail   FailureKind = "codec-unavailable"
	FailureTimeout        FailureKind = "timeout"
)

// ScanFailure records a non-fatal error encountered during a scan.
// Failures never abort the run (spec §4.1/§7).
type ScanFailure struct {
	Kind    FailureKind
	Path    string // offending path, possibly a nestedPath
	Message string
}

func (f ScanFailure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Path, f.Message)
}
