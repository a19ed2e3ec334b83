package scanner

import (
	"errors"
	"os"
	"path"
	"strings"

	"github.com/ivoronin/fileferry/internal/archive"
	"github.com/ivoronin/fileferry/internal/types"
)

// archiveContainerExts are the extensions the scanner recognizes as
// containers worth opening for members (spec §4.1 "known container").
// tar.gz containers are matched on ".gz" (and the ".tgz" alias); a bare
// ".tar" is not recognized as a container, and the archive registry has
// no opener for it either.
var archiveContainerExts = map[string]struct{}{
	"zip": {},
	"rar": {},
	"tgz": {},
	"gz":  {},
}

func isContainerName(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	_, ok := archiveContainerExts[ext]
	return ok
}

// archiveJob is one unit of work in the explicit recursion queue, keyed on
// (virtual display path, level) per spec §9 "Design Notes" — container
// recursion never uses Go-level recursion, so a pathological zip-quine
// cannot overflow the stack.
type archiveJob struct {
	localPath      string // real file on disk (original or extracted temp copy)
	displayPrefix  string // display path accumulated so far, e.g. "outer.zip"
	level          int    // archive boundaries already crossed (0 = root archive)
}

// scanArchive opens path (displayed as name) and processes its members,
// recursing into nested containers up to opts.MaxNestedLevel, using an
// explicit queue rather than function recursion. Extracted member content
// is staged under the Scanner's shared extractDir, which outlives this
// call (spec §5 "Resource discipline").
func (s *Scanner) scanArchive(path, name string) {
	queue := []archiveJob{{localPath: path, displayPrefix: name, level: 0}}

	for len(queue) > 0 {
		job := queue[0]
		queue = queue[1:]

		next, err := s.processArchiveJob(job, s.extractDir)
		if err != nil {
			s.sendFailure(*err)
			continue
		}
		queue = append(queue, next...)
	}
}

// processArchiveJob opens one container, emits matches for its members,
// and returns follow-up jobs for any nested containers found within the
// level budget. A single archive failure is recorded and does not halt
// sibling traversal (spec §4.1 "Resource discipline").
//
// Every matched member is extracted to its own temp file under extractDir
// and that extracted path becomes FileItem.Path, whether or not the
// member is itself a container: a member's bytes live inside the
// enclosing archive, never at the archive's own path on disk, so later
// pipeline stages (stability, fingerprinting, packaging) must read from
// the extracted copy rather than the container file.
func (s *Scanner) processArchiveJob(job archiveJob, extractDir string) ([]archiveJob, *types.ScanFailure) {
	reader, err := archive.Open(job.localPath)
	if err != nil {
		return nil, &types.ScanFailure{
			Kind:    codecFailureKind(err),
			Path:    job.displayPrefix,
			Message: err.Error(),
		}
	}
	defer func() { _ = reader.Close() }()

	var next []archiveJob
	for {
		member, err := reader.Next()
		if err != nil {
			break // io.EOF (normal) or a mid-stream codec error; either way, stop this archive
		}

		virtualPath := job.displayPrefix + "/" + member.Name()
		baseName := path.Base(member.Name())

		matched := types.MatchAny(s.opts.Rules, baseName) && withinMaxSize(member.Size(), s.opts.MaxFileSize)
		recurse := isContainerName(baseName) && job.level < s.opts.MaxNestedLevel

		if !matched && !recurse {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			s.sendFailure(types.ScanFailure{Kind: types.FailureArchiveMember, Path: virtualPath, Message: err.Error()})
			continue
		}
		extractedPath, err := copyToTemp(extractDir, rc)
		_ = rc.Close()
		if err != nil {
			s.sendFailure(types.ScanFailure{Kind: types.FailureArchiveMember, Path: virtualPath, Message: err.Error()})
			continue
		}
		if recurse {
			// archive.Open dispatches on extension, so the staged copy of a
			// nested container keeps the member's own extension.
			withExt := extractedPath + path.Ext(baseName)
			if err := os.Rename(extractedPath, withExt); err != nil {
				s.sendFailure(types.ScanFailure{Kind: types.FailureArchiveMember, Path: virtualPath, Message: err.Error()})
				continue
			}
			extractedPath = withExt
		}

		if matched {
			s.resultCh <- &types.FileItem{
				Path:        extractedPath,
				Name:        baseName,
				Origin:      types.OriginArchive,
				NestedLevel: job.level,
				NestedPath:  virtualPath,
				Size:        member.Size(),
			}
		}

		if recurse {
			next = append(next, archiveJob{
				localPath:     extractedPath,
				displayPrefix: virtualPath,
				level:         job.level + 1,
			})
		}
	}
	return next, nil
}

// codecFailureKind classifies an archive-open error. A missing/unsupported
// codec (spec §4.1 "Policy for RAR when no decoder is available") surfaces
// as codec-unavailable rather than a generic archive-open failure.
func codecFailureKind(err error) types.FailureKind {
	if errors.Is(err, archive.ErrUnsupported) {
		return types.FailureCodecUnavail
	}
	return types.FailureArchiveOpen
}
