// Package scanner discovers files beneath a root directory, matching them
// against rule-based filters and recursing into archives (spec §4.1).
//
// # Architecture
//
// The walk follows the teacher's fan-out/fan-in shape: one goroutine is
// spawned per directory discovered, bounded by a semaphore, feeding a
// single buffered result channel drained by one collector goroutine.
// Archive recursion (archivescan.go) runs as a separate, explicit work
// queue per container file — never as nested Go-level recursion, so a
// pathological zip-quine-like input cannot overflow the call stack
// (spec §9 "Design Notes").
package scanner

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ivoronin/fileferry/internal/types"
)

// Scanner discovers FileItems matching ScanOptions.Rules under RootDir.
//
// Designed for single-use: create with New, call Run once, and call Close
// once every matched FileItem's Path has been read by later pipeline
// stages.
type Scanner struct {
	opts    types.ScanOptions
	workers int

	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan *types.FileItem
	failCh    chan types.ScanFailure

	// extractDir stages every archive-member extraction for this Run: both
	// containers opened in-flight for recursion and matched members
	// emitted as results. It is the Scanner's, unique per invocation, and
	// outlives Run so that archive-origin FileItem.Path values stay valid
	// for the rest of the pipeline; Close removes it (spec §5 "Resource
	// discipline" / "Temp directories: each scanner task owns a unique
	// path").
	extractDir string
}

// New creates a Scanner for opts, bounding concurrent directory reads to
// workers (use 1 or more; values <1 are treated as 1).
func New(opts types.ScanOptions, workers int) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{opts: opts, workers: workers}
}

// Run executes the scan and returns every matched FileItem plus every
// ScanFailure encountered. Failures never abort the run (spec §4.1).
// Callers must call Close once done with the results.
func (s *Scanner) Run() ([]*types.FileItem, []types.ScanFailure) {
	extractDir, err := os.MkdirTemp("", "fileferry-scan-*")
	if err != nil {
		return nil, []types.ScanFailure{{Kind: types.FailureRead, Path: s.opts.RootDir, Message: err.Error()}}
	}
	s.extractDir = extractDir

	s.walkerSem = types.NewSemaphore(s.workers)
	s.resultCh = make(chan *types.FileItem, 1000)
	s.failCh = make(chan types.ScanFailure, 1000)

	var (
		results   []*types.FileItem
		failures  []types.ScanFailure
		collectWg sync.WaitGroup
	)
	collectWg.Add(2)
	go func() {
		defer collectWg.Done()
		for r := range s.resultCh {
			results = append(results, r)
		}
	}()
	go func() {
		defer collectWg.Done()
		for f := range s.failCh {
			failures = append(failures, f)
		}
	}()

	root, err := filepath.Abs(s.opts.RootDir)
	if err != nil {
		s.sendFailure(types.ScanFailure{Kind: types.FailureRead, Path: s.opts.RootDir, Message: err.Error()})
	} else {
		s.walkDirectory(root, 0)
	}

	s.walkerWg.Wait()
	close(s.resultCh)
	close(s.failCh)
	collectWg.Wait()

	return results, failures
}

// walkDirectory spawns a goroutine to list one directory, match its files,
// dispatch container files to archive recursion, and recurse into
// subdirectories (bounded by depth).
func (s *Scanner) walkDirectory(dir string, depthSoFar int) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		s.walkerSem.Acquire()
		defer s.walkerSem.Release()

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.sendFailure(classifyReadErr(dir, err))
			return
		}

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())

			if entry.IsDir() {
				if _, skip := s.opts.SkipDirs[entry.Name()]; skip {
					continue
				}
				if s.opts.Depth < 0 || depthSoFar < s.opts.Depth {
					s.walkDirectory(full, depthSoFar+1)
				}
				continue
			}

			if entry.Type()&os.ModeSymlink != 0 && !s.opts.FollowSymlinks {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				s.sendFailure(types.ScanFailure{Kind: types.FailureRead, Path: full, Message: err.Error()})
				continue
			}
			if info.Mode()&os.ModeSymlink != 0 {
				// DirEntry.Info reports the link itself, not its target; the
				// early continue above already dropped !FollowSymlinks, so
				// resolving here is always wanted.
				info, err = os.Stat(full)
				if err != nil {
					s.sendFailure(types.ScanFailure{Kind: types.FailureRead, Path: full, Message: err.Error()})
					continue
				}
			}
			if !info.Mode().IsRegular() {
				continue
			}

			s.processFile(full, entry.Name(), info)
		}
	}()
}

// processFile matches a single regular file and, if it is a known
// container, dispatches it to archive recursion (spec §4.1 steps 1-4).
func (s *Scanner) processFile(path, name string, info os.FileInfo) {
	matched := types.MatchAny(s.opts.Rules, name) && withinMaxSize(info.Size(), s.opts.MaxFileSize)
	isContainer := isContainerName(name)

	if matched {
		origin := types.OriginFilesystem
		if isContainer {
			// A matching container is emitted as an archive-origin item at
			// nestedLevel=0 (spec §4.1 step 1), not a filesystem-origin one:
			// it is still opened for members below.
			origin = types.OriginArchive
		}
		s.resultCh <- &types.FileItem{
			Path:      path,
			Name:      name,
			Origin:    origin,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			CreatedAt: info.ModTime(),
		}
	}

	if isContainer && s.opts.ScanNestedArchives {
		s.scanArchive(path, name)
	}
}

func withinMaxSize(size, max int64) bool {
	return max <= 0 || size <= max
}

func classifyReadErr(path string, err error) types.ScanFailure {
	kind := types.FailureRead
	if os.IsPermission(err) {
		kind = types.FailurePermission
	}
	return types.ScanFailure{Kind: kind, Path: path, Message: err.Error()}
}

func (s *Scanner) sendFailure(f types.ScanFailure) {
	if s.failCh != nil {
		s.failCh <- f
	}
}

// Close removes the scanner's archive-extraction staging directory.
// Callers must call Close only after every matched FileItem's Path has
// been read by later pipeline stages, since archive-origin items point
// into this directory (spec §5 "Resource discipline").
func (s *Scanner) Close() error {
	if s.extractDir == "" {
		return nil
	}
	return os.RemoveAll(s.extractDir)
}

// copyToTemp copies src's content to a new temp file in dir, returning its
// path. Used for every matched archive member (its own FileItem.Path) and
// for any member that is itself a container being recursed into: container
// readers generally require a seekable file, so both need materializing
// before use.
func copyToTemp(dir string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(dir, "nested-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
