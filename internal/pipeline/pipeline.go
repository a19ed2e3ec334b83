// Package pipeline wires the scanner, stability detector, fingerprinter,
// packager, and transport layer into the single public facade
// ScanAndTransport (spec §6).
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ivoronin/fileferry/internal/cache"
	"github.com/ivoronin/fileferry/internal/fingerprint"
	"github.com/ivoronin/fileferry/internal/packager"
	"github.com/ivoronin/fileferry/internal/queue"
	"github.com/ivoronin/fileferry/internal/scanner"
	"github.com/ivoronin/fileferry/internal/stability"
	"github.com/ivoronin/fileferry/internal/transport"
	"github.com/ivoronin/fileferry/internal/types"
)

// PackagingTrigger carries the packaging knobs of spec §6
// "packagingTrigger". Neither field seals a package: packages seal only on
// the packager's byte-size threshold (transport.PackageSizeMB) and at the
// final flush. MaxFiles caps how many items one packaging pass drains
// (4096 when zero); MaxSizeMB is not read by the pipeline.
type PackagingTrigger struct {
	MaxFiles  int
	MaxSizeMB int
}

// Config is the full configuration accepted by ScanAndTransport
// (spec §6 "Config shape").
type Config struct {
	RootDir     string
	OutputDir   string
	Rules       []types.MatchRule
	Depth       int
	SkipDirs    []string
	MaxFileSize int64

	ScanNestedArchives bool
	MaxNestedLevel     int
	FollowSymlinks     bool

	Workers int // scanner directory-walk concurrency; also fingerprint batch concurrency

	Queue            queue.Config
	PackagingTrigger PackagingTrigger
	Transport        transport.Options

	CachePath string // BoltDB fingerprint cache; "" disables caching

	// DryRun runs the scan, stability, and fingerprint stages without
	// sealing packages or contacting a transport (supplements spec §6;
	// mirrors the teacher CLI's --dry-run). Items that pass fingerprinting
	// are not reported: they are left out of ProcessedFiles.
	DryRun bool
}

// FailedItem records one scan failure, or one queue item that ended in the
// terminal failed state (spec §6 "failedItems").
type FailedItem struct {
	Path   string
	Stage  string
	Reason string
}

// TransportSummary reports package-level upload outcomes.
type TransportSummary struct {
	Uploaded int
	Failed   int
}

// Result is ScanAndTransport's return value (spec §6 "returns").
type Result struct {
	Success          bool
	ProcessedFiles   int
	FailedItems      []FailedItem
	PackagePaths     []string
	TransportSummary TransportSummary
	LogFilePath      string
}

// run holds the per-invocation state threaded through the stage helpers,
// kept off Config since it is mutated as the pipeline progresses.
type run struct {
	q            *queue.Queue
	cache        *cache.Cache
	stability    *stability.Detector
	packager     *packager.Packager
	cfg          Config
	itemPackage  map[*types.QueueItem]string
	packagePaths []string
}

// ScanAndTransport runs the full pipeline once: scan cfg.RootDir, carry
// every match through fileStability → md5 → packaging → transport, and
// return an aggregate Result (spec §6).
func ScanAndTransport(cfg Config) (*Result, error) {
	logPath := fmt.Sprintf("scan_transport_log_%s.log", time.Now().Format("20060102_150405"))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logLine := func(format string, args ...any) {
		fmt.Fprintf(logFile, format+"\n", args...)
	}

	logLine("--- ScanAndTransport Start ---")

	skipDirs := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skipDirs[d] = struct{}{}
	}

	scanOpts := types.ScanOptions{
		RootDir:            cfg.RootDir,
		Rules:              cfg.Rules,
		Depth:              cfg.Depth,
		SkipDirs:           skipDirs,
		MaxFileSize:        cfg.MaxFileSize,
		ScanNestedArchives: cfg.ScanNestedArchives,
		MaxNestedLevel:     cfg.MaxNestedLevel,
		FollowSymlinks:     cfg.FollowSymlinks,
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	logLine("Calling scanFiles...")
	sc := scanner.New(scanOpts, workers)
	matched, scanFailures := sc.Run()
	// Archive-origin items' Path values point into the scanner's
	// extraction staging directory; keep it alive until every pipeline
	// stage below has finished reading them, then remove it on every exit
	// path (spec §5 "Resource discipline").
	defer func() { _ = sc.Close() }()
	logLine("scanFiles finished. Processed: %d", len(matched))

	result := &Result{LogFilePath: logPath}
	for _, f := range scanFailures {
		result.FailedItems = append(result.FailedItems, FailedItem{Path: f.Path, Stage: "scan", Reason: f.Error()})
	}

	if len(matched) == 0 {
		logLine("--- ScanAndTransport End --- Success: %v", true)
		result.Success = true
		return result, nil
	}

	q := queue.New(cfg.Queue)
	for _, item := range matched {
		q.Add(types.NewQueueItem(item))
	}
	q.ProcessMatched()

	hashCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open fingerprint cache: %w", err)
	}
	defer func() { _ = hashCache.Close() }()

	r := &run{
		q:           q,
		cache:       hashCache,
		stability:   stability.New(cfg.Queue.StabilityRetryDelay),
		packager:    packager.New(cfg.RootDir, cfg.OutputDir, cfg.Transport.PackageSizeMB),
		cfg:         cfg,
		itemPackage: make(map[*types.QueueItem]string),
	}

	// Items handed on to transport (or to packaging on a dry run) are
	// drained after this loop, so only the stages it drives keep it going.
	for {
		r.runStability()
		r.runFingerprint()
		if !cfg.DryRun {
			r.runPackaging()
		}
		st := q.DetailedStats()
		pending := st.FileStability + st.MD5 + st.Retrying
		if !cfg.DryRun {
			pending += st.Packaging
		}
		if pending == 0 {
			break
		}
		q.PromoteDueRetries()
	}

	if !cfg.DryRun {
		if final, err := r.packager.Flush(); err != nil {
			logLine("packaging: final flush failed: %v", err)
		} else if final != nil {
			r.packagePaths = append(r.packagePaths, final.LocalPath)
			for _, it := range final.Items {
				r.itemPackage[it] = final.LocalPath
				q.MarkCompleted(it)
			}
		}
	}

	var transportSummary TransportSummary
	if !cfg.DryRun {
		transportSummary = r.runTransport()
	}

	for _, it := range q.Failed() {
		result.FailedItems = append(result.FailedItems, FailedItem{
			Path:   it.Item.DisplayPath(),
			Stage:  it.Stage.String(),
			Reason: it.FailureReason,
		})
	}

	result.ProcessedFiles = len(q.Completed())
	result.PackagePaths = r.packagePaths
	result.TransportSummary = transportSummary
	// success is true iff at least one package uploaded successfully and
	// no fatal configuration error occurred; a disabled transport is
	// never itself a failure, so it reports success with an empty
	// transport summary instead (spec §7 "Propagation policy" /
	// "User-visible behavior").
	switch {
	case cfg.DryRun, !cfg.Transport.Enabled:
		result.Success = true
	default:
		result.Success = transportSummary.Uploaded > 0
	}

	logLine("Packages sealed: %d", len(r.packagePaths))
	logLine("Transport: uploaded %d, failed %d", transportSummary.Uploaded, transportSummary.Failed)
	logLine("--- ScanAndTransport End --- Success: %v", result.Success)

	return result, nil
}

// runStability drains the fileStability waiting list in batches bounded
// by the configured concurrency, running the double-sample check
// concurrently within each batch.
func (r *run) runStability() {
	concurrency := r.cfg.Queue.MaxConcurrentFileChecks
	if concurrency < 1 {
		concurrency = 1
	}
	for {
		batch := r.q.NextBatch(types.StageFileStability, concurrency)
		if len(batch) == 0 {
			return
		}
		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(it *types.QueueItem) {
				defer wg.Done()
				if err := r.stability.Check(it.Item.Path); err != nil {
					r.q.Retry(it, types.StageFileStability, err.Error())
					return
				}
				r.q.MarkCompleted(it)
			}(item)
		}
		wg.Wait()
	}
}

// runFingerprint drains the md5 waiting list in batches, computing
// digests concurrently and caching filesystem-origin results.
func (r *run) runFingerprint() {
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for {
		batch := r.q.NextBatch(types.StageMD5, workers*4)
		if len(batch) == 0 {
			return
		}
		results := fingerprint.Batch(batch, workers, r.cache, nil)
		for _, res := range results {
			if res.Err != nil {
				r.q.Retry(res.Item, types.StageMD5, res.Err.Error())
				continue
			}
			res.Item.Item.Fingerprint = res.Digest
			r.q.MarkCompleted(res.Item)
		}
	}
}

// runPackaging drains the packaging waiting list, grouping items via the
// shared packager.Packager. Sealed packages' member items are recorded in
// itemPackage (for the transport stage's association) and advanced
// straight to the transport stage's waiting list. When sealing fails, only
// the item whose Add triggered the seal is retried through the queue; the
// items already pending stay in the packager and are sealed by its next
// successful seal or the final flush.
func (r *run) runPackaging() {
	n := r.cfg.PackagingTrigger.MaxFiles
	if n <= 0 {
		n = 4096
	}

	for {
		batch := r.q.NextBatch(types.StagePackaging, n)
		if len(batch) == 0 {
			return
		}
		for _, item := range batch {
			pkg, err := r.packager.Add(item)
			if err != nil {
				r.q.Retry(item, types.StagePackaging, err.Error())
				continue
			}
			if pkg != nil {
				r.packagePaths = append(r.packagePaths, pkg.LocalPath)
				for _, it := range pkg.Items {
					r.itemPackage[it] = pkg.LocalPath
					r.q.MarkCompleted(it)
				}
			}
		}
	}
}

// runTransport drains the transport waiting list, uploading each item's
// enclosing package (looked up via itemPackage, populated at packaging
// time). Every item sharing a package shares that package's one upload
// attempt and outcome: the first item drained for a given package
// triggers the transfer, and subsequent items for the same package reuse
// its cached result instead of re-uploading.
//
// A disabled transport is not a failure (spec §7 "User-visible
// behavior"): every item is marked completed directly and no connection
// is ever attempted, leaving the transport summary empty.
func (r *run) runTransport() TransportSummary {
	if !r.cfg.Transport.Enabled {
		for {
			batch := r.q.NextBatch(types.StageTransport, 4096)
			if len(batch) == 0 {
				break
			}
			for _, it := range batch {
				r.q.MarkCompleted(it)
			}
		}
		return TransportSummary{}
	}

	concurrency := r.cfg.Queue.MaxConcurrentTransfers
	if concurrency < 1 {
		concurrency = 1
	}

	uploadResults := make(map[string]*types.TransportResult)
	var mu sync.Mutex

	for {
		batch := r.q.NextBatch(types.StageTransport, concurrency)
		if len(batch) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(it *types.QueueItem) {
				defer wg.Done()

				pkgPath, ok := r.itemPackage[it]
				if !ok {
					r.q.MarkFailed(it, "no package association found")
					return
				}

				mu.Lock()
				result, already := uploadResults[pkgPath]
				mu.Unlock()

				if !already {
					remote := filepath.Base(pkgPath)
					result = transport.TransferFile(pkgPath, remote, r.cfg.Transport)
					mu.Lock()
					uploadResults[pkgPath] = result
					mu.Unlock()
				}

				if result.Success {
					r.q.MarkCompleted(it)
				} else {
					reason := "upload failed"
					if result.Err != nil {
						reason = result.Err.Error()
					}
					r.q.MarkFailed(it, reason)
				}
			}(item)
		}
		wg.Wait()
	}

	var summary TransportSummary
	for _, res := range uploadResults {
		if res.Success {
			summary.Uploaded++
		} else {
			summary.Failed++
		}
	}
	return summary
}
