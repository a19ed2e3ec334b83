package fingerprint

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/ivoronin/fileferry/internal/cache"
	"github.com/ivoronin/fileferry/internal/types"
)

// Result is the outcome of fingerprinting one item.
type Result struct {
	Item   *types.QueueItem
	Digest string
	Err    error
}

// BatchProgressFunc is invoked after an item in the batch completes, with
// the percent (0..100) of total batch bytes accounted for so far, whenever
// that percent differs from the last one reported.
type BatchProgressFunc func(percent int)

// Batch computes digests for every item concurrently, bounded by workers
// (0 or negative means min(len(items), runtime.NumCPU()), per spec §4.4
// "Batch API"), consulting and populating c for whole-file cache hits
// (spec §4.4 "Caching", §4.2 stage "md5"). Results are returned in the
// same order as items. c may be nil, equivalent to a disabled cache.
func Batch(items []*types.QueueItem, workers int, c *cache.Cache, progress BatchProgressFunc) []Result {
	if workers < 1 {
		workers = min(len(items), runtime.NumCPU())
		if workers < 1 {
			workers = 1
		}
	}

	results := make([]Result, len(items))
	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var totalBytes int64
	for _, it := range items {
		totalBytes += it.Item.Size
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		doneBytes int64
		lastPct   = -1
	)

	report := func(n int64) {
		if progress == nil {
			return
		}
		mu.Lock()
		doneBytes += n
		pct := 100
		if totalBytes > 0 {
			pct = int(doneBytes * 100 / totalBytes)
		}
		changed := pct != lastPct
		lastPct = pct
		mu.Unlock()
		if changed {
			progress(pct)
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fingerprintOne(items[i], c)
				report(items[i].Item.Size)
			}
		}()
	}
	wg.Wait()

	return results
}

func fingerprintOne(item *types.QueueItem, c *cache.Cache) Result {
	file := item.Item

	// Archive-origin members have no stable on-disk identity to key a
	// cache entry on (their local path is a scratch extraction that exists
	// only until the scanner is closed), so the cache is only consulted for
	// filesystem-origin items.
	if c != nil && file.Origin == types.OriginFilesystem {
		if digest, err := c.Lookup(file.Path, file.Size, file.ModTime); err == nil && digest != "" {
			return Result{Item: item, Digest: digest}
		}
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		return Result{Item: item, Err: fmt.Errorf("stat %s: %w", file.Path, err)}
	}

	digest, err := Digest(file.Path, nil)
	if err != nil {
		return Result{Item: item, Err: fmt.Errorf("digest %s: %w", file.Path, err)}
	}

	if c != nil && file.Origin == types.OriginFilesystem {
		_ = c.Store(file.Path, file.Size, info.ModTime(), digest)
	}

	return Result{Item: item, Digest: digest}
}
