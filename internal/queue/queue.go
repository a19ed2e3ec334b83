// Package queue implements the bounded, back-pressured pipeline that moves
// FileItems through the matched → fileStability → md5 → packaging →
// transport stages (spec §4.2).
//
// A single mutex protects every stage's waiting list plus the retrying
// and terminal lists, mirroring the teacher's one-mutex-per-shared-map
// discipline (dupedog/internal/scanner.go's single dirCache.mu covering
// every map access). There is no contention hazard in splitting the lock
// per stage that would justify the added complexity at this queue's scale.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

// Config holds the per-run tunables named in spec §4.2 "Configuration".
type Config struct {
	MaxConcurrentFileChecks int           // default 5
	MaxConcurrentTransfers  int           // default 3
	StabilityRetryDelay     time.Duration // default 30s
	MaxRetries              int           // default 3
}

// DefaultConfig returns the defaults spec §4.2 names.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFileChecks: 5,
		MaxConcurrentTransfers:  3,
		StabilityRetryDelay:     30 * time.Second,
		MaxRetries:              3,
	}
}

// Queue is the multi-stage processing engine (spec §4.2).
//
// Designed for a single run: create with New, Add every matched item, then
// drive stages via ProcessMatched/NextBatch/MarkCompleted/MarkFailed/Retry
// until IsAllDone reports true.
type Queue struct {
	cfg Config

	mu        sync.Mutex
	waiting   map[types.Stage][]*types.QueueItem
	retrying  []*types.QueueItem
	completed []*types.QueueItem
	failed    []*types.QueueItem
}

// New creates a Queue using cfg.
func New(cfg Config) *Queue {
	return &Queue{
		cfg: cfg,
		waiting: map[types.Stage][]*types.QueueItem{
			types.StageMatched:       nil,
			types.StageFileStability: nil,
			types.StageMD5:           nil,
			types.StagePackaging:     nil,
			types.StageTransport:     nil,
		},
	}
}

// nextStage returns the stage after s, or false if s is terminal.
func nextStage(s types.Stage) (types.Stage, bool) {
	switch s {
	case types.StageMatched:
		return types.StageFileStability, true
	case types.StageFileStability:
		return types.StageMD5, true
	case types.StageMD5:
		return types.StagePackaging, true
	case types.StagePackaging:
		return types.StageTransport, true
	default:
		return 0, false
	}
}

// Add places item into the matched intake (spec §4.2 "add(item)").
func (q *Queue) Add(item *types.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item.Stage = types.StageMatched
	item.Status = types.StatusWaiting
	q.waiting[types.StageMatched] = append(q.waiting[types.StageMatched], item)
}

// ProcessMatched drains every item out of the matched intake into
// fileStability's waiting list, and returns how many were moved
// (spec §4.2 "processMatched()").
func (q *Queue) ProcessMatched() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.waiting[types.StageMatched]
	q.waiting[types.StageMatched] = nil
	for _, it := range items {
		it.Stage = types.StageFileStability
		it.Status = types.StatusWaiting
	}
	q.waiting[types.StageFileStability] = append(q.waiting[types.StageFileStability], items...)
	return len(items)
}

// NextBatch dequeues up to n waiting items from stage's FIFO list, marks
// them processing, and returns them for the caller to run through its
// stage handler (spec §4.2 "nextBatch(stage, n, handler)"). The caller
// reports the outcome back via MarkCompleted, MarkFailed, or Retry.
func (q *Queue) NextBatch(stage types.Stage, n int) []*types.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.waiting[stage]
	if n > len(list) {
		n = len(list)
	}
	batch := list[:n]
	q.waiting[stage] = list[n:]

	for _, it := range batch {
		it.Status = types.StatusProcessing
		it.LastAttempt = time.Now()
	}
	return batch
}

// MarkCompleted reports that item finished processing successfully at its
// current stage. A non-terminal stage advances the item into the next
// stage's waiting list; completing transport, the last stage, is terminal
// (spec §4.2 "markCompleted(path)").
func (q *Queue) MarkCompleted(item *types.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if next, ok := nextStage(item.Stage); ok {
		item.Stage = next
		item.Status = types.StatusWaiting
		q.waiting[next] = append(q.waiting[next], item)
		return
	}
	item.Status = types.StatusCompleted
	q.completed = append(q.completed, item)
}

// MarkFailed moves item to the terminal failed state with reason
// (spec §4.2 "markFailed(path, reason)").
func (q *Queue) MarkFailed(item *types.QueueItem, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.markFailedLocked(item, reason)
}

func (q *Queue) markFailedLocked(item *types.QueueItem, reason string) {
	item.Status = types.StatusFailed
	item.FailureReason = reason
	q.failed = append(q.failed, item)
}

// Retry reports a stage failure that may be retried. If item's attempt
// count has reached MaxRetries it is moved to the terminal failed state
// instead; otherwise it is parked with a next-attempt deadline of
// now + StabilityRetryDelay (spec §4.2 "retry(item, stage)").
func (q *Queue) Retry(item *types.QueueItem, stage types.Stage, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item.Attempt++
	if item.Attempt >= q.cfg.MaxRetries {
		q.markFailedLocked(item, fmt.Sprintf("max retries (%d) exceeded at stage %s: %s", q.cfg.MaxRetries, stage, reason))
		return
	}
	item.Status = types.StatusRetrying
	item.FailureReason = reason
	item.NextAttemptAt = time.Now().Add(q.cfg.StabilityRetryDelay)
	q.retrying = append(q.retrying, item)
}

// PromoteDueRetries moves every retrying item whose deadline has arrived
// back onto the tail of its stage's waiting list (spec §4.2 "Fairness").
// It returns how many items were promoted.
func (q *Queue) PromoteDueRetries() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var due, notDue []*types.QueueItem
	for _, it := range q.retrying {
		if !now.Before(it.NextAttemptAt) {
			due = append(due, it)
		} else {
			notDue = append(notDue, it)
		}
	}
	q.retrying = notDue

	for _, it := range due {
		it.Status = types.StatusWaiting
		q.waiting[it.Stage] = append(q.waiting[it.Stage], it)
	}
	return len(due)
}

// Stats is the coarse summary returned by Stats() (spec §4.2 "stats()").
type Stats struct {
	Waiting   int
	Retrying  int
	Completed int
	Failed    int
}

// Total returns waiting + retrying + completed + failed. Items checked out
// by NextBatch and not yet reported back are in none of these counts, so
// they are not included.
func (s Stats) Total() int { return s.Waiting + s.Retrying + s.Completed + s.Failed }

// Stats returns aggregate counts across every stage (spec §4.2 "stats()").
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var waiting int
	for _, list := range q.waiting {
		waiting += len(list)
	}
	return Stats{
		Waiting:   waiting,
		Retrying:  len(q.retrying),
		Completed: len(q.completed),
		Failed:    len(q.failed),
	}
}

// DetailedStats is the per-stage breakdown returned by DetailedStats()
// (spec §4.2 "detailedStats()"). A typed struct is used in place of a
// stringly-keyed map so callers get compile-time field checking.
type DetailedStats struct {
	Matched       int
	FileStability int
	MD5           int
	Packaging     int
	Transport     int
	Retrying      int
	Completed     int
	Failed        int
}

// DetailedStats returns per-stage waiting counts plus the terminal and
// retrying totals.
func (q *Queue) DetailedStats() DetailedStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return DetailedStats{
		Matched:       len(q.waiting[types.StageMatched]),
		FileStability: len(q.waiting[types.StageFileStability]),
		MD5:           len(q.waiting[types.StageMD5]),
		Packaging:     len(q.waiting[types.StagePackaging]),
		Transport:     len(q.waiting[types.StageTransport]),
		Retrying:      len(q.retrying),
		Completed:     len(q.completed),
		Failed:        len(q.failed),
	}
}

// IsAllDone reports whether every stage's waiting list is empty and no
// retry deadlines remain pending (spec §4.2 "isAllDone()"). Items
// currently checked out via NextBatch are the caller's responsibility to
// report back before this can become true.
func (q *Queue) IsAllDone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.retrying) > 0 {
		return false
	}
	for _, list := range q.waiting {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

// Completed returns every item that reached the terminal completed state.
func (q *Queue) Completed() []*types.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.QueueItem, len(q.completed))
	copy(out, q.completed)
	return out
}

// Failed returns every item that reached the terminal failed state.
func (q *Queue) Failed() []*types.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.QueueItem, len(q.failed))
	copy(out, q.failed)
	return out
}

// Clear empties every stage list, the retry queue, and both terminal
// lists (spec §4.2 "clear()", used at shutdown).
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for stage := range q.waiting {
		q.waiting[stage] = nil
	}
	q.retrying = nil
	q.completed = nil
	q.failed = nil
}
