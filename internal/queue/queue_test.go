package queue

import (
	"testing"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

func newItem(path string) *types.QueueItem {
	return types.NewQueueItem(&types.FileItem{Path: path, Name: path, Size: 10})
}

func TestAddAndProcessMatched(t *testing.T) {
	q := New(DefaultConfig())
	q.Add(newItem("a"))
	q.Add(newItem("b"))

	if got := q.DetailedStats().Matched; got != 2 {
		t.Fatalf("Matched = %d, want 2", got)
	}

	moved := q.ProcessMatched()
	if moved != 2 {
		t.Fatalf("ProcessMatched() = %d, want 2", moved)
	}
	if got := q.DetailedStats().FileStability; got != 2 {
		t.Fatalf("FileStability = %d, want 2", got)
	}
}

func TestNextBatchRespectsLimit(t *testing.T) {
	q := New(DefaultConfig())
	for _, p := range []string{"a", "b", "c"} {
		q.Add(newItem(p))
	}
	q.ProcessMatched()

	batch := q.NextBatch(types.StageFileStability, 2)
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	for _, it := range batch {
		if it.Status != types.StatusProcessing {
			t.Errorf("batch item status = %v, want processing", it.Status)
		}
	}
	if got := q.DetailedStats().FileStability; got != 1 {
		t.Fatalf("remaining FileStability = %d, want 1", got)
	}
}

func TestMarkCompletedAdvancesStage(t *testing.T) {
	q := New(DefaultConfig())
	q.Add(newItem("a"))
	q.ProcessMatched()

	batch := q.NextBatch(types.StageFileStability, 1)
	q.MarkCompleted(batch[0])

	if batch[0].Stage != types.StageMD5 {
		t.Errorf("Stage = %v, want md5", batch[0].Stage)
	}
	if batch[0].Status != types.StatusWaiting {
		t.Errorf("Status = %v, want waiting", batch[0].Status)
	}
	if got := q.DetailedStats().MD5; got != 1 {
		t.Fatalf("MD5 waiting = %d, want 1", got)
	}
}

func TestMarkCompletedOnTransportIsTerminal(t *testing.T) {
	q := New(DefaultConfig())
	item := newItem("a")
	item.Stage = types.StageTransport
	q.MarkCompleted(item)

	if item.Status != types.StatusCompleted {
		t.Fatalf("Status = %v, want completed", item.Status)
	}
	if len(q.Completed()) != 1 {
		t.Fatalf("len(Completed()) = %d, want 1", len(q.Completed()))
	}
}

func TestRetryExhaustsToFailed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	q := New(cfg)
	item := newItem("a")
	item.Stage = types.StageFileStability

	q.Retry(item, types.StageFileStability, "not stable")
	if item.Status != types.StatusRetrying {
		t.Fatalf("after first retry, Status = %v, want retrying", item.Status)
	}

	q.Retry(item, types.StageFileStability, "not stable again")
	if item.Status != types.StatusFailed {
		t.Fatalf("after exhausting retries, Status = %v, want failed", item.Status)
	}
	if len(q.Failed()) != 1 {
		t.Fatalf("len(Failed()) = %d, want 1", len(q.Failed()))
	}
}

func TestPromoteDueRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StabilityRetryDelay = time.Millisecond
	q := New(cfg)
	item := newItem("a")
	item.Stage = types.StageFileStability

	q.Retry(item, types.StageFileStability, "not stable")
	if q.PromoteDueRetries() != 0 {
		t.Fatalf("promoted before deadline")
	}

	time.Sleep(5 * time.Millisecond)
	promoted := q.PromoteDueRetries()
	if promoted != 1 {
		t.Fatalf("PromoteDueRetries() = %d, want 1", promoted)
	}
	if item.Status != types.StatusWaiting {
		t.Fatalf("Status = %v, want waiting", item.Status)
	}
	if got := q.DetailedStats().FileStability; got != 1 {
		t.Fatalf("FileStability waiting = %d, want 1", got)
	}
}

func TestIsAllDone(t *testing.T) {
	q := New(DefaultConfig())
	if !q.IsAllDone() {
		t.Fatalf("empty queue should be all done")
	}

	q.Add(newItem("a"))
	if q.IsAllDone() {
		t.Fatalf("queue with a waiting item should not be all done")
	}
}

func TestClear(t *testing.T) {
	q := New(DefaultConfig())
	q.Add(newItem("a"))
	q.Add(newItem("b"))
	q.Clear()

	if !q.IsAllDone() {
		t.Fatalf("cleared queue should be all done")
	}
	if q.DetailedStats().Matched != 0 {
		t.Fatalf("cleared queue should have zero matched")
	}
}
