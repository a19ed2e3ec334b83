package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := withRetry(3, func() (*types.TransportResult, error) {
		calls++
		return &types.TransportResult{Success: true}, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if result.Retries != 0 {
		t.Errorf("Retries = %d, want 0", result.Retries)
	}
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	start := time.Now()
	result, err := withRetry(3, func() (*types.TransportResult, error) {
		calls++
		if calls < 3 {
			return &types.TransportResult{Success: false}, errors.New("transient")
		}
		return &types.TransportResult{Success: true}, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if result.Retries != 2 {
		t.Errorf("Retries = %d, want 2", result.Retries)
	}
	if time.Since(start) < 2*uploadRetryDelay {
		t.Errorf("retry did not pause between attempts")
	}
}

func TestWithRetryLocalFileMissingFailsFast(t *testing.T) {
	calls := 0
	_, err := withRetry(3, func() (*types.TransportResult, error) {
		calls++
		e := newError(ErrLocalFileNotFound, errors.New("no such file"))
		return &types.TransportResult{Success: false, Err: e}, e
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (non-retriable)", calls)
	}
	var terr *Error
	if !errors.As(err, &terr) || terr.Code != ErrLocalFileNotFound {
		t.Errorf("err = %v, want ErrLocalFileNotFound", err)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	calls := 0
	result, err := withRetry(2, func() (*types.TransportResult, error) {
		calls++
		return &types.TransportResult{Success: false}, errors.New("still failing")
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", calls)
	}
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if result.Retries != 2 {
		t.Errorf("Retries = %d, want 2", result.Retries)
	}
}
