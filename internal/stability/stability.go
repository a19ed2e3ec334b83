// Package stability decides whether a file has stopped changing before it
// is fingerprinted and shipped (spec §4.3).
package stability

import (
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotStable is returned when size or mtime changed between samples.
var ErrNotStable = errors.New("stability: file still changing")

// ErrVanished is returned when the file disappears mid-check.
var ErrVanished = errors.New("stability: file not found")

// Detector samples a file's size and modification time twice, separated by
// Delay, and declares it stable if both are unchanged and size > 0
// (spec §4.3 "Algorithm").
type Detector struct {
	Delay time.Duration
}

// New creates a Detector using delay between samples.
func New(delay time.Duration) *Detector {
	return &Detector{Delay: delay}
}

// Check samples path, waits d.Delay, samples again, and reports whether the
// file is stable. It never retries internally — the caller (the queue's
// retry loop, spec §4.2) is responsible for re-invoking Check up to
// maxRetries.
func (d *Detector) Check(path string) error {
	first, err := stat(path)
	if err != nil {
		return err
	}

	timer := backoff.NewConstantBackOff(d.Delay)
	time.Sleep(timer.NextBackOff())

	second, err := stat(path)
	if err != nil {
		return err
	}

	if second.size != first.size || !second.modTime.Equal(first.modTime) {
		return ErrNotStable
	}
	if second.size == 0 {
		return ErrNotStable
	}
	return nil
}

type sample struct {
	size    int64
	modTime time.Time
}

func stat(path string) (sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sample{}, ErrVanished
		}
		return sample{}, err
	}
	return sample{size: info.Size(), modTime: info.ModTime()}, nil
}
