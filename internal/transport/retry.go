package transport

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ivoronin/fileferry/internal/types"
)

// uploadRetryDelay is the fixed pause between upload attempts
// (spec §4.6 "Retry: ... a 1-second pause between attempts").
const uploadRetryDelay = time.Second

// withRetry calls upload up to retryCount+1 times, pausing uploadRetryDelay
// between attempts, and returns the first successful result or the last
// failure. A local-file-missing error is non-retriable and returns
// immediately (spec §4.6 "Local-file-missing is a non-retriable error").
// The returned result's Retries field counts executed retries (0 if the
// first attempt succeeded).
func withRetry(retryCount int, upload func() (*types.TransportResult, error)) (*types.TransportResult, error) {
	if retryCount < 0 {
		retryCount = 0
	}
	b := backoff.NewConstantBackOff(uploadRetryDelay)

	var (
		result  *types.TransportResult
		err     error
		retries int
	)

	for attempt := 0; attempt <= retryCount; attempt++ {
		result, err = upload()
		if err == nil && result != nil && result.Success {
			break
		}

		var terr *Error
		if errors.As(err, &terr) && terr.Code == ErrLocalFileNotFound {
			break
		}

		if attempt == retryCount {
			break
		}
		retries++
		time.Sleep(b.NextBackOff())
	}

	if result != nil {
		result.Retries = retries
	}
	return result, err
}
