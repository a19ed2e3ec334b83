package transport

import (
	"errors"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

// TransferFile delivers the local file at localPath to remotePath (relative
// to opts.RemoteRoot) following the facade sequence named in spec §4.6
// "Transfer facade": bail out fast if transport is disabled, construct the
// adapter, connect, upload with retries, and always attempt disconnect
// without letting a disconnect failure affect the reported upload result.
func TransferFile(localPath, remotePath string, opts Options) *types.TransportResult {
	started := time.Now()

	if !opts.Enabled {
		return &types.TransportResult{
			Success: false, LocalPath: localPath, RemotePath: remotePath,
			Err: errors.New("transport disabled"), StartedAt: started, EndedAt: time.Now(),
		}
	}

	full := remotePath
	if opts.RemoteRoot != "" {
		full = joinRemotePath(opts.RemoteRoot, remotePath)
	}

	adapter, err := newAdapter(opts)
	if err != nil {
		return &types.TransportResult{
			Success: false, LocalPath: localPath, RemotePath: full,
			Err: err, StartedAt: started, EndedAt: time.Now(),
		}
	}

	if err := adapter.Connect(); err != nil {
		return &types.TransportResult{
			Success: false, LocalPath: localPath, RemotePath: full,
			Err: err, StartedAt: started, EndedAt: time.Now(),
		}
	}

	result, _ := withRetry(opts.RetryCount, func() (*types.TransportResult, error) {
		return adapter.Upload(localPath, full)
	})

	// Disconnect errors never overwrite the upload outcome.
	_ = adapter.Disconnect()

	if result == nil {
		result = &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: full}
	}
	return result
}
