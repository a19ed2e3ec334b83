package transport

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ivoronin/fileferry/internal/types"
)

// ftpAdapter implements Adapter for FTP and FTPS (FTP over explicit TLS,
// server certificate not validated by default per spec §4.6).
type ftpAdapter struct {
	opts   Options
	useTLS bool
	conn   *ftp.ServerConn
}

func newFTPAdapter(opts Options, useTLS bool) *ftpAdapter {
	return &ftpAdapter{opts: opts, useTLS: useTLS}
}

func (a *ftpAdapter) Connect() error {
	addr := fmt.Sprintf("%s:%d", a.opts.Host, a.opts.Port)
	timeout := a.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var dialOpts []ftp.DialOption
	dialOpts = append(dialOpts, ftp.DialWithTimeout(timeout))
	if a.opts.Debug {
		dialOpts = append(dialOpts, ftp.DialWithDebugOutput(os.Stderr))
	}
	if a.useTLS {
		//nolint:gosec // spec §4.6: server cert is not validated by default
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(&tls.Config{InsecureSkipVerify: true}))
	}

	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return newError(ErrFTPConnectionError, err)
	}
	if err := conn.Login(a.opts.Username, a.opts.Password); err != nil {
		return newError(ErrFTPConnectionError, err)
	}
	a.conn = conn
	return nil
}

func (a *ftpAdapter) Disconnect() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Quit()
	a.conn = nil
	if err != nil {
		return newError(ErrFTPDisconnectError, err)
	}
	return nil
}

func (a *ftpAdapter) ensureDir(remoteDir string) error {
	if remoteDir == "" || remoteDir == "/" {
		return nil
	}
	parts := strings.Split(strings.Trim(remoteDir, "/"), "/")
	cur := ""
	for _, p := range parts {
		cur += "/" + p
		// MakeDir is idempotent here: an "already exists" failure is
		// swallowed, any other failure surfaces as a mkdir error.
		if err := a.conn.MakeDir(cur); err != nil && !strings.Contains(strings.ToLower(err.Error()), "exist") {
			return newError(ErrFTPMkdirError, err)
		}
	}
	return nil
}

func (a *ftpAdapter) Upload(localPath, remotePath string) (*types.TransportResult, error) {
	if a.conn == nil {
		return nil, newError(ErrFTPNotConnected, nil)
	}

	started := time.Now()
	f, err := os.Open(localPath)
	if err != nil {
		return &types.TransportResult{
			Success: false, LocalPath: localPath, RemotePath: remotePath,
			Err: newError(ErrLocalFileNotFound, err), StartedAt: started, EndedAt: time.Now(),
		}, newError(ErrLocalFileNotFound, err)
	}
	defer func() { _ = f.Close() }()

	dir := remotePath[:strings.LastIndex(remotePath, "/")+1]
	if err := a.ensureDir(dir); err != nil {
		return &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: remotePath, Err: err, StartedAt: started, EndedAt: time.Now()}, err
	}

	if err := a.conn.Stor(remotePath, f); err != nil {
		return &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: remotePath, Err: err, StartedAt: started, EndedAt: time.Now()}, err
	}

	return &types.TransportResult{
		Success: true, LocalPath: localPath, RemotePath: remotePath,
		StartedAt: started, EndedAt: time.Now(),
	}, nil
}

func (a *ftpAdapter) UploadBatch(items []UploadItem) []*types.TransportResult {
	results := make([]*types.TransportResult, len(items))
	for i, it := range items {
		r, err := a.Upload(it.LocalPath, it.RemotePath)
		if err != nil && r == nil {
			r = &types.TransportResult{Success: false, LocalPath: it.LocalPath, RemotePath: it.RemotePath, Err: err}
		}
		results[i] = r
	}
	return results
}

func (a *ftpAdapter) Exists(remotePath string) (bool, error) {
	if a.conn == nil {
		return false, newError(ErrFTPNotConnected, nil)
	}
	_, err := a.conn.FileSize(remotePath)
	if err != nil {
		return false, nil
	}
	return true, nil
}
