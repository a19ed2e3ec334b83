package transport

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ivoronin/fileferry/internal/types"
)

// sftpAdapter implements Adapter over SSH using pkg/sftp.
type sftpAdapter struct {
	opts Options
	ssh  *ssh.Client
	sftp *sftp.Client
}

func newSFTPAdapter(opts Options) *sftpAdapter {
	return &sftpAdapter{opts: opts}
}

func (a *sftpAdapter) authMethods() ([]ssh.AuthMethod, error) {
	if a.opts.PrivateKeyPath != "" {
		key, err := os.ReadFile(a.opts.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(a.opts.Password)}, nil
}

func (a *sftpAdapter) Connect() error {
	auth, err := a.authMethods()
	if err != nil {
		return newError(ErrSFTPConnectionError, err)
	}

	timeout := a.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg := &ssh.ClientConfig{
		User: a.opts.Username,
		Auth: auth,
		//nolint:gosec // spec §4.6: server cert/host key is not validated by default
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := fmt.Sprintf("%s:%d", a.opts.Host, a.opts.Port)
	conn, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return newError(ErrSFTPConnectionError, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return newError(ErrSFTPConnectionError, err)
	}

	a.ssh = conn
	a.sftp = client
	return nil
}

func (a *sftpAdapter) Disconnect() error {
	var errs []error
	if a.sftp != nil {
		if err := a.sftp.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sftp = nil
	}
	if a.ssh != nil {
		if err := a.ssh.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ssh = nil
	}
	if len(errs) > 0 {
		return newError(ErrSFTPDisconnectError, errs[0])
	}
	return nil
}

func (a *sftpAdapter) Upload(localPath, remotePath string) (*types.TransportResult, error) {
	if a.sftp == nil {
		return nil, newError(ErrSFTPNotConnected, nil)
	}

	started := time.Now()
	src, err := os.Open(localPath)
	if err != nil {
		e := newError(ErrLocalFileNotFound, err)
		return &types.TransportResult{
			Success: false, LocalPath: localPath, RemotePath: remotePath,
			Err: e, StartedAt: started, EndedAt: time.Now(),
		}, e
	}
	defer func() { _ = src.Close() }()

	dir := remotePath[:strings.LastIndex(remotePath, "/")+1]
	if dir != "" {
		if err := a.sftp.MkdirAll(dir); err != nil {
			e := newError(ErrSFTPMkdirError, err)
			return &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: remotePath, Err: e, StartedAt: started, EndedAt: time.Now()}, e
		}
	}

	dst, err := a.sftp.Create(remotePath)
	if err != nil {
		return &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: remotePath, Err: err, StartedAt: started, EndedAt: time.Now()}, err
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return &types.TransportResult{Success: false, LocalPath: localPath, RemotePath: remotePath, Err: err, StartedAt: started, EndedAt: time.Now()}, err
	}

	return &types.TransportResult{
		Success: true, LocalPath: localPath, RemotePath: remotePath,
		StartedAt: started, EndedAt: time.Now(),
	}, nil
}

func (a *sftpAdapter) UploadBatch(items []UploadItem) []*types.TransportResult {
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

func (a *sftpAdapter) Exists(remotePath string) (bool, error) {
	if a.sftp == nil {
		return false, newError(ErrSFTPNotConnected, nil)
	}
	_, err := a.sftp.Stat(remotePath)
	if err != nil {
		return false, nil
	}
	return true, nil
}
