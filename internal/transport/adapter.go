// Package transport delivers sealed packages to a remote file server over
// FTP, FTPS, or SFTP through a common Adapter contract (spec §4.6).
package transport

import (
	"fmt"
	"time"

	"github.com/ivoronin/fileferry/internal/types"
)

// Protocol names accepted by NewAdapter.
const (
	ProtocolFTP  = "ftp"
	ProtocolFTPS = "ftps"
	ProtocolSFTP = "sftp"
)

// Options configures a remote connection (spec §4.6, §6 "External
// Interfaces").
type Options struct {
	Enabled    bool   // if false, transferFile fails fast with "transport disabled"
	Protocol   string // "ftp", "ftps", or "sftp"
	Host       string
	Port       int
	Username   string
	Password   string
	RemoteRoot string // base remote directory every upload path is joined under
	RetryCount int

	Timeout      time.Duration
	PackageSizeMB int // spec §6 "transport.packageSize:int(MB)"
	Debug        bool

	// PrivateKeyPath authenticates SFTP via a key instead of Password
	// when set.
	PrivateKeyPath string
}

// Adapter is the transport-agnostic contract every protocol implements
// (spec §4.6 "Adapter contract").
type Adapter interface {
	Connect() error
	Disconnect() error
	Upload(localPath, remotePath string) (*types.TransportResult, error)
	UploadBatch(items []UploadItem) []*types.TransportResult
	Exists(remotePath string) (bool, error)
}

// UploadItem pairs a local file with its destination remote path.
type UploadItem struct {
	LocalPath  string
	RemotePath string
}

// newAdapter constructs the Adapter for opts.Protocol. An unrecognized
// protocol fails fast with ErrUnsupportedProtocol (spec §4.6 "Transfer
// facade" step 2).
func newAdapter(opts Options) (Adapter, error) {
	switch opts.Protocol {
	case ProtocolFTP:
		return newFTPAdapter(opts, false), nil
	case ProtocolFTPS:
		return newFTPAdapter(opts, true), nil
	case ProtocolSFTP:
		return newSFTPAdapter(opts), nil
	default:
		return nil, newError(ErrUnsupportedProtocol, fmt.Errorf("protocol %q", opts.Protocol))
	}
}

// joinRemotePath joins opts.RemoteRoot with rel using forward slashes
// regardless of host OS (spec §4.6 "Full remote path is...").
func joinRemotePath(root, rel string) string {
	root = trimTrailingSlash(root)
	rel = trimLeadingSlash(rel)
	if root == "" {
		return "/" + rel
	}
	return root + "/" + rel
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func trimLeadingSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
