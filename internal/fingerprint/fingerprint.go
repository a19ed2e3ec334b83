// Package fingerprint computes MD5 content digests using a buffer size that
// scales with file size, avoiding the double cost of a tiny buffer on large
// files and a huge allocation on small ones (spec §4.4).
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// emptyDigest is the well-known MD5 of zero bytes, returned directly for
// empty files without opening them (spec §4.4 "Edge cases").
const emptyDigest = "d41d8cd98f00b204e9800998ecf8427e"

// Size bands and their handling (spec §4.4 "Adaptive strategy").
const (
	smallFileThreshold = 10 << 20  // 10MB: read whole file, hash in memory, no progress
	largeFileThreshold = 1 << 30   // 1GB: above this, use the larger buffer
	mediumBufferSize   = 64 << 10  // 64KiB: default streaming buffer
	largeBufferSize    = 1 << 20   // 1MiB: buffer for files > largeFileThreshold
)

// ProgressFunc is invoked at chunk boundaries with the percent (0..100) of
// a file's bytes hashed so far and the file's path. It is only invoked for
// files above smallFileThreshold; files at or below it are hashed whole,
// without progress. May be nil.
type ProgressFunc func(percent int, path string)

// bufferFor returns the read-buffer size for the streaming bands. It is
// meaningless for files at or below smallFileThreshold, which are hashed
// via a single whole-file read instead.
func bufferFor(size int64) int {
	if size > largeFileThreshold {
		return largeBufferSize
	}
	return mediumBufferSize
}

// Digest computes the hex-encoded MD5 digest of the file at path, invoking
// progress (if non-nil) as bytes are streamed for files above
// smallFileThreshold.
func Digest(path string, progress ProgressFunc) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return emptyDigest, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := md5.New()

	if info.Size() <= smallFileThreshold {
		if _, err := io.Copy(hasher, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	}

	buf := make([]byte, bufferFor(info.Size()))
	total := info.Size()
	var read int64
	lastPct := -1

	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			read += int64(n)
			if progress != nil {
				if pct := int(read * 100 / total); pct != lastPct {
					progress(pct, path)
					lastPct = pct
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", rerr
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
