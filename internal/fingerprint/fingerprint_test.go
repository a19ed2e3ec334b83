package fingerprint

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestDigestEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	digest, err := Digest(path, nil)
	if err != nil {
		t.Fatalf("Digest() = %v", err)
	}
	if digest != emptyDigest {
		t.Errorf("Digest() = %q, want %q", digest, emptyDigest)
	}
}

func TestDigestMatchesStdlib(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := bytes.Repeat([]byte("fileferry"), 1000)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	want := md5.Sum(content)
	got, err := Digest(path, nil)
	if err != nil {
		t.Fatalf("Digest() = %v", err)
	}
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("Digest() = %q, want %q", got, hex.EncodeToString(want[:]))
	}
}

func TestDigestProgressReachesHundred(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	// Above smallFileThreshold so the streaming path (with progress) runs.
	content := bytes.Repeat([]byte("x"), smallFileThreshold+1024)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var last int
	var lastPath string
	_, err := Digest(path, func(pct int, p string) { last = pct; lastPath = p })
	if err != nil {
		t.Fatalf("Digest() = %v", err)
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
	if lastPath != path {
		t.Errorf("progress path = %q, want %q", lastPath, path)
	}
}

func TestDigestSmallFileNoProgress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.bin")
	if err := os.WriteFile(path, []byte("tiny"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	called := false
	_, err := Digest(path, func(int, string) { called = true })
	if err != nil {
		t.Fatalf("Digest() = %v", err)
	}
	if called {
		t.Errorf("progress callback invoked for a whole-file-band read")
	}
}

func TestBufferForBands(t *testing.T) {
	cases := []struct {
		size int64
		want int
	}{
		{largeFileThreshold, mediumBufferSize},
		{largeFileThreshold + 1, largeBufferSize},
	}
	for _, c := range cases {
		if got := bufferFor(c.size); got != c.want {
			t.Errorf("bufferFor(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}
