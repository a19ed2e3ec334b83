package stability

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckStableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d := New(5 * time.Millisecond)
	if err := d.Check(path); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}
}

func TestCheckGrowingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d := New(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = os.WriteFile(path, []byte("hello world, now bigger"), 0o644)
		close(done)
	}()

	err := d.Check(path)
	<-done
	if err != ErrNotStable {
		t.Fatalf("Check() = %v, want ErrNotStable", err)
	}
}

func TestCheckEmptyFileNotStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d := New(time.Millisecond)
	if err := d.Check(path); err != ErrNotStable {
		t.Fatalf("Check() on empty file = %v, want ErrNotStable", err)
	}
}

func TestCheckVanished(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")

	d := New(time.Millisecond)
	if err := d.Check(path); err != ErrVanished {
		t.Fatalf("Check() on missing file = %v, want ErrVanished", err)
	}
}
