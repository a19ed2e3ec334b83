package pipeline

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivoronin/fileferry/internal/queue"
	"github.com/ivoronin/fileferry/internal/testfs"
	"github.com/ivoronin/fileferry/internal/transport"
	"github.com/ivoronin/fileferry/internal/types"
)

func mustRule(t *testing.T, extensions []string, pattern string) types.MatchRule {
	t.Helper()
	rule, err := types.NewMatchRule(extensions, pattern)
	if err != nil {
		t.Fatalf("NewMatchRule: %v", err)
	}
	return rule
}

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func baseConfig(t *testing.T, rootDir, outDir string) Config {
	t.Helper()
	qcfg := queue.DefaultConfig()
	qcfg.StabilityRetryDelay = 0
	return Config{
		RootDir:     rootDir,
		OutputDir:   outDir,
		Rules:       []types.MatchRule{mustRule(t, nil, ".*")},
		Depth:       -1,
		MaxFileSize: 0,
		Workers:     2,
		Queue:       qcfg,
		Transport:   transport.Options{Enabled: false},
	}
}

func TestScanAndTransportTransportDisabled(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	writeFile(t, root, "a.txt", []byte("hello world"))
	writeFile(t, root, "b.txt", []byte("goodbye world"))

	cfg := baseConfig(t, root, out)

	result, err := ScanAndTransport(cfg)
	if err != nil {
		t.Fatalf("ScanAndTransport: %v", err)
	}
	if !result.Success {
		t.Errorf("Success = false, want true for a disabled transport")
	}
	if result.ProcessedFiles != 2 {
		t.Errorf("ProcessedFiles = %d, want 2", result.ProcessedFiles)
	}
	if result.TransportSummary != (TransportSummary{}) {
		t.Errorf("TransportSummary = %+v, want empty", result.TransportSummary)
	}
	if len(result.PackagePaths) == 0 {
		t.Errorf("expected at least one sealed package")
	}
	for _, p := range result.PackagePaths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("sealed package missing on disk: %v", err)
		}
	}
	if _, err := os.Stat(result.LogFilePath); err != nil {
		t.Errorf("log file missing: %v", err)
	}
	_ = os.Remove(result.LogFilePath)
}

func TestScanAndTransportDryRun(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	writeFile(t, root, "a.txt", []byte("hello world"))

	cfg := baseConfig(t, root, out)
	cfg.DryRun = true

	result, err := ScanAndTransport(cfg)
	if err != nil {
		t.Fatalf("ScanAndTransport: %v", err)
	}
	if !result.Success {
		t.Errorf("Success = false, want true for a dry run")
	}
	if len(result.PackagePaths) != 0 {
		t.Errorf("PackagePaths = %v, want none sealed on a dry run", result.PackagePaths)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no packages written to outDir on a dry run, found %d", len(entries))
	}
	_ = os.Remove(result.LogFilePath)
}

func TestScanAndTransportNoMatches(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	cfg := baseConfig(t, root, out)
	cfg.Rules = []types.MatchRule{mustRule(t, []string{"docx"}, ".*")}

	writeFile(t, root, "a.txt", []byte("hello world"))

	result, err := ScanAndTransport(cfg)
	if err != nil {
		t.Fatalf("ScanAndTransport: %v", err)
	}
	if !result.Success {
		t.Errorf("Success = false, want true when nothing matches")
	}
	if result.ProcessedFiles != 0 {
		t.Errorf("ProcessedFiles = %d, want 0", result.ProcessedFiles)
	}
	_ = os.Remove(result.LogFilePath)
}

func TestScanAndTransportPackagingSplitsOnSize(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	big := make([]byte, 600*1024)
	writeFile(t, root, "a.bin", big)
	writeFile(t, root, "b.bin", big)

	cfg := baseConfig(t, root, out)
	cfg.Transport.PackageSizeMB = 1 // ~1MB target, two ~600KB files should split

	result, err := ScanAndTransport(cfg)
	if err != nil {
		t.Fatalf("ScanAndTransport: %v", err)
	}
	if len(result.PackagePaths) < 2 {
		t.Errorf("PackagePaths = %v, want at least 2 packages for files exceeding the size threshold", result.PackagePaths)
	}
	_ = os.Remove(result.LogFilePath)
}

// TestScanAndTransportPackagesArchiveMemberBytes guards against a matched
// archive member being packaged with its enclosing container's bytes
// instead of its own: the sealed package must contain the member's actual
// content, and the scanner's extraction staging directory must still be
// alive when packaging reads it (the package is sealed before
// ScanAndTransport returns, so Scanner.Close() must run after, not
// before, that read).
func TestScanAndTransportPackagesArchiveMemberBytes(t *testing.T) {
	out := t.TempDir()

	const memberContent = "this is the inner document, not the zip container"
	h := testfs.New(t, testfs.Tree{})
	h.BuildZip("bundle.zip", []testfs.Member{
		{Name: "MeiTuan-report.docx", Content: []byte(memberContent)},
	})

	cfg := baseConfig(t, h.Root(), out)
	cfg.Rules = []types.MatchRule{mustRule(t, []string{"docx"}, "^MeiTuan.*")}
	cfg.ScanNestedArchives = true
	cfg.MaxNestedLevel = 5

	result, err := ScanAndTransport(cfg)
	if err != nil {
		t.Fatalf("ScanAndTransport: %v", err)
	}
	_ = os.Remove(result.LogFilePath)

	if result.ProcessedFiles != 1 {
		t.Fatalf("ProcessedFiles = %d, want 1", result.ProcessedFiles)
	}
	if len(result.PackagePaths) != 1 {
		t.Fatalf("PackagePaths = %v, want exactly 1", result.PackagePaths)
	}

	zr, err := zip.OpenReader(result.PackagePaths[0])
	if err != nil {
		t.Fatalf("open sealed package: %v", err)
	}
	defer func() { _ = zr.Close() }()

	if len(zr.File) != 1 {
		t.Fatalf("len(zr.File) = %d, want 1", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open package member: %v", err)
	}
	defer func() { _ = rc.Close() }()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read package member: %v", err)
	}
	if string(got) != memberContent {
		t.Errorf("packaged member content = %q, want %q", got, memberContent)
	}
}
