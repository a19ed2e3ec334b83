package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivoronin/fileferry/internal/pipeline"
	"github.com/ivoronin/fileferry/internal/queue"
	"github.com/ivoronin/fileferry/internal/transport"
	"github.com/ivoronin/fileferry/internal/types"
)

// runOptions holds CLI flags for the run command.
type runOptions struct {
	outputDir          string
	extensions         []string
	nameRegex          string
	depth              int
	skipDirs           []string
	maxFileSizeStr     string
	scanNestedArchives bool
	maxNestedLevel     int
	followSymlinks     bool
	workers            int
	cacheFile          string
	dryRun             bool

	packagingMaxFiles  int
	packagingMaxSizeMB int

	transportEnabled  bool
	protocol          string
	host              string
	port              int
	username          string
	password          string
	remotePath        string
	retryCount        int
	timeoutSeconds    int
	packageSizeMB     int
	privateKeyPath    string
	debug             bool
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	opts := &runOptions{
		outputDir:          ".",
		nameRegex:          ".*",
		depth:              -1,
		maxFileSizeStr:     "0",
		scanNestedArchives: true,
		maxNestedLevel:     5,
		workers:            runtime.NumCPU(),
		retryCount:         3,
		timeoutSeconds:     30,
		packageSizeMB:      1,
		protocol:           transport.ProtocolSFTP,
	}

	cmd := &cobra.Command{
		Use:   "run <rootDir>",
		Short: "Scan a directory tree, package matching files, and transport them",
		Long: `Walks rootDir (including archive members when enabled), matches files
against the configured extension/name rules, groups matches into size-bounded
zip packages, and delivers each package over FTP, FTPS, or SFTP.

Use --dry-run to scan, check stability, and fingerprint without sealing
packages or contacting a remote.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPipeline(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", opts.outputDir, "Directory sealed packages are written to")
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "Extensions to match, without the dot (empty means any)")
	cmd.Flags().StringVar(&opts.nameRegex, "name-regex", opts.nameRegex, "Regex a matched file's name must satisfy")
	cmd.Flags().IntVar(&opts.depth, "depth", opts.depth, "Directory recursion depth (-1 = unlimited, 0 = root only)")
	cmd.Flags().StringSliceVar(&opts.skipDirs, "skip-dir", nil, "Directory names to skip during traversal")
	cmd.Flags().StringVar(&opts.maxFileSizeStr, "max-file-size", opts.maxFileSizeStr, "Maximum file size to match (e.g. 100, 1K, 10M, 1G; 0 = unlimited)")
	cmd.Flags().BoolVar(&opts.scanNestedArchives, "scan-nested-archives", opts.scanNestedArchives, "Open archives to match their members, recursing into nested archives (false: no archive is opened)")
	cmd.Flags().IntVar(&opts.maxNestedLevel, "max-nested-level", opts.maxNestedLevel, "Maximum archive boundaries to cross while recursing")
	cmd.Flags().BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symlinked files during traversal (symlinked directories are never descended)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers for directory scanning and fingerprinting")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to fingerprint hash cache (enables caching)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Scan, check stability, and fingerprint without packaging or transport")

	cmd.Flags().IntVar(&opts.packagingMaxFiles, "package-max-files", 0, "Maximum items drained per packaging pass (0 = 4096); does not seal packages by itself")
	cmd.Flags().IntVar(&opts.packagingMaxSizeMB, "package-max-size-mb", 0, "Accepted but not used; packages seal on --package-size-mb only")

	cmd.Flags().BoolVar(&opts.transportEnabled, "transport", false, "Upload sealed packages to the configured remote")
	cmd.Flags().StringVar(&opts.protocol, "protocol", opts.protocol, "Transport protocol: ftp, ftps, or sftp")
	cmd.Flags().StringVar(&opts.host, "host", "", "Remote host")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Remote port (defaults to the protocol's standard port)")
	cmd.Flags().StringVar(&opts.username, "username", "", "Remote username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Remote password")
	cmd.Flags().StringVar(&opts.remotePath, "remote-path", "/", "Remote directory packages are uploaded under")
	cmd.Flags().IntVar(&opts.retryCount, "retry-count", opts.retryCount, "Upload retry attempts before a package is marked failed")
	cmd.Flags().IntVar(&opts.timeoutSeconds, "timeout", opts.timeoutSeconds, "Connect/operation timeout in seconds")
	cmd.Flags().IntVar(&opts.packageSizeMB, "package-size-mb", opts.packageSizeMB, "Target package size in megabytes")
	cmd.Flags().StringVar(&opts.privateKeyPath, "private-key", "", "Path to an SSH private key (SFTP only; overrides --password)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable verbose transport protocol logging")

	return cmd
}

func defaultPort(protocol string) int {
	switch protocol {
	case transport.ProtocolFTP, transport.ProtocolFTPS:
		return 21
	case transport.ProtocolSFTP:
		return 22
	default:
		return 0
	}
}

// runPipeline builds a pipeline.Config from CLI flags and runs
// ScanAndTransport, printing a one-line summary to stdout.
func runPipeline(rootDir string, opts *runOptions) error {
	maxFileSize, err := parseSize(opts.maxFileSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --max-file-size: %w", err)
	}

	rule, err := types.NewMatchRule(opts.extensions, opts.nameRegex)
	if err != nil {
		return fmt.Errorf("invalid --name-regex: %w", err)
	}

	port := opts.port
	if port == 0 {
		port = defaultPort(opts.protocol)
	}

	cfg := pipeline.Config{
		RootDir:            rootDir,
		OutputDir:          opts.outputDir,
		Rules:              []types.MatchRule{rule},
		Depth:              opts.depth,
		SkipDirs:           opts.skipDirs,
		MaxFileSize:        maxFileSize,
		ScanNestedArchives: opts.scanNestedArchives,
		MaxNestedLevel:     opts.maxNestedLevel,
		FollowSymlinks:     opts.followSymlinks,
		Workers:            opts.workers,
		CachePath:          opts.cacheFile,
		DryRun:             opts.dryRun,
		Queue:              queue.DefaultConfig(),
		PackagingTrigger: pipeline.PackagingTrigger{
			MaxFiles:  opts.packagingMaxFiles,
			MaxSizeMB: opts.packagingMaxSizeMB,
		},
		Transport: transport.Options{
			Enabled:        opts.transportEnabled,
			Protocol:       opts.protocol,
			Host:           opts.host,
			Port:           port,
			Username:       opts.username,
			Password:       opts.password,
			RemoteRoot:     opts.remotePath,
			RetryCount:     opts.retryCount,
			Timeout:        time.Duration(opts.timeoutSeconds) * time.Second,
			PackageSizeMB:  opts.packageSizeMB,
			PrivateKeyPath: opts.privateKeyPath,
			Debug:          opts.debug,
		},
	}

	result, err := pipeline.ScanAndTransport(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "processed=%d packages=%d uploaded=%d failed=%d success=%v log=%s\n",
		result.ProcessedFiles, len(result.PackagePaths), result.TransportSummary.Uploaded,
		result.TransportSummary.Failed, result.Success, result.LogFilePath)

	for _, f := range result.FailedItems {
		fmt.Fprintf(os.Stderr, "failed: %s (%s): %s\n", f.Path, f.Stage, f.Reason)
	}

	if !result.Success {
		return fmt.Errorf("run did not succeed")
	}
	return nil
}
