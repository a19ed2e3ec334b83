package main

import "github.com/dustin/go-humanize"

// parseSize parses a human-readable size string into bytes.
// Supports formats: "0", "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}
