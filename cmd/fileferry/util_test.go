package main

import "testing"

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1k", 1000},
		{"1K", 1000},
		{"1kb", 1000},
		{"1MB", 1000000},
		{"1G", 1000000000},
		{"1234", 1234},
		{"0", 0},
		{"1KiB", 1024},
		{"1MiB", 1048576},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	tests := []string{"invalid", "abc", "1.5.5", "--100", ""}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := parseSize(input)
			if err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestParseSizeZeroVariants(t *testing.T) {
	variants := []string{"0", "0k", "0M", "0G"}
	for _, v := range variants {
		t.Run(v, func(t *testing.T) {
			got, err := parseSize(v)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", v, err)
			}
			if got != 0 {
				t.Errorf("parseSize(%q) = %d, want 0", v, got)
			}
		})
	}
}
