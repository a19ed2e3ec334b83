package types

import "time"

// TransportResult reports the outcome of delivering one package (spec §3/§6).
type TransportResult struct {
	Success    bool
	LocalPath  string
	RemotePath string
	Retries    int
	Err        error
	StartedAt  time.Time
	EndedAt    time.Time
}
