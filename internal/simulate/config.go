// Package simulate drives synthetic help-desk traffic through the full HTTP
// surface: it starts an embedded, pre-seeded service instance, connects helper
// streams, posts help requests and concurrent accepts, and verifies that each
// issue is assigned exactly once.
package simulate

import "time"

// Default configuration constants.
const (
	DefaultIssues  = 50
	DefaultHelpers = 10
	DefaultTimeout = 10 * time.Second
	DefaultAddr    = "127.0.0.1:0"
)

// Config controls a simulation run.
type Config struct {
	Addr    string
	Secret  string
	Issuer  string
	Issues  int
	Helpers int
	Timeout time.Duration
	Verbose bool
}

// Stats accumulates counters for the final report.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Connected    int64
	Asks         int64
	Accepts      int64
	Assigned     int64
	OtherErrors  int64
	EventsPushed int64
}
