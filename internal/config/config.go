// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load() layers defaults, optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// AuthSecret signs and verifies connection bearer tokens. It has no
	// default on purpose; an empty secret refuses all connections.
	AuthSecret string `koanf:"auth_secret"`

	// AuthIssuer is the expected issuer claim on connection tokens.
	AuthIssuer string `koanf:"auth_issuer"`

	// SendBuffer sets the per-connection outbound event buffer.
	SendBuffer int `koanf:"send_buffer"`

	// AssignQueueSize bounds the in-memory assignment task queue.
	AssignQueueSize int `koanf:"assign_queue_size"`

	// AssignWorkerCount sets the number of assignment workers.
	AssignWorkerCount int `koanf:"assign_worker_count"`

	// SuggestionLimit caps the number of ranked helpers returned.
	SuggestionLimit int `koanf:"suggestion_limit"`

	// ReplayCacheSize bounds the handshake replay guard.
	ReplayCacheSize int `koanf:"replay_cache_size"`

	// HelpRequestTTLMS expires pending help requests; 0 keeps them forever.
	HelpRequestTTLMS int `koanf:"help_request_ttl_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8090",
		AuthIssuer:        "huddle",
		SendBuffer:        64,
		AssignQueueSize:   10_000,
		AssignWorkerCount: runtime.NumCPU() * 2,
		SuggestionLimit:   10,
		ReplayCacheSize:   100_000,
		HelpRequestTTLMS:  15 * 60 * 1000,
	}
}
