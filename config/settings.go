// Package config provides configuration structures for the annotation engine.
// It defines debounce, window, pattern, and scan-budget settings.
package config

import (
	"fmt"
	"time"
)

// Default values applied by EngineSettings.ApplyDefaults.
const (
	DefaultDebounceDelay    = 50 * time.Millisecond
	DefaultWindowWordLimit  = 1000
	DefaultMinPatternLength = 2
	DefaultMaxWindowBytes   = 1 << 16
	DefaultMaxJobWorkers    = 2
	DefaultDataDir          = "./storybible_data"
)

// EngineSettings contains all configuration options for the annotation engine.
//
// DebounceDelay is the quiet period after the last text/selection change
// before a scan fires; bursts of keystrokes within the delay collapse into
// one scan. WindowWordLimit bounds scanner cost independent of document
// length: documents at or under the limit are scanned whole, longer ones get
// an up-to-limit window centered on the cursor. MaxWindowBytes is the hard
// scan budget; a window that still exceeds it after paragraph snapping is
// shrunk and the scan marked degraded.
type EngineSettings struct {
	DebounceDelay    time.Duration `json:"debounce_delay_ns"`    // Quiet period before a pending scan fires (e.g. 50ms)
	WindowWordLimit  int           `json:"window_word_limit"`    // Word count at/below which the whole document is scanned; also the window size
	MinPatternLength int           `json:"min_pattern_length"`   // Patterns shorter than this (in runes) are excluded to avoid noise matches
	MaxWindowBytes   int           `json:"max_window_bytes"`     // Scan budget; windows above it are shrunk and flagged degraded
	MaxJobWorkers    int           `json:"max_job_workers"`      // Concurrent background jobs (index rebuilds, forced rescans)
	DataDir          string        `json:"data_dir"`             // Directory for catalog snapshots and analytics data
}

// Validate checks the settings for values the engine cannot run with and
// returns a list of human-readable conflicts. An empty list means valid.
func (settings *EngineSettings) Validate() []string {
	var conflicts []string

	if settings.DebounceDelay < 0 {
		conflicts = append(conflicts, "debounce_delay_ns cannot be negative")
	}
	if settings.WindowWordLimit < 0 {
		conflicts = append(conflicts, "window_word_limit cannot be negative")
	}
	if settings.MinPatternLength < 1 {
		conflicts = append(conflicts, fmt.Sprintf("min_pattern_length must be at least 1, got %d", settings.MinPatternLength))
	}
	if settings.MaxWindowBytes < 0 {
		conflicts = append(conflicts, "max_window_bytes cannot be negative")
	}
	if settings.MaxJobWorkers < 1 {
		conflicts = append(conflicts, fmt.Sprintf("max_job_workers must be at least 1, got %d", settings.MaxJobWorkers))
	}

	return conflicts
}

// ApplyDefaults applies default values to any zero-valued settings.
func (settings *EngineSettings) ApplyDefaults() {
	if settings.DebounceDelay == 0 {
		settings.DebounceDelay = DefaultDebounceDelay
	}
	if settings.WindowWordLimit == 0 {
		settings.WindowWordLimit = DefaultWindowWordLimit
	}
	if settings.MinPatternLength == 0 {
		settings.MinPatternLength = DefaultMinPatternLength
	}
	if settings.MaxWindowBytes == 0 {
		settings.MaxWindowBytes = DefaultMaxWindowBytes
	}
	if settings.MaxJobWorkers == 0 {
		settings.MaxJobWorkers = DefaultMaxJobWorkers
	}
	if settings.DataDir == "" {
		settings.DataDir = DefaultDataDir
	}
}
