package config

import (
	"testing"
	"time"
)

func TestEngineSettings_ApplyDefaults(t *testing.T) {
	settings := EngineSettings{}
	settings.ApplyDefaults()

	if settings.DebounceDelay != DefaultDebounceDelay {
		t.Errorf("Expected default debounce delay %v, got %v", DefaultDebounceDelay, settings.DebounceDelay)
	}
	if settings.WindowWordLimit != DefaultWindowWordLimit {
		t.Errorf("Expected default window word limit %d, got %d", DefaultWindowWordLimit, settings.WindowWordLimit)
	}
	if settings.MinPatternLength != DefaultMinPatternLength {
		t.Errorf("Expected default min pattern length %d, got %d", DefaultMinPatternLength, settings.MinPatternLength)
	}
	if settings.MaxWindowBytes != DefaultMaxWindowBytes {
		t.Errorf("Expected default max window bytes %d, got %d", DefaultMaxWindowBytes, settings.MaxWindowBytes)
	}
	if settings.MaxJobWorkers != DefaultMaxJobWorkers {
		t.Errorf("Expected default max job workers %d, got %d", DefaultMaxJobWorkers, settings.MaxJobWorkers)
	}
	if settings.DataDir != DefaultDataDir {
		t.Errorf("Expected default data dir %q, got %q", DefaultDataDir, settings.DataDir)
	}
}

func TestEngineSettings_ApplyDefaultsKeepsExplicitValues(t *testing.T) {
	settings := EngineSettings{
		DebounceDelay:    10 * time.Millisecond,
		WindowWordLimit:  250,
		MinPatternLength: 3,
		MaxWindowBytes:   4096,
		MaxJobWorkers:    8,
		DataDir:          "/tmp/annotations",
	}
	settings.ApplyDefaults()

	if settings.DebounceDelay != 10*time.Millisecond {
		t.Errorf("Expected explicit debounce delay to survive, got %v", settings.DebounceDelay)
	}
	if settings.WindowWordLimit != 250 {
		t.Errorf("Expected explicit window word limit to survive, got %d", settings.WindowWordLimit)
	}
	if settings.MinPatternLength != 3 {
		t.Errorf("Expected explicit min pattern length to survive, got %d", settings.MinPatternLength)
	}
	if settings.MaxWindowBytes != 4096 {
		t.Errorf("Expected explicit max window bytes to survive, got %d", settings.MaxWindowBytes)
	}
	if settings.MaxJobWorkers != 8 {
		t.Errorf("Expected explicit max job workers to survive, got %d", settings.MaxJobWorkers)
	}
	if settings.DataDir != "/tmp/annotations" {
		t.Errorf("Expected explicit data dir to survive, got %q", settings.DataDir)
	}
}

func TestEngineSettings_Validate(t *testing.T) {
	tests := []struct {
		name              string
		settings          EngineSettings
		expectedConflicts int
	}{
		{
			name: "valid settings",
			settings: EngineSettings{
				DebounceDelay:    50 * time.Millisecond,
				WindowWordLimit:  1000,
				MinPatternLength: 2,
				MaxWindowBytes:   1 << 16,
				MaxJobWorkers:    2,
			},
			expectedConflicts: 0,
		},
		{
			name: "negative debounce delay",
			settings: EngineSettings{
				DebounceDelay:    -time.Millisecond,
				MinPatternLength: 2,
				MaxJobWorkers:    1,
			},
			expectedConflicts: 1,
		},
		{
			name: "zero min pattern length",
			settings: EngineSettings{
				MinPatternLength: 0,
				MaxJobWorkers:    1,
			},
			expectedConflicts: 1,
		},
		{
			name: "zero job workers",
			settings: EngineSettings{
				MinPatternLength: 2,
				MaxJobWorkers:    0,
			},
			expectedConflicts: 1,
		},
		{
			name: "multiple conflicts",
			settings: EngineSettings{
				DebounceDelay:    -time.Second,
				WindowWordLimit:  -1,
				MinPatternLength: 0,
				MaxWindowBytes:   -1,
				MaxJobWorkers:    0,
			},
			expectedConflicts: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := tt.settings.Validate()

			if len(conflicts) != tt.expectedConflicts {
				t.Errorf("Expected %d conflicts, got %d: %v", tt.expectedConflicts, len(conflicts), conflicts)
			}
		})
	}
}
