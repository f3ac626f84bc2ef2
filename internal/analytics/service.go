// Package analytics tracks scan pipeline events and aggregates them into
// dashboard data for the HTTP surface.
package analytics

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/quillside/storybible-engine/model"
)

const (
	analyticsFileName = "analytics.json"
	maxEventsToKeep   = 10000 // Keep last 10k events for performance
	topEntitiesLimit  = 5
)

// EngineStats is the read-only view of the engine the dashboard needs.
type EngineStats interface {
	AttachedDocuments() int
	ActiveEntityCounts() map[string]int
}

// Service implements scan analytics tracking and reporting.
type Service struct {
	mutex        sync.RWMutex
	events       []model.ScanEvent
	stats        EngineStats
	dataFilePath string
	saves        sync.WaitGroup
}

// NewService creates an analytics service persisting under dataDir and
// loads any existing event history.
func NewService(stats EngineStats, dataDir string) *Service {
	service := &Service{
		events:       make([]model.ScanEvent, 0),
		stats:        stats,
		dataFilePath: filepath.Join(dataDir, analyticsFileName),
	}

	if err := service.loadData(); err != nil {
		log.Printf("Warning: Failed to load analytics data: %v", err)
	}

	return service
}

// RecordScan records one scan pipeline run. Implements the engine's scan
// recorder hook; must not block the scan path, so persistence happens
// asynchronously.
func (s *Service) RecordScan(event model.ScanEvent) {
	s.mutex.Lock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
	s.mutex.Unlock()

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		if err := s.saveData(); err != nil {
			log.Printf("Warning: Failed to save analytics data: %v", err)
		}
	}()
}

// Close waits for all in-flight persistence writes to finish. Callers
// should invoke it before discarding the data directory.
func (s *Service) Close() {
	s.saves.Wait()
}

// EventCount returns the number of recorded scan events.
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// GetDashboardData returns complete scan analytics dashboard data for the
// last 24 hours.
func (s *Service) GetDashboardData() (model.AnalyticsDashboard, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	yesterday := time.Now().Add(-24 * time.Hour)
	recent := s.filterEventsByTime(s.events, yesterday)

	applied, stale, degraded := 0, 0, 0
	for _, event := range recent {
		if event.Applied {
			applied++
		} else {
			stale++
		}
		if event.Degraded {
			degraded++
		}
	}

	entityCounts := s.stats.ActiveEntityCounts()
	activeMatches := 0
	for _, count := range entityCounts {
		activeMatches += count
	}

	dashboard := model.AnalyticsDashboard{
		TotalScans:           len(recent),
		AppliedScans:         applied,
		StaleDiscards:        stale,
		DegradedScans:        degraded,
		AvgScanTime:          s.calculateAvgScanTime(recent),
		AttachedDocuments:    s.stats.AttachedDocuments(),
		ActiveMatches:        activeMatches,
		TopEntities:          s.getTopEntities(entityCounts),
		ScanTimeDistribution: s.getScanTimeDistribution(recent),
	}

	return dashboard, nil
}

// filterEventsByTime returns events after the given time.
func (s *Service) filterEventsByTime(events []model.ScanEvent, after time.Time) []model.ScanEvent {
	var filtered []model.ScanEvent
	for _, event := range events {
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateAvgScanTime calculates the average scan time in microseconds.
func (s *Service) calculateAvgScanTime(events []model.ScanEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ScanTime
	}
	return (total / time.Duration(len(events))).Microseconds()
}

// getTopEntities returns the most-matched entities across all attached
// documents, sorted by match count descending.
func (s *Service) getTopEntities(counts map[string]int) []model.EntityMatchStats {
	stats := make([]model.EntityMatchStats, 0, len(counts))
	for entityID, count := range counts {
		stats = append(stats, model.EntityMatchStats{EntityID: entityID, MatchCount: count})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MatchCount != stats[j].MatchCount {
			return stats[i].MatchCount > stats[j].MatchCount
		}
		return stats[i].EntityID < stats[j].EntityID
	})

	if len(stats) > topEntitiesLimit {
		stats = stats[:topEntitiesLimit]
	}
	return stats
}

// getScanTimeDistribution returns scan latency distribution buckets.
func (s *Service) getScanTimeDistribution(events []model.ScanEvent) model.ScanTimeDistribution {
	dist := model.ScanTimeDistribution{}
	total := len(events)

	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ScanTime.Milliseconds()
		switch {
		case ms < 1:
			dist.Bucket0To1ms++
		case ms < 5:
			dist.Bucket1To5ms++
		case ms < 20:
			dist.Bucket5To20ms++
		default:
			dist.Bucket20msPlus++
		}
	}

	dist.Percentage0To1 = float64(dist.Bucket0To1ms) / float64(total) * 100
	dist.Percentage1To5 = float64(dist.Bucket1To5ms) / float64(total) * 100
	dist.Percentage5To20 = float64(dist.Bucket5To20ms) / float64(total) * 100
	dist.Percentage20 = float64(dist.Bucket20msPlus) / float64(total) * 100

	return dist
}

// loadData loads scan event history from disk.
func (s *Service) loadData() error {
	dir := filepath.Dir(s.dataFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create analytics directory: %w", err)
	}

	if _, err := os.Stat(s.dataFilePath); os.IsNotExist(err) {
		return nil // No history yet
	}

	data, err := os.ReadFile(s.dataFilePath) // #nosec G304 -- path is derived from configured data dir
	if err != nil {
		return fmt.Errorf("failed to read analytics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := json.Unmarshal(data, &s.events); err != nil {
		return fmt.Errorf("failed to unmarshal analytics data: %w", err)
	}

	return nil
}

// saveData saves scan event history to disk.
func (s *Service) saveData() error {
	dir := filepath.Dir(s.dataFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create analytics directory: %w", err)
	}

	s.mutex.RLock()
	data, err := json.MarshalIndent(s.events, "", "  ")
	s.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}

	if err := os.WriteFile(s.dataFilePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}

	return nil
}
