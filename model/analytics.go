package model

import "time"

// ScanEvent represents a single completed (or discarded) scan for analytics
// tracking. One event is recorded per scan pipeline run.
type ScanEvent struct {
	DocumentID    string        `json:"document_id"`
	WindowStart   int           `json:"window_start"`
	WindowEnd     int           `json:"window_end"`
	RawCount      int           `json:"raw_count"`
	ResolvedCount int           `json:"resolved_count"`
	Applied       bool          `json:"applied"`
	Degraded      bool          `json:"degraded"`
	ScanTime      time.Duration `json:"scan_time"`
	Timestamp     time.Time     `json:"timestamp"`
}

// EntityMatchStats represents aggregated match data for one entity.
type EntityMatchStats struct {
	EntityID   string `json:"entity_id"`
	MatchCount int    `json:"match_count"`
}

// ScanTimeDistribution represents scan latency distribution buckets.
type ScanTimeDistribution struct {
	Bucket0To1ms    int     `json:"bucket_0_1ms"`
	Bucket1To5ms    int     `json:"bucket_1_5ms"`
	Bucket5To20ms   int     `json:"bucket_5_20ms"`
	Bucket20msPlus  int     `json:"bucket_20ms_plus"`
	Percentage0To1  float64 `json:"percentage_0_1"`
	Percentage1To5  float64 `json:"percentage_1_5"`
	Percentage5To20 float64 `json:"percentage_5_20"`
	Percentage20    float64 `json:"percentage_20_plus"`
}

// AnalyticsDashboard represents the complete scan analytics dashboard data.
type AnalyticsDashboard struct {
	// Summary metrics
	TotalScans        int   `json:"total_scans"`
	AppliedScans      int   `json:"applied_scans"`
	StaleDiscards     int   `json:"stale_discards"`
	DegradedScans     int   `json:"degraded_scans"`
	AvgScanTime       int64 `json:"avg_scan_time_us"` // microseconds
	AttachedDocuments int   `json:"attached_documents"`
	ActiveMatches     int   `json:"active_matches"`

	// Detailed analytics
	TopEntities          []EntityMatchStats   `json:"top_entities"`
	ScanTimeDistribution ScanTimeDistribution `json:"scan_time_distribution"`
}
