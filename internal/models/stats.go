package models

import "time"

// ProgressSummary holds derived acceptance statistics. Recomputed on every
// fetch, never persisted.
type ProgressSummary struct {
	TotalAccepted      int     `json:"total_accepted"`
	TotalRejected      int     `json:"total_rejected"`
	TotalInteractions  int     `json:"total_interactions"`
	CorrectSuggestions int     `json:"correct_suggestions"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

// TimeSeriesPoint is one calendar bucket of a progress chart.
type TimeSeriesPoint struct {
	BucketKey string `json:"bucket_key"`
	Total     int    `json:"total"`
	Correct   int    `json:"correct"`
}

// AccuracyPoint is one bucket of an accuracy-over-time chart. Buckets with no
// qualifying samples are never emitted since the ratio is undefined there.
type AccuracyPoint struct {
	BucketKey string  `json:"bucket_key"`
	Accuracy  float64 `json:"accuracy"`
}

// ResponseTimePoint is one bucket of the suggestion response-time chart.
type ResponseTimePoint struct {
	BucketKey   string  `json:"bucket_key"`
	AverageMS   float64 `json:"average_ms"`
	SampleCount int     `json:"sample_count"`
}

// StatsFilter scopes which activity logs feed an aggregation.
type StatsFilter struct {
	UserID  string
	ClassID string
	From    *time.Time
	To      *time.Time
}

// SystemMetrics represents system level statistics captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	SuggestionEvents         uint64    `json:"suggestion_events"`
	ReportJobs               uint64    `json:"report_jobs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// SystemStatus is the admin system panel payload combining the metrics
// snapshot with an active user census per role.
type SystemStatus struct {
	Metrics     SystemMetrics    `json:"metrics"`
	UsersByRole map[UserRole]int `json:"users_by_role,omitempty"`
}
