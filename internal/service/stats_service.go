package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/stats"
)

// StatsRepository describes the persistence layer required by StatsService.
type StatsRepository interface {
	ListForStats(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error)
}

// userCensus supplies active user counts per role for the system panel.
type userCensus interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
}

// ProgressSeries bundles the chart datasets derived from one event fetch.
type ProgressSeries struct {
	Points       []models.TimeSeriesPoint   `json:"points"`
	Accuracy     []models.AccuracyPoint     `json:"accuracy"`
	ResponseTime []models.ResponseTimePoint `json:"response_time"`
}

// StatsService derives progress statistics from activity logs with cache
// integration. All aggregation happens in memory over the fetched events;
// nothing derived is ever persisted.
type StatsService struct {
	repo    StatsRepository
	users   userCensus
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs a stats service. users may be nil; the system
// panel then omits the role census.
func NewStatsService(repo StatsRepository, users userCensus, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatsService {
	return &StatsService{repo: repo, users: users, cache: cache, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Progress returns the acceptance summary for the filtered events. The
// boolean indicates whether data originated from cache.
func (s *StatsService) Progress(ctx context.Context, filter models.StatsFilter) (models.ProgressSummary, bool, error) {
	cacheKey := makeStatsCacheKey("progress", filter)
	var cached models.ProgressSummary
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return models.ProgressSummary{}, false, fmt.Errorf("get progress cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	events, err := s.fetch(ctx, filter, "stats_progress")
	if err != nil {
		return models.ProgressSummary{}, false, err
	}

	summary := stats.Summarize(events)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache progress", zap.Error(err))
		}
	}
	return summary, false, nil
}

// Series returns bucketized totals plus the accuracy and response-time
// charts for the filtered events.
func (s *StatsService) Series(ctx context.Context, filter models.StatsFilter, g stats.Granularity, rng stats.Range) (*ProgressSeries, bool, error) {
	cacheKey := makeStatsCacheKey(fmt.Sprintf("series:%s:%s", g, rng), filter)
	var cached ProgressSeries
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get series cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	events, err := s.fetch(ctx, filter, "stats_series")
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	points := stats.Bucketize(events, g, rng, now)
	series := &ProgressSeries{
		Points:       points,
		Accuracy:     stats.AccuracySeries(points),
		ResponseTime: stats.ResponseTimeSeries(events, g, rng, now),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, series, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache series", zap.Error(err))
		}
	}
	return series, false, nil
}

// System returns the admin panel payload: the instrumentation snapshot plus
// the active user census. A failing census is logged and omitted rather than
// failing the whole panel.
func (s *StatsService) System(ctx context.Context) models.SystemStatus {
	status := models.SystemStatus{}
	if s.metrics != nil {
		status.Metrics = s.metrics.Snapshot()
	}
	if s.users != nil {
		counts, err := s.users.CountByRole(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("user census failed", zap.Error(err))
			}
		} else {
			status.UsersByRole = counts
		}
	}
	return status
}

func (s *StatsService) fetch(ctx context.Context, filter models.StatsFilter, queryLabel string) ([]models.ActivityLog, error) {
	start := time.Now()
	events, err := s.repo.ListForStats(ctx, models.ActivityLogFilter{
		UserID:  filter.UserID,
		ClassID: filter.ClassID,
		From:    filter.From,
		To:      filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("load activity logs: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(queryLabel, time.Since(start))
	}
	return events, nil
}

func makeStatsCacheKey(kind string, filter models.StatsFilter) string {
	parts := []string{}
	if filter.UserID != "" {
		parts = append(parts, "user:"+filter.UserID)
	}
	if filter.ClassID != "" {
		parts = append(parts, "class:"+filter.ClassID)
	}
	if filter.From != nil {
		parts = append(parts, "from:"+filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		parts = append(parts, "to:"+filter.To.UTC().Format(time.RFC3339))
	}

	var builder strings.Builder
	builder.WriteString("stats:")
	builder.WriteString(kind)
	for _, part := range parts {
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, " ", "_"))
	}
	return builder.String()
}
