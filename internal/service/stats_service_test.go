package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/stats"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = make(map[string][]byte)
	return nil
}

type mockStatsRepo struct {
	events []models.ActivityLog
	calls  int
}

func (m *mockStatsRepo) ListForStats(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, error) {
	m.calls++
	return m.events, nil
}

func statsEvent(tag models.EventTag, hasBug *bool, at time.Time) models.ActivityLog {
	return models.ActivityLog{UserID: "user-1", Event: tag, Mode: tag.Mode(), HasBug: hasBug, CreatedAt: at}
}

func TestStatsServiceProgressCachesResult(t *testing.T) {
	bug := true
	repo := &mockStatsRepo{events: []models.ActivityLog{
		statsEvent(models.EventCodeBlockAccept, nil, time.Now().UTC()),
		statsEvent(models.EventLineByLineAccept, &bug, time.Now().UTC()),
		statsEvent(models.EventCodeBlockReject, nil, time.Now().UTC()),
	}}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewStatsService(repo, nil, cache, nil, zap.NewNop())

	filter := models.StatsFilter{UserID: "user-1"}

	first, hit, err := svc.Progress(context.Background(), filter)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, first.TotalInteractions)
	// the accept with a known bug does not count as correct
	assert.Equal(t, 1, first.CorrectSuggestions)
	assert.Equal(t, 1, repo.calls)

	second, hit, err := svc.Progress(context.Background(), filter)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestStatsServiceProgressWithoutCache(t *testing.T) {
	repo := &mockStatsRepo{}
	svc := NewStatsService(repo, nil, nil, nil, zap.NewNop())

	summary, hit, err := svc.Progress(context.Background(), models.StatsFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.ProgressSummary{}, summary)
	assert.Equal(t, 1, repo.calls)
}

func TestStatsServiceSeriesRollingWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	repo := &mockStatsRepo{events: []models.ActivityLog{
		statsEvent(models.EventCodeBlockAccept, nil, now.Add(-time.Hour)),
		statsEvent(models.EventCodeBlockReject, nil, now.AddDate(0, 0, -2)),
	}}
	svc := NewStatsService(repo, nil, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return now }

	series, hit, err := svc.Series(context.Background(), models.StatsFilter{}, stats.GranularityDay, stats.RangeRolling)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, series.Points, 7)
	assert.Equal(t, "2026-08-29", series.Points[6].BucketKey)
	assert.Equal(t, 1, series.Points[6].Total)
	assert.Equal(t, 1, series.Points[4].Total)

	// accuracy chart drops the five empty buckets
	assert.Len(t, series.Accuracy, 2)
}

func TestStatsServiceSeriesDistinctCacheKeys(t *testing.T) {
	repo := &mockStatsRepo{}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewStatsService(repo, nil, cache, nil, zap.NewNop())

	_, _, err := svc.Series(context.Background(), models.StatsFilter{UserID: "user-1"}, stats.GranularityDay, stats.RangeRolling)
	require.NoError(t, err)
	_, _, err = svc.Series(context.Background(), models.StatsFilter{UserID: "user-1"}, stats.GranularityWeek, stats.RangeRolling)
	require.NoError(t, err)

	// different granularity must not share a cache entry
	assert.Equal(t, 2, repo.calls)
}

type mockUserCensus struct {
	counts map[models.UserRole]int
	err    error
}

func (m *mockUserCensus) CountByRole(ctx context.Context) (map[models.UserRole]int, error) {
	return m.counts, m.err
}

func TestStatsServiceSystemIncludesUserCensus(t *testing.T) {
	census := &mockUserCensus{counts: map[models.UserRole]int{models.RoleStudent: 12, models.RoleAdmin: 1}}
	svc := NewStatsService(&mockStatsRepo{}, census, nil, nil, zap.NewNop())

	status := svc.System(context.Background())
	assert.Equal(t, 12, status.UsersByRole[models.RoleStudent])
	assert.Equal(t, 1, status.UsersByRole[models.RoleAdmin])
}

func TestStatsServiceSystemOmitsCensusOnError(t *testing.T) {
	census := &mockUserCensus{err: assert.AnError}
	svc := NewStatsService(&mockStatsRepo{}, census, nil, nil, zap.NewNop())

	status := svc.System(context.Background())
	assert.Nil(t, status.UsersByRole)
}
