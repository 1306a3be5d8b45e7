package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clover-lab/clover-api/internal/models"
)

func TestBucketizeRollingDayEmptyInput(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)

	series := Bucketize(nil, GranularityDay, RangeRolling, now)

	require.Len(t, series, 7)
	assert.Equal(t, "2026-08-23", series[0].BucketKey)
	assert.Equal(t, "2026-08-29", series[6].BucketKey)
	for _, point := range series {
		assert.Zero(t, point.Total)
		assert.Zero(t, point.Correct)
	}
}

func TestBucketizeRollingDayCounts(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), now.Add(-2*time.Hour)),
		event(models.EventCodeBlockAccept, boolPtr(true), now.Add(-2*time.Hour)),
		event(models.EventCodeBlockReject, nil, now.AddDate(0, 0, -1)),
		// outside the window, must not appear
		event(models.EventCodeBlockAccept, boolPtr(false), now.AddDate(0, 0, -10)),
	}

	series := Bucketize(events, GranularityDay, RangeRolling, now)

	require.Len(t, series, 7)
	var totals int
	for _, point := range series {
		totals += point.Total
	}
	assert.Equal(t, 3, totals)

	last := series[6]
	assert.Equal(t, "2026-08-29", last.BucketKey)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, 1, last.Correct)

	yesterday := series[5]
	assert.Equal(t, "2026-08-28", yesterday.BucketKey)
	assert.Equal(t, 1, yesterday.Total)
	assert.Equal(t, 0, yesterday.Correct)
}

func TestBucketizeWeekKeysAreSundays(t *testing.T) {
	// 2026-08-29 is a Saturday; its week starts Sunday 2026-08-23.
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityLog{
		event(models.EventLineByLineAccept, nil, now),
	}

	series := Bucketize(events, GranularityWeek, RangeRolling, now)

	require.Len(t, series, 7)
	assert.Equal(t, "2026-08-23", series[6].BucketKey)
	assert.Equal(t, 1, series[6].Total)
	for _, point := range series {
		parsed, err := time.Parse("2006-01-02", point.BucketKey)
		require.NoError(t, err)
		assert.Equal(t, time.Sunday, parsed.Weekday())
	}
}

func TestBucketizeRollingMonth(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)),
		event(models.EventCodeBlockReject, nil, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
	}

	series := Bucketize(events, GranularityMonth, RangeRolling, now)

	require.Len(t, series, 7)
	assert.Equal(t, "2026-02", series[0].BucketKey)
	assert.Equal(t, "2026-08", series[6].BucketKey)
	assert.Equal(t, 1, series[4].Total) // 2026-06
	assert.Equal(t, 1, series[6].Total)
}

func TestBucketizeFullRangeZeroFillsGaps(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)),
		event(models.EventCodeBlockReject, nil, time.Date(2026, 8, 13, 9, 0, 0, 0, time.UTC)),
	}

	series := Bucketize(events, GranularityDay, RangeFull, now)

	require.Len(t, series, 4)
	assert.Equal(t, "2026-08-10", series[0].BucketKey)
	assert.Equal(t, "2026-08-11", series[1].BucketKey)
	assert.Zero(t, series[1].Total)
	assert.Zero(t, series[2].Total)
	assert.Equal(t, "2026-08-13", series[3].BucketKey)
	assert.Equal(t, 1, series[3].Total)
}

func TestBucketizeFullRangeEmptyInput(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	series := Bucketize(nil, GranularityDay, RangeFull, now)

	assert.Empty(t, series)
}

func TestBucketizeExcludesCorruptTimestamps(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), time.Time{}),
		event(models.EventCodeBlockAccept, boolPtr(false), now),
	}

	series := Bucketize(events, GranularityDay, RangeRolling, now)

	require.Len(t, series, 7)
	assert.Equal(t, 1, series[6].Total)
}

func TestBucketizeOutputIsChronological(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	// deliberately unsorted input
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, nil, now),
		event(models.EventCodeBlockAccept, nil, now.AddDate(0, 0, -3)),
		event(models.EventCodeBlockAccept, nil, now.AddDate(0, 0, -1)),
	}

	series := Bucketize(events, GranularityDay, RangeRolling, now)

	for i := 1; i < len(series); i++ {
		assert.Less(t, series[i-1].BucketKey, series[i].BucketKey)
	}
}

func TestResponseTimeSeriesAverages(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	first := event(models.EventCodeBlockAccept, nil, now)
	first.DurationMS = 100
	second := event(models.EventCodeBlockReject, nil, now)
	second.DurationMS = 300
	unknown := event(models.EventTag("SUGGESTION_SHOWN"), nil, now)
	unknown.DurationMS = 10_000

	series := ResponseTimeSeries([]models.ActivityLog{first, second, unknown}, GranularityDay, RangeRolling, now)

	require.Len(t, series, 1)
	assert.Equal(t, "2026-08-29", series[0].BucketKey)
	assert.InDelta(t, 200.0, series[0].AverageMS, 1e-9)
	assert.Equal(t, 2, series[0].SampleCount)
}
