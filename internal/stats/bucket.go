package stats

import (
	"time"

	"github.com/clover-lab/clover-api/internal/models"
)

// Granularity selects the calendar unit used for time-series buckets.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Range selects how the bucket window is anchored.
type Range string

const (
	// RangeRolling is a fixed-width window ending at "now": the last 7 days,
	// or the last 6 completed weeks/months plus the current one.
	RangeRolling Range = "rolling"
	// RangeFull spans from the earliest to the latest observed event.
	RangeFull Range = "full"
)

// rollingBuckets is the window width shared by all granularities.
const rollingBuckets = 7

// Bucketize groups events into contiguous calendar buckets and counts, per
// bucket, the qualifying interactions and the correct accepted suggestions.
// Buckets with no events are emitted with zero counts so chart axes stay
// contiguous. Events with an unrecognized tag or a zero timestamp are
// excluded; one corrupt record must not blank a chart. Output is ordered
// chronologically regardless of input order.
func Bucketize(events []models.ActivityLog, g Granularity, rng Range, now time.Time) []models.TimeSeriesPoint {
	counts := make(map[string]*models.TimeSeriesPoint)
	var earliest, latest time.Time

	for _, ev := range events {
		if ev.CreatedAt.IsZero() {
			continue
		}
		accept := ev.Event.IsAccept()
		if !accept && !ev.Event.IsReject() {
			continue
		}
		ts := ev.CreatedAt.UTC()
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
		key := bucketKey(ts, g)
		point, ok := counts[key]
		if !ok {
			point = &models.TimeSeriesPoint{BucketKey: key}
			counts[key] = point
		}
		point.Total++
		if accept && !ev.KnownBug() {
			point.Correct++
		}
	}

	var start, end time.Time
	switch rng {
	case RangeFull:
		if earliest.IsZero() {
			return []models.TimeSeriesPoint{}
		}
		start = bucketStart(earliest, g)
		end = bucketStart(latest, g)
	default:
		end = bucketStart(now.UTC(), g)
		start = stepBack(end, g, rollingBuckets-1)
	}

	series := make([]models.TimeSeriesPoint, 0, rollingBuckets)
	for cursor := start; !cursor.After(end); cursor = stepForward(cursor, g) {
		key := bucketKey(cursor, g)
		if point, ok := counts[key]; ok {
			series = append(series, *point)
			continue
		}
		series = append(series, models.TimeSeriesPoint{BucketKey: key})
	}
	return series
}

// ResponseTimeSeries averages suggestion response times per calendar bucket.
// Buckets with no samples are omitted: an average over nothing is undefined.
func ResponseTimeSeries(events []models.ActivityLog, g Granularity, rng Range, now time.Time) []models.ResponseTimePoint {
	type bucketAcc struct {
		sum   int
		count int
	}
	acc := make(map[string]*bucketAcc)
	var earliest, latest time.Time

	for _, ev := range events {
		if ev.CreatedAt.IsZero() {
			continue
		}
		if !ev.Event.IsAccept() && !ev.Event.IsReject() {
			continue
		}
		ts := ev.CreatedAt.UTC()
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
		key := bucketKey(ts, g)
		a, ok := acc[key]
		if !ok {
			a = &bucketAcc{}
			acc[key] = a
		}
		a.sum += ev.DurationMS
		a.count++
	}

	var start, end time.Time
	switch rng {
	case RangeFull:
		if earliest.IsZero() {
			return []models.ResponseTimePoint{}
		}
		start = bucketStart(earliest, g)
		end = bucketStart(latest, g)
	default:
		end = bucketStart(now.UTC(), g)
		start = stepBack(end, g, rollingBuckets-1)
	}

	series := make([]models.ResponseTimePoint, 0, rollingBuckets)
	for cursor := start; !cursor.After(end); cursor = stepForward(cursor, g) {
		key := bucketKey(cursor, g)
		a, ok := acc[key]
		if !ok || a.count == 0 {
			continue
		}
		series = append(series, models.ResponseTimePoint{
			BucketKey:   key,
			AverageMS:   float64(a.sum) / float64(a.count),
			SampleCount: a.count,
		})
	}
	return series
}

// bucketKey renders the calendar bucket an instant belongs to. Weeks start on
// Sunday and are keyed by that Sunday's date, locale-independent.
func bucketKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case GranularityWeek:
		return weekStart(t).Format("2006-01-02")
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// bucketStart returns the first instant of the bucket containing t.
func bucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityWeek:
		return weekStart(t)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func stepForward(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func stepBack(t time.Time, g Granularity, n int) time.Time {
	switch g {
	case GranularityWeek:
		return t.AddDate(0, 0, -7*n)
	case GranularityMonth:
		return t.AddDate(0, -n, 0)
	default:
		return t.AddDate(0, 0, -n)
	}
}
