package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clover-lab/clover-api/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func event(tag models.EventTag, hasBug *bool, at time.Time) models.ActivityLog {
	return models.ActivityLog{
		ID:        "ev",
		UserID:    "user-1",
		Event:     tag,
		Mode:      tag.Mode(),
		HasBug:    hasBug,
		CreatedAt: at,
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary := Summarize(nil)

	assert.Zero(t, summary.TotalAccepted)
	assert.Zero(t, summary.TotalRejected)
	assert.Zero(t, summary.TotalInteractions)
	assert.Zero(t, summary.CorrectSuggestions)
	assert.Zero(t, summary.AccuracyPercentage)
}

func TestSummarizeCountsAndAccuracy(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), now),
		event(models.EventCodeBlockAccept, boolPtr(true), now),
		event(models.EventCodeBlockReject, nil, now),
	}

	summary := Summarize(events)

	assert.Equal(t, 2, summary.TotalAccepted)
	assert.Equal(t, 1, summary.TotalRejected)
	assert.Equal(t, 3, summary.TotalInteractions)
	assert.Equal(t, 1, summary.CorrectSuggestions)
	assert.InDelta(t, 100.0/3.0, summary.AccuracyPercentage, 1e-9)
}

func TestSummarizeAbsentHasBugCountsAsCorrect(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ActivityLog{
		event(models.EventLineByLineAccept, nil, now),
		event(models.EventCodeSelectionAccept, boolPtr(false), now),
	}

	summary := Summarize(events)

	assert.Equal(t, 2, summary.TotalAccepted)
	assert.Equal(t, 2, summary.CorrectSuggestions)
	assert.InDelta(t, 100.0, summary.AccuracyPercentage, 1e-9)
}

func TestSummarizeIgnoresUnknownTags(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), now),
		event(models.EventTag("SUGGESTION_SHOWN"), nil, now),
		event(models.EventTag(""), nil, now),
	}

	summary := Summarize(events)

	assert.Equal(t, 1, summary.TotalAccepted)
	assert.Equal(t, 0, summary.TotalRejected)
	assert.Equal(t, 1, summary.TotalInteractions)
	assert.Equal(t, 1, summary.CorrectSuggestions)
}

func TestSummarizeInvariants(t *testing.T) {
	now := time.Now().UTC()
	tags := []models.EventTag{
		models.EventCodeBlockAccept,
		models.EventCodeBlockReject,
		models.EventLineByLineAccept,
		models.EventLineByLineReject,
		models.EventCodeSelectionAccept,
		models.EventTag("UNKNOWN"),
	}
	bugs := []*bool{nil, boolPtr(true), boolPtr(false)}

	var events []models.ActivityLog
	for i, tag := range tags {
		for _, bug := range bugs {
			events = append(events, event(tag, bug, now.Add(time.Duration(i)*time.Minute)))
		}
	}

	summary := Summarize(events)

	assert.Equal(t, summary.TotalAccepted+summary.TotalRejected, summary.TotalInteractions)
	assert.LessOrEqual(t, summary.CorrectSuggestions, summary.TotalAccepted)
	assert.GreaterOrEqual(t, summary.AccuracyPercentage, 0.0)
	assert.LessOrEqual(t, summary.AccuracyPercentage, 100.0)
}

func TestSummarizeIsPure(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ActivityLog{
		event(models.EventCodeBlockAccept, boolPtr(false), now),
		event(models.EventLineByLineReject, nil, now),
	}

	first := Summarize(events)
	second := Summarize(events)

	require.Equal(t, first, second)
}

func TestAccuracySeriesSkipsEmptyBuckets(t *testing.T) {
	points := []models.TimeSeriesPoint{
		{BucketKey: "2026-08-01", Total: 4, Correct: 3},
		{BucketKey: "2026-08-02", Total: 0, Correct: 0},
		{BucketKey: "2026-08-03", Total: 2, Correct: 1},
	}

	series := AccuracySeries(points)

	require.Len(t, series, 2)
	assert.Equal(t, "2026-08-01", series[0].BucketKey)
	assert.InDelta(t, 75.0, series[0].Accuracy, 1e-9)
	assert.Equal(t, "2026-08-03", series[1].BucketKey)
	assert.InDelta(t, 50.0, series[1].Accuracy, 1e-9)
}
