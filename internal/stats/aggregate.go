// Package stats turns raw activity logs into the acceptance and accuracy
// statistics served by the dashboard endpoints. Everything here is a pure
// function over slices: no storage, no clock except the one passed in.
package stats

import (
	"github.com/clover-lab/clover-api/internal/models"
)

// Summarize counts accept/reject interactions and derives the accuracy
// percentage. Events whose tag is in neither semantic class are ignored.
// An absent has_bug counts as "no known bug", so such accepted events are
// correct and stay in the denominator.
func Summarize(events []models.ActivityLog) models.ProgressSummary {
	var summary models.ProgressSummary
	for _, ev := range events {
		switch {
		case ev.Event.IsAccept():
			summary.TotalAccepted++
			if !ev.KnownBug() {
				summary.CorrectSuggestions++
			}
		case ev.Event.IsReject():
			summary.TotalRejected++
		}
	}
	summary.TotalInteractions = summary.TotalAccepted + summary.TotalRejected
	if summary.TotalInteractions > 0 {
		summary.AccuracyPercentage = float64(summary.CorrectSuggestions) / float64(summary.TotalInteractions) * 100
	}
	return summary
}

// AccuracySeries converts bucket counts into accuracy percentages, dropping
// buckets with zero samples: a ratio with no denominator is a hole in the
// chart, not a zero.
func AccuracySeries(points []models.TimeSeriesPoint) []models.AccuracyPoint {
	result := make([]models.AccuracyPoint, 0, len(points))
	for _, p := range points {
		if p.Total == 0 {
			continue
		}
		result = append(result, models.AccuracyPoint{
			BucketKey: p.BucketKey,
			Accuracy:  float64(p.Correct) / float64(p.Total) * 100,
		})
	}
	return result
}
