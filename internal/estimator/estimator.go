// Package estimator computes per-person queue wait times for a shop.
package estimator

import (
	"math"
	"sort"
	"time"

	"shop-finder/models"
)

// DefaultWait is returned when there is nothing to estimate from. It is not
// zero so an empty queue never promises an instant slot.
const DefaultWait = 15.0

// HistorySampleSize bounds how many completed entries feed the correction.
const HistorySampleSize = 10

type Estimator struct {
	now func() time.Time
}

// New returns an Estimator reading wall-clock time from now. The location of
// the returned time decides the local hour and weekday.
func New(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now}
}

// Now is the estimator's current time.
func (e *Estimator) Now() time.Time {
	return e.now()
}

// EstimateWait returns the estimated wait in minutes for one person joining
// queue.
func (e *Estimator) EstimateWait(queue *models.QueueSnapshot) float64 {
	return EstimateWaitAt(queue, e.now())
}

// EstimateWaitAt is EstimateWait against an explicit instant.
func EstimateWaitAt(queue *models.QueueSnapshot, now time.Time) float64 {
	if queue == nil {
		return DefaultWait
	}

	active := queue.ActiveEntries()
	if len(active) == 0 {
		return DefaultWait
	}

	base := 0
	for _, entry := range active {
		base += models.ServiceDuration(entry.ServiceID)
	}

	// Early completions can pull the adjustment below zero; a quote never is.
	adjusted := float64(base)*TimeMultiplier(now) + HistoricalAdjustment(queue.Entries)
	return math.Max(0, math.Ceil(adjusted/float64(len(active))))
}

// IsPeakHour reports whether hour falls in 10-12 or 16-18, both inclusive.
func IsPeakHour(hour int) bool {
	return (hour >= 10 && hour <= 12) || (hour >= 16 && hour <= 18)
}

func IsWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// TimeMultiplier scales service durations by how busy shops are at t.
func TimeMultiplier(t time.Time) float64 {
	peak := IsPeakHour(t.Hour())
	weekend := IsWeekend(t)

	switch {
	case weekend && peak:
		return 1.5
	case weekend:
		return 1.3
	case peak:
		return 1.2
	default:
		return 1.0
	}
}

type completedSample struct {
	key   string
	entry models.QueueEntry
}

// HistoricalAdjustment is the mean difference, in minutes, between how long
// recently completed entries actually took and what they were promised.
// Only entries with a recorded completion time are sampled.
func HistoricalAdjustment(entries map[string]models.QueueEntry) float64 {
	samples := make([]completedSample, 0, len(entries))
	for key, entry := range entries {
		if entry.Status == models.StatusCompleted && entry.CompletedAt > 0 {
			samples = append(samples, completedSample{key: key, entry: entry})
		}
	}
	if len(samples) == 0 {
		return 0
	}

	sort.Slice(samples, func(i, j int) bool {
		a, b := samples[i].entry, samples[j].entry
		if a.CompletedAt != b.CompletedAt {
			return a.CompletedAt < b.CompletedAt
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return samples[i].key < samples[j].key
	})
	if len(samples) > HistorySampleSize {
		samples = samples[len(samples)-HistorySampleSize:]
	}

	var totalDiff float64
	for _, s := range samples {
		actual := float64(s.entry.CompletedAt-s.entry.Timestamp) / float64(time.Minute/time.Millisecond)
		totalDiff += actual - s.entry.EstimatedWaitTime
	}
	return totalDiff / float64(len(samples))
}
