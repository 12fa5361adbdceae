package scoring

import (
	"math"
	"time"

	"shop-finder/internal/estimator"
	"shop-finder/models"
)

const (
	maxWaitMinutes   = 120.0
	maxQueueSize     = 20.0
	maxDistanceKm    = 10.0
	baseSpeedKmPerHr = 30.0
)

// Weights are recomputed on every call from the local hour and weekday.
type Weights struct {
	Queue        float64 `json:"queue"`
	Availability float64 `json:"availability"`
	Distance     float64 `json:"distance"`
	Traffic      float64 `json:"traffic"`
}

func DynamicWeights(now time.Time) Weights {
	var w Weights

	if estimator.IsPeakHour(now.Hour()) {
		w.Queue, w.Availability = 0.45, 0.25
	} else {
		w.Queue, w.Availability = 0.35, 0.35
	}

	if estimator.IsWeekend(now) {
		w.Distance, w.Traffic = 0.2, 0.1
	} else {
		w.Distance, w.Traffic = 0.15, 0.15
	}

	return w
}

// TrafficMultiplier estimates road congestion at now. Weekends take
// precedence over rush hours.
func TrafficMultiplier(now time.Time) float64 {
	hour := now.Hour()

	switch {
	case estimator.IsWeekend(now):
		return 1.1
	case hour >= 8 && hour <= 10:
		return 1.5
	case hour >= 16 && hour <= 18:
		return 1.4
	default:
		return 1.0
	}
}

// QueueScore is 1 for an idle shop and falls toward 0 as the wait approaches
// two hours and the queue approaches twenty people. No data counts as idle.
func QueueScore(queue *models.QueueSnapshot) float64 {
	if queue == nil {
		return 1
	}

	waitTimeScore := clampUnit(1 - queue.AverageWaitTime/maxWaitMinutes)
	queueSizeScore := clampUnit(1 - float64(queue.CurrentQueueSize)/maxQueueSize)

	return waitTimeScore*0.6 + queueSizeScore*0.4
}

// AvailabilityScore blends the share of open services with their spare
// capacity. No data counts as nothing available.
func AvailabilityScore(availability *models.ShopServiceAvailability) float64 {
	if availability == nil || len(availability.Services) == 0 {
		return 0
	}

	available := 0
	var capacityTotal float64
	for _, svc := range availability.Services {
		if !svc.IsAvailable {
			continue
		}
		available++
		if svc.MaxCapacity > 0 {
			// walk-ins can push current past max
			capacityTotal += clampUnit(1 - float64(svc.CurrentCapacity)/float64(svc.MaxCapacity))
		}
	}

	n := float64(len(availability.Services))
	availabilityRatio := float64(available) / n
	averageCapacityScore := capacityTotal / n

	return availabilityRatio*0.6 + averageCapacityScore*0.4
}

type LocationScore struct {
	DistanceScore       float64
	TrafficScore        float64
	EstimatedTravelTime float64 // minutes
}

func ScoreLocation(distance float64, now time.Time) LocationScore {
	multiplier := TrafficMultiplier(now)

	return LocationScore{
		DistanceScore:       math.Max(0, 1-distance/maxDistanceKm),
		TrafficScore:        math.Max(0, 1-multiplier/2),
		EstimatedTravelTime: (distance / baseSpeedKmPerHr) * 60 * multiplier,
	}
}

// AlternativeServices lists same-group services that are open right now and
// that the shop's customer did not already ask for.
func AlternativeServices(availability *models.ShopServiceAvailability, preferred []string) []string {
	alternatives := []string{}
	if availability == nil {
		return alternatives
	}

	wanted := make(map[string]bool, len(preferred))
	for _, svc := range preferred {
		wanted[svc] = true
	}
	collected := make(map[string]bool)

	for _, svc := range preferred {
		group, ok := models.GroupOf(svc)
		if !ok {
			continue
		}
		for _, alt := range group.Services {
			if alt == svc || wanted[alt] || collected[alt] {
				continue
			}
			if status, ok := availability.Services[alt]; ok && status.IsAvailable {
				collected[alt] = true
				alternatives = append(alternatives, alt)
			}
		}
	}

	return alternatives
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
