package analyzer

import (
	"math"
	"sort"
	"time"
)

// Point is one plotted observation: the discharge rate of an interval,
// placed at its EXIT time.
type Point struct {
	Time          time.Time     `json:"time"`
	Duration      time.Duration `json:"duration_ns"`
	DischargeRate float64       `json:"discharge_rate"`
}

// Series converts intervals into points ordered by time ascending.
func Series(intervals []Interval) []Point {
	points := make([]Point, 0, len(intervals))
	for _, iv := range intervals {
		points = append(points, Point{
			Time:          iv.Exit.Timestamp,
			Duration:      iv.Duration,
			DischargeRate: iv.DischargeRate,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}

// Summary aggregates a set of intervals.
type Summary struct {
	Sessions      int           `json:"sessions"`
	TotalSlept    time.Duration `json:"total_slept_ns"`
	MeanRate      float64       `json:"mean_discharge_rate"`
	EstimatedLife time.Duration `json:"estimated_life_ns"`
}

// Summarize computes the mean discharge rate and how long a battery of
// fullEnergy would last asleep at that rate. EstimatedLife is zero when
// fullEnergy is unknown or the mean rate is not positive, and saturates at
// the largest time.Duration for a near-zero rate.
func Summarize(intervals []Interval, fullEnergy uint64) Summary {
	var s Summary
	if len(intervals) == 0 {
		return s
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv.DischargeRate
		s.TotalSlept += iv.Duration
	}
	s.Sessions = len(intervals)
	s.MeanRate = sum / float64(len(intervals))

	if fullEnergy > 0 && s.MeanRate > 0 {
		s.EstimatedLife = durationOf(float64(fullEnergy) / s.MeanRate)
	}
	return s
}

// durationOf converts seconds to a Duration, saturating instead of wrapping.
func durationOf(seconds float64) time.Duration {
	ns := seconds * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
