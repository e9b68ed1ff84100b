// Package analyzer pairs sleep enter/exit samples into intervals and derives
// discharge rates from them.
//
// Rates are expressed in stored energy units per second. With sysfs
// energy_now readings (µWh) a rate r corresponds to r*3600/1e6 watts.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"sntrack/internal/model"
)

// Policy decides which ENTER is kept when two arrive without an EXIT between.
type Policy string

const (
	// LastWins replaces a pending ENTER with the newer one.
	LastWins Policy = "last-wins"
	// FirstWins keeps the older pending ENTER and drops the newer one.
	FirstWins Policy = "first-wins"
)

// ParsePolicy validates a policy name; "" means LastWins.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case LastWins, "":
		return LastWins, nil
	case FirstWins:
		return FirstWins, nil
	}
	return "", fmt.Errorf("analyzer: unknown pairing policy %q", s)
}

// Options controls pairing and filtering.
type Options struct {
	MinDuration time.Duration
	Policy      Policy
	// ExcludeNonDischarging drops intervals where the battery did not lose
	// energy, e.g. when it was charged while asleep.
	ExcludeNonDischarging bool
}

// Interval is one ENTER/EXIT pair. It is derived on demand and never stored.
type Interval struct {
	Enter         model.Sample
	Exit          model.Sample
	Duration      time.Duration
	EnergyDelta   int64
	DischargeRate float64
}

// Midpoint is halfway between the interval's ENTER and EXIT.
func (iv Interval) Midpoint() time.Time {
	return iv.Enter.Timestamp.Add(iv.Duration / 2)
}

// ComputeIntervals pairs samples in timestamp order and drops intervals
// shorter than opts.MinDuration or opened on AC power. Orphan ENTER and
// EXIT samples are skipped.
// The input slice is not modified.
func ComputeIntervals(samples []model.Sample, opts Options) []Interval {
	ordered := make([]model.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var (
		intervals []Interval
		pending   *model.Sample
	)
	for i := range ordered {
		s := ordered[i]
		switch s.EventKind {
		case model.EventEnter:
			if pending != nil && opts.Policy == FirstWins {
				continue
			}
			pending = &s
		case model.EventExit:
			if pending == nil {
				continue
			}
			if iv, ok := newInterval(*pending, s, opts); ok {
				intervals = append(intervals, iv)
			}
			pending = nil
		}
	}
	return intervals
}

func newInterval(enter, exit model.Sample, opts Options) (Interval, bool) {
	if enter.OnAC {
		return Interval{}, false
	}
	duration := exit.Timestamp.Sub(enter.Timestamp)
	if duration <= 0 || duration < opts.MinDuration {
		return Interval{}, false
	}
	delta := int64(enter.EnergyLevel) - int64(exit.EnergyLevel)
	if opts.ExcludeNonDischarging && delta <= 0 {
		return Interval{}, false
	}
	return Interval{
		Enter:         enter,
		Exit:          exit,
		Duration:      duration,
		EnergyDelta:   delta,
		DischargeRate: float64(delta) / duration.Seconds(),
	}, true
}

// Criteria narrows intervals by the attributes recorded at sleep enter.
// Empty fields match everything.
type Criteria struct {
	Action      string
	Mode        string
	BiosVersion string
}

// Filter returns the intervals matching c, preserving order.
func Filter(intervals []Interval, c Criteria) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if c.Action != "" && iv.Enter.SleepAction != c.Action {
			continue
		}
		if c.Mode != "" && iv.Enter.SleepMode != c.Mode {
			continue
		}
		if c.BiosVersion != "" && iv.Enter.BiosVersion != c.BiosVersion {
			continue
		}
		out = append(out, iv)
	}
	return out
}
