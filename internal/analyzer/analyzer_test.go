package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sntrack/internal/model"
)

var t0 = time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)

func enter(offset time.Duration, energy uint64) model.Sample {
	return model.Sample{Timestamp: t0.Add(offset), EnergyLevel: energy, EventKind: model.EventEnter}
}

func exit(offset time.Duration, energy uint64) model.Sample {
	return model.Sample{Timestamp: t0.Add(offset), EnergyLevel: energy, EventKind: model.EventExit}
}

func onAC(s model.Sample) model.Sample {
	s.OnAC = true
	return s
}

func TestComputeIntervals(t *testing.T) {
	min5 := Options{MinDuration: 300 * time.Second}

	testCases := []struct {
		name          string
		samples       []model.Sample
		opts          Options
		expectedRates []float64
	}{
		{
			name:          "No samples",
			samples:       nil,
			opts:          min5,
			expectedRates: nil,
		},
		{
			name:          "Single pair above threshold",
			samples:       []model.Sample{enter(0, 100), exit(time.Hour, 80)},
			opts:          min5,
			expectedRates: []float64{20.0 / 3600},
		},
		{
			name:          "Single pair below threshold",
			samples:       []model.Sample{enter(0, 100), exit(299*time.Second, 99)},
			opts:          min5,
			expectedRates: nil,
		},
		{
			name:          "Pair exactly at threshold is kept",
			samples:       []model.Sample{enter(0, 100), exit(300*time.Second, 97)},
			opts:          min5,
			expectedRates: []float64{3.0 / 300},
		},
		{
			name:          "Orphan enter at end of log",
			samples:       []model.Sample{enter(0, 100)},
			opts:          min5,
			expectedRates: nil,
		},
		{
			name:          "Orphan exit without enter",
			samples:       []model.Sample{exit(time.Hour, 80)},
			opts:          min5,
			expectedRates: nil,
		},
		{
			name: "Two intervals in order",
			samples: []model.Sample{
				enter(0, 100),
				exit(time.Hour, 80),
				enter(2*time.Hour, 80),
				exit(4*time.Hour, 50),
			},
			opts:          min5,
			expectedRates: []float64{20.0 / 3600, 30.0 / 7200},
		},
		{
			name: "Duplicate enter, last wins",
			samples: []model.Sample{
				enter(0, 100),
				enter(time.Hour, 90),
				exit(2*time.Hour, 80),
			},
			opts:          Options{MinDuration: 300 * time.Second, Policy: LastWins},
			expectedRates: []float64{10.0 / 3600},
		},
		{
			name: "Duplicate enter, first wins",
			samples: []model.Sample{
				enter(0, 100),
				enter(time.Hour, 90),
				exit(2*time.Hour, 80),
			},
			opts:          Options{MinDuration: 300 * time.Second, Policy: FirstWins},
			expectedRates: []float64{20.0 / 7200},
		},
		{
			name: "Duplicate exit, second exit discarded",
			samples: []model.Sample{
				enter(0, 100),
				exit(time.Hour, 90),
				exit(2*time.Hour, 50),
			},
			opts:          min5,
			expectedRates: []float64{10.0 / 3600},
		},
		{
			name: "Enter on AC yields no interval",
			samples: []model.Sample{
				onAC(enter(0, 100)),
				exit(time.Hour, 80),
			},
			opts:          min5,
			expectedRates: nil,
		},
		{
			name: "Enter on AC supersedes a stale enter",
			samples: []model.Sample{
				enter(0, 50000000),
				onAC(enter(72*time.Hour, 60000000)),
				exit(80*time.Hour, 30000000),
			},
			opts:          min5,
			expectedRates: nil,
		},
		{
			name: "Battery cycle after an AC cycle is kept",
			samples: []model.Sample{
				onAC(enter(0, 100)),
				exit(time.Hour, 100),
				enter(2*time.Hour, 100),
				exit(3*time.Hour, 90),
			},
			opts:          min5,
			expectedRates: []float64{10.0 / 3600},
		},
		{
			name:          "Charged while asleep is kept by default",
			samples:       []model.Sample{enter(0, 50), exit(time.Hour, 86)},
			opts:          min5,
			expectedRates: []float64{-36.0 / 3600},
		},
		{
			name:          "Charged while asleep is dropped when excluded",
			samples:       []model.Sample{enter(0, 50), exit(time.Hour, 86)},
			opts:          Options{MinDuration: 300 * time.Second, ExcludeNonDischarging: true},
			expectedRates: nil,
		},
		{
			name:          "Zero duration dropped even without threshold",
			samples:       []model.Sample{enter(0, 50), exit(0, 40)},
			opts:          Options{},
			expectedRates: nil,
		},
		{
			name: "Short nap does not consume the next pair",
			samples: []model.Sample{
				enter(0, 100),
				exit(time.Minute, 100),
				enter(time.Hour, 100),
				exit(3*time.Hour, 70),
			},
			opts:          min5,
			expectedRates: []float64{30.0 / 7200},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			intervals := ComputeIntervals(tc.samples, tc.opts)

			var rates []float64
			for _, iv := range intervals {
				rates = append(rates, iv.DischargeRate)
			}
			assert.Equal(t, tc.expectedRates, rates)
		})
	}
}

func TestComputeIntervals_IntervalFields(t *testing.T) {
	in := enter(0, 100)
	in.SleepAction = "suspend"
	out := exit(time.Hour, 80)

	intervals := ComputeIntervals([]model.Sample{in, out}, Options{MinDuration: 5 * time.Minute})
	require.Len(t, intervals, 1)

	iv := intervals[0]
	assert.Equal(t, time.Hour, iv.Duration)
	assert.Equal(t, int64(20), iv.EnergyDelta)
	assert.Equal(t, "suspend", iv.Enter.SleepAction)
	assert.Equal(t, t0.Add(30*time.Minute), iv.Midpoint())
}

func TestComputeIntervals_Deterministic(t *testing.T) {
	samples := []model.Sample{
		exit(-time.Hour, 10),
		enter(0, 100),
		enter(10*time.Minute, 99),
		exit(time.Hour, 80),
		enter(2*time.Hour, 80),
		exit(2*time.Hour+time.Minute, 80),
		enter(3*time.Hour, 70),
	}
	opts := Options{MinDuration: 5 * time.Minute}

	first := ComputeIntervals(samples, opts)
	second := ComputeIntervals(samples, opts)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
}

func TestComputeIntervals_UnsortedInputNotMutated(t *testing.T) {
	samples := []model.Sample{exit(time.Hour, 80), enter(0, 100)}

	intervals := ComputeIntervals(samples, Options{})
	require.Len(t, intervals, 1)
	assert.Equal(t, model.EventExit, samples[0].EventKind)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWins, p)

	p, err = ParsePolicy("first-wins")
	require.NoError(t, err)
	assert.Equal(t, FirstWins, p)

	_, err = ParsePolicy("newest")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	mk := func(action, mode, bios string) Interval {
		return Interval{Enter: model.Sample{SleepAction: action, SleepMode: mode, BiosVersion: bios}}
	}
	intervals := []Interval{
		mk("suspend", "deep", "1.35"),
		mk("suspend", "s2idle", "1.35"),
		mk("hibernate", "deep", "1.40"),
	}

	testCases := []struct {
		name     string
		criteria Criteria
		expected int
	}{
		{name: "No criteria", criteria: Criteria{}, expected: 3},
		{name: "By action", criteria: Criteria{Action: "suspend"}, expected: 2},
		{name: "By mode", criteria: Criteria{Mode: "deep"}, expected: 2},
		{name: "By bios", criteria: Criteria{BiosVersion: "1.40"}, expected: 1},
		{name: "Combined", criteria: Criteria{Action: "suspend", Mode: "s2idle"}, expected: 1},
		{name: "No match", criteria: Criteria{Mode: "shallow"}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, Filter(intervals, tc.criteria), tc.expected)
		})
	}
}
