package report

import (
	"context"
	"errors"
	"fmt"

	"sntrack/internal/analyzer"
	"sntrack/internal/logging"
	"sntrack/internal/power"
	"sntrack/internal/store"
)

// ErrNoData is returned when no interval survives pairing and filtering.
var ErrNoData = errors.New("report: no data")

// microWattHoursPerWattSecond converts a µWh/s rate to watts.
const microWattHoursPerWattSecond = 1e6 / 3600

// Report is the numeric output handed to a plotting backend.
type Report struct {
	Points  []analyzer.Point `json:"points"`
	Summary analyzer.Summary `json:"summary"`
	// Criteria echoes the filters used to build the report.
	Criteria analyzer.Criteria `json:"criteria"`
}

// Service builds reports from the stored sample log.
type Service struct {
	store  store.Store
	power  power.Reader
	logger logging.Logger
	opts   analyzer.Options
}

// NewService creates a report service. power may be nil, in which case the
// battery life estimate is omitted.
func NewService(s store.Store, p power.Reader, logger logging.Logger, opts analyzer.Options) *Service {
	return &Service{store: s, power: p, logger: logger, opts: opts}
}

// Options returns the analyzer options the service was built with.
func (s *Service) Options() analyzer.Options {
	return s.opts
}

// Build reads all samples and computes the filtered series. opts overrides
// the service defaults for this call when non-nil.
func (s *Service) Build(ctx context.Context, criteria analyzer.Criteria, opts *analyzer.Options) (*Report, error) {
	samples, err := s.store.ListSamples(ctx)
	if err != nil {
		return nil, err
	}

	o := s.opts
	if opts != nil {
		o = *opts
	}
	intervals := analyzer.Filter(analyzer.ComputeIntervals(samples, o), criteria)
	s.logger.Debugf("%d samples, %d intervals after filtering", len(samples), len(intervals))

	r := &Report{
		Points:   analyzer.Series(intervals),
		Summary:  analyzer.Summarize(intervals, s.fullEnergy()),
		Criteria: criteria,
	}
	if len(intervals) == 0 {
		return r, ErrNoData
	}
	return r, nil
}

func (s *Service) fullEnergy() uint64 {
	if s.power == nil {
		return 0
	}
	full, err := s.power.EnergyFull()
	if err != nil {
		s.logger.Debugf("battery capacity unavailable: %v", err)
		return 0
	}
	return full
}

// Watts converts a rate in µWh per second to watts.
func Watts(rate float64) float64 {
	return rate / microWattHoursPerWattSecond
}

// Title describes the active filters, e.g. "mode: deep, action: suspend".
func Title(c analyzer.Criteria) string {
	var title string
	add := func(k, v string) {
		if v == "" {
			return
		}
		if title != "" {
			title += ", "
		}
		title += fmt.Sprintf("%s: %s", k, v)
	}
	add("bios", c.BiosVersion)
	add("mode", c.Mode)
	add("action", c.Action)
	return title
}
