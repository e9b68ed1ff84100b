package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sntrack/internal/logging"
	"sntrack/internal/model"
	"sntrack/internal/power"
	"sntrack/internal/store"
)

// ErrSkipped marks a hook run that deliberately wrote nothing because no
// battery could be read. Callers treat it as success.
var ErrSkipped = errors.New("recorder: sample skipped")

// SleepActions are the actions systemd-sleep passes to hooks.
var SleepActions = []string{"suspend", "hibernate", "hybrid-sleep", "suspend-then-hibernate"}

// Options configures a Recorder.
type Options struct {
	// SkipOnAC flags ENTER samples taken on mains power so their intervals
	// are left out of analysis.
	SkipOnAC bool
	// LockPath, when set, is flocked around each append.
	LockPath string
	// Lock acquires the advisory lock; nil disables locking.
	Lock func(path string) (func() error, error)
}

// Recorder turns sleep hook invocations into stored samples.
type Recorder struct {
	store  store.Store
	power  power.Reader
	logger logging.Logger
	opts   Options
	now    func() time.Time
}

// New creates a Recorder.
func New(s store.Store, p power.Reader, logger logging.Logger, opts Options) *Recorder {
	return &Recorder{
		store:  s,
		power:  p,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// Record samples the battery and appends one sample of the given kind.
func (r *Recorder) Record(ctx context.Context, kind model.EventKind, action string) error {
	energy, err := r.power.EnergyNow()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSkipped, err)
	}

	sample := &model.Sample{
		Timestamp:   r.now(),
		EnergyLevel: energy,
		EventKind:   kind,
		SleepAction: action,
	}
	if kind == model.EventEnter {
		// A plugged-in ENTER is still written so that it supersedes any
		// stale pending ENTER; the analyzer discards its interval.
		if r.opts.SkipOnAC {
			onAC, err := r.power.OnAC()
			if err != nil {
				r.logger.Warnf("could not read AC state: %v", err)
			}
			sample.OnAC = onAC
		}
		r.describeHost(ctx, sample)
	}

	if r.opts.LockPath != "" && r.opts.Lock != nil {
		unlock, err := r.opts.Lock(r.opts.LockPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(); err != nil {
				r.logger.Warnf("releasing lock %s: %v", r.opts.LockPath, err)
			}
		}()
	}

	if err := r.store.AppendSample(ctx, sample); err != nil {
		return err
	}
	r.logger.Infof("recorded %s sample: energy=%d action=%s on_ac=%t", kind, energy, action, sample.OnAC)
	return nil
}

// describeHost fills the best-effort attributes used for plot filtering.
func (r *Recorder) describeHost(ctx context.Context, sample *model.Sample) {
	if mode, err := r.power.SleepMode(); err != nil {
		r.logger.Warnf("could not read sleep mode: %v", err)
	} else {
		sample.SleepMode = mode
	}
	if bios, err := r.power.BiosVersion(ctx); err != nil {
		r.logger.Warnf("could not read BIOS version: %v", err)
	} else {
		sample.BiosVersion = bios
	}
}
