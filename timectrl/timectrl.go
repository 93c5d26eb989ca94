package timectrl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTimebase is returned by Timebase.Validate.
var ErrInvalidTimebase = errors.New("invalid timebase")

// SimClock is an interface for accessing the current time. Components that
// stamp their output depend on it rather than on time.Now so tests can pin
// the clock.
type SimClock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

// Now implements SimClock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now implements SimClock.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Timebase is the reporting schedule shared by every vessel in a scenario:
// report i is taken at Start + i*Interval.
type Timebase struct {
	Start    time.Time
	Interval time.Duration
	Duration time.Duration
}

// Bounds on a Timebase. NMEA timestamps carry whole seconds.
const (
	MinInterval = time.Second
	MaxSteps    = 10_000_000
)

// Validate checks that the schedule yields at least one report and no more
// than MaxSteps.
func (tb Timebase) Validate() error {
	if tb.Interval <= 0 {
		return fmt.Errorf("%w: report interval must be positive, got %s", ErrInvalidTimebase, tb.Interval)
	}
	if tb.Interval < MinInterval {
		return fmt.Errorf("%w: report interval %s is shorter than %s", ErrInvalidTimebase, tb.Interval, MinInterval)
	}
	if tb.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidTimebase, tb.Duration)
	}
	if tb.Duration < tb.Interval {
		return fmt.Errorf("%w: duration %s is shorter than the report interval %s", ErrInvalidTimebase, tb.Duration, tb.Interval)
	}
	if n := tb.Steps(); n > MaxSteps {
		return fmt.Errorf("%w: %d reports exceed the maximum of %d", ErrInvalidTimebase, n, MaxSteps)
	}
	return nil
}

// Steps is the number of reports in the window.
func (tb Timebase) Steps() int {
	if tb.Interval <= 0 {
		return 0
	}
	return int(tb.Duration / tb.Interval)
}

// Elapsed is the offset of report step from Start.
func (tb Timebase) Elapsed(step int) time.Duration {
	return time.Duration(step) * tb.Interval
}

// At is the timestamp of report step.
func (tb Timebase) At(step int) time.Time {
	return tb.Start.Add(tb.Elapsed(step))
}

// End is the timestamp of the last report.
func (tb Timebase) End() time.Time {
	return tb.At(tb.Steps() - 1)
}

// Mode describes how the TimeController paces replay.
type Mode int

const (
	// RealTime waits Interval/Speedup of wall-clock time between reports.
	RealTime Mode = iota
	// Accelerated emits reports as quickly as listeners consume them.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// ParseMode maps "realtime" or "accelerated" onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "realtime", "real-time":
		return RealTime, nil
	case "accelerated", "fast":
		return Accelerated, nil
	}
	return RealTime, fmt.Errorf("unknown replay mode %q", s)
}

// TimeController steps through a Timebase and notifies registered listeners
// at every report time. It implements SimClock.
type TimeController struct {
	mu      sync.RWMutex
	Base    Timebase
	Mode    Mode
	Speedup float64

	currentTime time.Time
	step        int

	listeners []func(step int, t time.Time)

	// wait is swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewTimeController constructs a controller positioned at the first report.
// Speedup values <= 0 are treated as 1.
func NewTimeController(tb Timebase, mode Mode, speedup float64) *TimeController {
	if speedup <= 0 {
		speedup = 1
	}
	return &TimeController{
		Base:        tb,
		Mode:        mode,
		Speedup:     speedup,
		currentTime: tb.Start,
		wait:        sleepContext,
	}
}

// Now returns the time of the most recently emitted report.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// Step returns the index of the most recently emitted report.
func (tc *TimeController) Step() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.step
}

// SetTime moves the controller to t without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every report.
func (tc *TimeController) AddListener(fn func(step int, t time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Pace is the wall-clock gap between two reports in the current mode.
func (tc *TimeController) Pace() time.Duration {
	if tc.Mode == Accelerated {
		return 0
	}
	return time.Duration(float64(tc.Base.Interval) / tc.Speedup)
}

// Run emits every report in order and returns when the window is exhausted
// or ctx is cancelled.
func (tc *TimeController) Run(ctx context.Context) error {
	if err := tc.Base.Validate(); err != nil {
		return err
	}
	tc.mu.RLock()
	listeners := append([]func(int, time.Time){}, tc.listeners...)
	tc.mu.RUnlock()

	pace := tc.Pace()
	steps := tc.Base.Steps()
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && pace > 0 {
			if err := tc.wait(ctx, pace); err != nil {
				return err
			}
		}
		now := tc.Base.At(i)
		tc.mu.Lock()
		tc.currentTime = now
		tc.step = i
		tc.mu.Unlock()

		for _, fn := range listeners {
			fn(i, now)
		}
	}
	return nil
}

// Start runs the controller in a separate goroutine. The returned channel
// receives Run's result and is then closed.
func (tc *TimeController) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- tc.Run(ctx)
	}()
	return done
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
