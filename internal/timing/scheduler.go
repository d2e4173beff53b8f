package timing

import (
	"math"
	"sync"
	"time"

	"goreg/domain/core"
	"goreg/domain/trial"
	"goreg/internal/logging"
)

// minDelay clamps the scheduled wait to avoid a runaway tight loop when
// accumulated drift exceeds a full interval.
const minDelay = time.Millisecond

// Scheduler fires a caller-supplied action once per target interval with
// bounded drift. A single goroutine owns the timeline: it computes the next
// deadline, parks until then, and corrects each wait by the accumulated
// deviation from the ideal schedule when drift compensation is enabled.
type Scheduler struct {
	interval  time.Duration
	tolerance time.Duration
	drift     bool
	log       *logging.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	startTime time.Time
	sumError  float64 // ms
	maxError  float64 // ms
	missed    int
	count     int
}

// NewScheduler creates a scheduler firing at the given interval. A tick
// arriving more than tolerance late counts as a missed interval; a
// non-positive tolerance falls back to half the interval. Drift
// compensation keeps the long-run average rate on target under system
// scheduling jitter.
func NewScheduler(interval, tolerance time.Duration, driftCompensation bool, log *logging.Logger) *Scheduler {
	if tolerance <= 0 {
		tolerance = interval / 2
	}
	return &Scheduler{
		interval:  interval,
		tolerance: tolerance,
		drift:     driftCompensation,
		log:       log,
	}
}

// Start begins firing the action once per interval. Metrics from any
// previous run are reset. Returns ErrEngineRunning if already started.
func (s *Scheduler) Start(action func()) error {
	if action == nil {
		return core.NewConfigError("action", "must not be nil")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return core.ErrEngineRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.startTime = time.Now()
	s.sumError = 0
	s.maxError = 0
	s.missed = 0
	s.count = 0
	stop, done, start := s.stop, s.done, s.startTime
	s.mu.Unlock()

	go s.run(action, stop, done, start)
	return nil
}

// Stop halts firing. It is effective before the next scheduled tick: once
// Stop returns, no further action invocation happens.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
}

// IsRunning reports whether the scheduler is firing
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Metrics returns the accumulated timing error statistics since the last
// Start. Queryable at any time, including mid-run.
func (s *Scheduler) Metrics() trial.TimingMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := trial.TimingMetrics{
		MaxError:        s.maxError,
		MissedIntervals: s.missed,
		IntervalCount:   s.count,
	}
	if s.count > 0 {
		m.AverageError = s.sumError / float64(s.count)
	}
	return m
}

// Interval returns the configured firing interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) run(action func(), stop <-chan struct{}, done chan<- struct{}, start time.Time) {
	defer close(done)

	expected := start.Add(s.interval)
	wait := s.interval

	for {
		timer := time.NewTimer(wait)
		var now time.Time
		select {
		case <-stop:
			timer.Stop()
			return
		case now = <-timer.C:
		}
		// A stop accepted while the timer fired still wins: no tick may
		// run after Stop.
		select {
		case <-stop:
			return
		default:
		}

		timingError := now.Sub(expected)
		s.recordTick(timingError)

		s.fire(action)

		expected = expected.Add(s.interval)

		if s.drift {
			elapsed := time.Since(start)
			ideal := time.Duration(s.tickCount()) * s.interval
			wait = s.interval - (elapsed - ideal)
		} else {
			wait = s.interval
		}
		if wait < minDelay {
			wait = minDelay
		}
	}
}

// fire invokes the action, containing any panic: scheduling errors are
// non-fatal and the timeline continues.
func (s *Scheduler) fire(action func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("tick action panicked: %v", r)
		}
	}()
	action()
}

func (s *Scheduler) recordTick(timingError time.Duration) {
	errMs := math.Abs(float64(timingError) / float64(time.Millisecond))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.sumError += errMs
	if errMs > s.maxError {
		s.maxError = errMs
	}
	if timingError > s.tolerance {
		s.missed++
	}
}

func (s *Scheduler) tickCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
