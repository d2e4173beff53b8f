package engine

import (
	mathbits "math/bits"
	"runtime"
	"strings"
	"sync"
	"time"

	"goreg/domain/core"
	"goreg/domain/trial"
	"goreg/internal/errors"
	"goreg/internal/logging"
	"goreg/internal/stats"
	"goreg/internal/timing"
	"goreg/internal/validation"
	"goreg/ports"
)

const (
	// qualityWindowSize caps the recent-trials window used for live statistics.
	qualityWindowSize = 1000

	// statusBroadcastEvery coalesces status notifications to periodic ticks.
	statusBroadcastEvery = 10

	// calibrationPause spaces calibration trials to emulate real-time
	// generation rather than a pure batch.
	calibrationPause = 5 * time.Millisecond

	// calibrationHistorySize bounds the retained calibration results.
	calibrationHistorySize = 16
)

// Engine produces precision-timed trials from a cryptographic byte source
// and maintains the live quality state around them. It exclusively owns the
// trial buffers and hands out only snapshots; all mutable state sits behind
// one mutex since a single scheduler timeline drives all production.
type Engine struct {
	entropy ports.EntropyPort
	ledger  ports.TrialLedger // optional, fire-and-forget
	log     *logging.Logger

	mu        sync.Mutex
	cfg       trial.EngineConfiguration
	scheduler *timing.Scheduler
	running   bool
	inTick    bool // set for the duration of a scheduler tick, listeners included
	destroyed bool

	sessionID   core.SessionID
	mode        trial.Mode
	intention   trial.Intention
	trialNumber int
	totalTrials int

	buffer []trial.Trial // rolling FIFO, capacity cfg.BufferSize
	recent []trial.Trial // quality-monitoring window, capacity 1000

	trialSubs  *registry[func(trial.Trial)]
	statusSubs *registry[func(trial.EngineStatus)]

	calibrations []trial.CalibrationResult
}

// New constructs an engine. The configuration is validated up front; the
// ledger may be nil for a storage-free instrument.
func New(cfg trial.EngineConfiguration, entropy ports.EntropyPort, ledger ports.TrialLedger, log *logging.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if entropy == nil {
		return nil, core.NewConfigError("entropy", "source must not be nil")
	}
	if log == nil {
		log = logging.NewFromEnv("engine")
	}
	return &Engine{
		entropy:    entropy,
		ledger:     ledger,
		log:        log,
		cfg:        cfg,
		sessionID:  core.NewSessionID(),
		mode:       trial.ModeContinuous,
		intention:  trial.IntentionNone,
		trialSubs:  newRegistry[func(trial.Trial)](),
		statusSubs: newRegistry[func(trial.EngineStatus)](),
	}, nil
}

// GenerateTrial synchronously produces one validated trial
func (e *Engine) GenerateTrial() (trial.Trial, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateLocked()
}

// generateLocked derives a trial from fresh entropy: ceil(bits/8) random
// bytes, exactly bitsPerTrial bits extracted (low-order bits of the final
// partial byte), value = count of set bits. The result is a
// Binomial(bits, 0.5) observation under a fair source.
func (e *Engine) generateLocked() (trial.Trial, error) {
	if e.destroyed {
		return trial.Trial{}, core.ErrEngineDestroyed
	}

	bits := e.cfg.BitsPerTrial
	buf := make([]byte, (bits+7)/8)
	if err := e.entropy.Fill(buf); err != nil {
		return trial.Trial{}, core.NewGenerationError(err)
	}

	e.trialNumber++
	t := trial.Trial{
		Timestamp:   core.Now(),
		Value:       countSetBits(buf, bits),
		SessionID:   e.sessionID,
		Mode:        e.mode,
		Intention:   e.intention,
		TrialNumber: e.trialNumber,
	}

	if report := validation.CheckTrial(t, bits); !report.IsValid {
		e.trialNumber--
		return trial.Trial{}, errors.Wrapf(core.ErrTrialRejected, "trial %d: %s", t.TrialNumber, strings.Join(report.Errors, "; "))
	}

	e.totalTrials++
	return t, nil
}

// countSetBits extracts exactly bitCount bits from buf, stopping mid-byte on
// a partial final byte, and counts the set bits.
func countSetBits(buf []byte, bitCount int) int {
	full := bitCount / 8
	rem := bitCount % 8

	value := 0
	for i := 0; i < full; i++ {
		value += mathbits.OnesCount8(buf[i])
	}
	if rem > 0 {
		mask := byte(1<<rem) - 1
		value += mathbits.OnesCount8(buf[full] & mask)
	}
	return value
}

// StartContinuous begins scheduler-driven generation under the given
// session, mode, and intention. An empty session ID starts a fresh session.
func (e *Engine) StartContinuous(sessionID core.SessionID, mode trial.Mode, intention trial.Intention) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return core.ErrEngineDestroyed
	}
	if e.running {
		return core.ErrEngineRunning
	}
	if !mode.IsKnown() {
		return core.NewConfigError("mode", "unknown value "+string(mode))
	}
	if !intention.IsKnown() {
		return core.NewConfigError("intention", "unknown value "+string(intention))
	}

	if sessionID.IsEmpty() {
		sessionID = core.NewSessionID()
	}
	e.sessionID = sessionID
	e.mode = mode
	e.intention = intention
	e.trialNumber = 0

	e.scheduler = timing.NewScheduler(e.cfg.Interval(), e.cfg.Tolerance(), e.cfg.DriftCompensation, e.log)
	if err := e.scheduler.Start(e.tick); err != nil {
		return err
	}
	e.running = true
	e.log.Info("continuous generation started (session=%s interval=%s)", sessionID, e.cfg.Interval())
	return nil
}

// StopContinuous halts scheduler-driven generation. Effective before the
// next tick: no trial is generated after the stop is accepted. Safe to call
// from a trial or status listener; those run on the scheduler goroutine, so
// the scheduler is then stopped asynchronously instead of waited on.
func (e *Engine) StopContinuous() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	sched := e.scheduler
	inTick := e.inTick
	e.mu.Unlock()

	if sched != nil {
		if inTick {
			// The scheduler cannot be stopped synchronously from inside
			// its own tick.
			go sched.Stop()
		} else {
			sched.Stop()
		}
	}
	e.log.Info("continuous generation stopped")
}

// tick is the per-interval action driven by the scheduler: generate one
// trial, buffer it, notify listeners, and periodically broadcast status.
// A generation error terminates continuous mode - the instrument must not
// keep running on corrupted output.
func (e *Engine) tick() {
	e.mu.Lock()
	if !e.running || e.destroyed {
		e.mu.Unlock()
		return
	}
	e.inTick = true
	defer func() {
		e.mu.Lock()
		e.inTick = false
		e.mu.Unlock()
	}()

	t, err := e.generateLocked()
	if err != nil {
		e.mu.Unlock()
		e.log.Error("generation failed, stopping continuous mode: %v", err)
		e.StopContinuous()
		return
	}

	e.appendLocked(t)
	trialFns := e.trialSubs.snapshot()

	var statusFns []func(trial.EngineStatus)
	var status trial.EngineStatus
	if e.totalTrials%statusBroadcastEvery == 0 {
		status = e.statusLocked()
		statusFns = e.statusSubs.snapshot()
	}
	e.mu.Unlock()

	if e.ledger != nil {
		e.ledger.AppendTrial(t)
	}

	for _, fn := range trialFns {
		notifyTrial(fn, t, e.log)
	}
	for _, fn := range statusFns {
		notifyStatus(fn, status, e.log)
	}
}

// appendLocked pushes a trial into the rolling buffer (FIFO eviction at
// capacity) and, under quality monitoring, the recent-trials window.
func (e *Engine) appendLocked(t trial.Trial) {
	e.buffer = append(e.buffer, t)
	if len(e.buffer) > e.cfg.BufferSize {
		e.buffer = e.buffer[len(e.buffer)-e.cfg.BufferSize:]
	}
	if e.cfg.QualityMonitoring {
		e.recent = append(e.recent, t)
		if len(e.recent) > qualityWindowSize {
			e.recent = e.recent[len(e.recent)-qualityWindowSize:]
		}
	}
}

// notifyTrial isolates a listener: one failing listener cannot block the
// others or stop generation.
func notifyTrial(fn func(trial.Trial), t trial.Trial, log *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("trial listener panicked: %v", r)
		}
	}()
	fn(t)
}

func notifyStatus(fn func(trial.EngineStatus), s trial.EngineStatus, log *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("status listener panicked: %v", r)
		}
	}()
	fn(s)
}

// OnTrial registers a trial listener and returns its unsubscribe handle
func (e *Engine) OnTrial(fn func(trial.Trial)) func() {
	return e.trialSubs.add(fn)
}

// OnStatus registers a status listener and returns its unsubscribe handle
func (e *Engine) OnStatus(fn func(trial.EngineStatus)) func() {
	return e.statusSubs.add(fn)
}

// Status recomputes the live snapshot on demand
func (e *Engine) Status() trial.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() trial.EngineStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := trial.EngineStatus{
		IsRunning:   e.running,
		TargetRate:  e.cfg.TargetRate,
		CurrentRate: e.currentRateLocked(),
		TotalTrials: e.totalTrials,
		MemoryUsage: mem.HeapAlloc,
		SessionID:   e.sessionID,
		Intention:   e.intention,
	}
	if e.scheduler != nil {
		status.Timing = e.scheduler.Metrics()
	}
	return status
}

// currentRateLocked estimates the achieved rate from the buffered trial
// timestamps.
func (e *Engine) currentRateLocked() float64 {
	n := len(e.buffer)
	if n < 2 {
		return 0
	}
	window := e.buffer
	if n > qualityWindowSize {
		window = window[n-qualityWindowSize:]
	}
	span := window[len(window)-1].Timestamp.Sub(window[0].Timestamp)
	if span <= 0 {
		return 0
	}
	return float64(len(window)-1) / span.Seconds()
}

// RecentTrials returns up to count most recent trials, newest last, as a
// defensive copy.
func (e *Engine) RecentTrials(count int) []trial.Trial {
	e.mu.Lock()
	defer e.mu.Unlock()

	if count <= 0 || count > len(e.buffer) {
		count = len(e.buffer)
	}
	out := make([]trial.Trial, count)
	copy(out, e.buffer[len(e.buffer)-count:])
	return out
}

// QualityWindow returns a copy of the recent-trials window used for live
// statistics; empty when quality monitoring is off.
func (e *Engine) QualityWindow() []trial.Trial {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]trial.Trial, len(e.recent))
	copy(out, e.recent)
	return out
}

// LiveStatistics computes the baseline statistical suite over the
// quality-monitoring window.
func (e *Engine) LiveStatistics() (stats.BaselineReport, error) {
	values := trialValues(e.QualityWindow())
	e.mu.Lock()
	bits := e.cfg.BitsPerTrial
	e.mu.Unlock()
	return stats.RunBaseline(values, bits)
}

// Config returns the active configuration
func (e *Engine) Config() trial.EngineConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// UpdateSession switches the active session and intention without
// interrupting generation.
func (e *Engine) UpdateSession(sessionID core.SessionID, intention trial.Intention) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return core.ErrEngineDestroyed
	}
	if sessionID.IsEmpty() || !sessionID.IsUUID() {
		return core.NewConfigError("session_id", "must be a UUID")
	}
	if !intention.IsKnown() {
		return core.NewConfigError("intention", "unknown value "+string(intention))
	}

	e.sessionID = sessionID
	e.intention = intention
	e.trialNumber = 0
	return nil
}

// UpdateConfig applies a partial configuration change. Invalid values fail
// fast. If the engine was running it stops, reconfigures, and restarts with
// the same session, mode, and intention.
func (e *Engine) UpdateConfig(patch trial.ConfigPatch) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return core.ErrEngineDestroyed
	}

	next := patch.Apply(e.cfg)
	if err := next.Validate(); err != nil {
		e.mu.Unlock()
		return err
	}

	wasRunning := e.running
	sessionID, mode, intention := e.sessionID, e.mode, e.intention
	e.mu.Unlock()

	if wasRunning {
		e.StopContinuous()
	}

	e.mu.Lock()
	e.cfg = next
	if len(e.buffer) > next.BufferSize {
		e.buffer = e.buffer[len(e.buffer)-next.BufferSize:]
	}
	e.mu.Unlock()

	if wasRunning {
		return e.StartContinuous(sessionID, mode, intention)
	}
	return nil
}

// Destroy is terminal: it stops continuous mode, clears all listener
// registrations and buffers, and leaves the engine unusable.
func (e *Engine) Destroy() {
	e.StopContinuous()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	e.buffer = nil
	e.recent = nil
	e.calibrations = nil
	e.trialSubs.clear()
	e.statusSubs.clear()
}

func trialValues(trials []trial.Trial) []float64 {
	values := make([]float64, len(trials))
	for i, t := range trials {
		values[i] = float64(t.Value)
	}
	return values
}
