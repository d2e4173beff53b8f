package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"goreg/adapters/entropy"
	"goreg/domain/core"
	"goreg/domain/trial"
	"goreg/internal/logging"
	"goreg/internal/testkit"
)

func testConfig(bits int) trial.EngineConfiguration {
	cfg := trial.DefaultConfiguration()
	cfg.BitsPerTrial = bits
	return cfg
}

func newTestEngine(t *testing.T, cfg trial.EngineConfiguration, entropy interface{ Fill([]byte) error }) *Engine {
	t.Helper()
	e, err := New(cfg, entropy, nil, logging.New("engine-test", logging.LevelError))
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig(200)
	cfg.TargetRate = 0
	if _, err := New(cfg, testkit.NewLoopingEntropy([]byte{0xAA}), nil, nil); !core.IsConfigError(err) {
		t.Errorf("invalid configuration: got %v, want config error", err)
	}

	if _, err := New(testConfig(200), nil, nil, nil); err == nil {
		t.Error("nil entropy source should be rejected")
	}
}

func TestGenerateTrial_BitExtraction(t *testing.T) {
	cases := []struct {
		name   string
		bits   int
		script []byte
		want   int
	}{
		{"full byte", 8, []byte{0b10110100}, 4},
		{"byte and a half, all ones", 12, []byte{0xFF, 0xFF}, 12},
		{"partial byte masks high bits", 3, []byte{0b11111000}, 0},
		{"partial byte keeps low bits", 3, []byte{0b00000111}, 3},
		{"two full bytes", 16, []byte{0x0F, 0xF0}, 8},
		{"single bit", 1, []byte{0x01}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, testConfig(tc.bits), testkit.NewScriptedEntropy(tc.script))
			tr, err := e.GenerateTrial()
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if tr.Value != tc.want {
				t.Errorf("value %d, want %d", tr.Value, tc.want)
			}
		})
	}
}

func TestGenerateTrial_Metadata(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))

	for want := 1; want <= 3; want++ {
		tr, err := e.GenerateTrial()
		if err != nil {
			t.Fatalf("generate %d: %v", want, err)
		}
		if tr.TrialNumber != want {
			t.Errorf("trial number %d, want %d", tr.TrialNumber, want)
		}
		if tr.SessionID.IsEmpty() || !tr.SessionID.IsUUID() {
			t.Errorf("session ID %q not a UUID", tr.SessionID)
		}
		if tr.Mode != trial.ModeContinuous || tr.Intention != trial.IntentionNone {
			t.Errorf("default mode/intention wrong: %s/%s", tr.Mode, tr.Intention)
		}
		if tr.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	}
}

func TestGenerateTrial_ValueBounds(t *testing.T) {
	e := newTestEngine(t, testConfig(200), testkit.NewLoopingEntropy([]byte{0x00, 0xFF, 0xA5, 0x3C, 0x81}))
	for i := 0; i < 100; i++ {
		tr, err := e.GenerateTrial()
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if tr.Value < 0 || tr.Value > 200 {
			t.Fatalf("value %d outside [0, 200]", tr.Value)
		}
	}
}

func TestGenerateTrial_EntropyFailure(t *testing.T) {
	e := newTestEngine(t, testConfig(200), testkit.FailingEntropy{})
	_, err := e.GenerateTrial()
	if !core.IsGenerationError(err) {
		t.Fatalf("got %v, want generation error", err)
	}

	// A failed attempt must not consume a trial number.
	e2 := newTestEngine(t, testConfig(8), testkit.NewScriptedEntropy([]byte{0xFF}))
	if _, err := e2.GenerateTrial(); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if _, err := e2.GenerateTrial(); err == nil {
		t.Fatal("exhausted script should fail")
	}
	e2.entropy = testkit.NewLoopingEntropy([]byte{0xFF})
	tr, err := e2.GenerateTrial()
	if err != nil {
		t.Fatalf("recovery generate: %v", err)
	}
	if tr.TrialNumber != 2 {
		t.Errorf("trial number %d after one failure, want 2", tr.TrialNumber)
	}
}

func TestGenerateTrial_FairSourceStatistics(t *testing.T) {
	if testing.Short() {
		t.Skip("large batch")
	}

	// 10k trials from the real CSPRNG: the sample mean should sit within a
	// few standard errors of 100 and the variance near 50. Statistical
	// sanity, not exact equality.
	e := newTestEngine(t, testConfig(200), entropy.NewCryptoSource())

	const n = 10_000
	values := make([]float64, n)
	for i := range values {
		tr, err := e.GenerateTrial()
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		values[i] = float64(tr.Value)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	var ss float64
	for _, v := range values {
		dev := v - mean
		ss += dev * dev
	}
	variance := ss / (n - 1)

	// Standard error of the mean is ~0.0707; five of those is 0.36.
	if mean < 99.6 || mean > 100.4 {
		t.Errorf("sample mean %v implausibly far from 100", mean)
	}
	if variance < 45 || variance > 55 {
		t.Errorf("sample variance %v implausibly far from 50", variance)
	}
}

// runTicks drives the tick action directly, standing in for the scheduler
// timeline.
func runTicks(e *Engine, n int) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	for i := 0; i < n; i++ {
		e.tick()
	}
}

func TestTick_BufferFIFO(t *testing.T) {
	cfg := testConfig(8)
	cfg.BufferSize = 5
	e := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5}))

	runTicks(e, 8)

	recent := e.RecentTrials(0)
	if len(recent) != 5 {
		t.Fatalf("buffer holds %d trials, want capacity 5", len(recent))
	}
	// Oldest three evicted: the window starts at trial 4.
	if recent[0].TrialNumber != 4 || recent[4].TrialNumber != 8 {
		t.Errorf("window [%d..%d], want [4..8]", recent[0].TrialNumber, recent[4].TrialNumber)
	}

	last2 := e.RecentTrials(2)
	if len(last2) != 2 || last2[1].TrialNumber != 8 {
		t.Errorf("RecentTrials(2) = %+v", last2)
	}
}

func TestTick_ListenerIsolation(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))

	var received atomic.Int64
	e.OnTrial(func(trial.Trial) { panic("broken listener") })
	e.OnTrial(func(trial.Trial) { received.Add(1) })

	runTicks(e, 5)

	if received.Load() != 5 {
		t.Errorf("healthy listener received %d trials, want 5", received.Load())
	}
}

func TestTick_Unsubscribe(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))

	var received atomic.Int64
	off := e.OnTrial(func(trial.Trial) { received.Add(1) })

	runTicks(e, 3)
	off()
	runTicks(e, 3)

	if received.Load() != 3 {
		t.Errorf("listener received %d trials after unsubscribe, want 3", received.Load())
	}
}

func TestTick_StatusBroadcastCoalesced(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))

	var statuses atomic.Int64
	e.OnStatus(func(trial.EngineStatus) { statuses.Add(1) })

	runTicks(e, 20)

	if statuses.Load() != 2 {
		t.Errorf("status broadcasts %d over 20 trials, want every 10th", statuses.Load())
	}
}

func TestTick_GenerationFailureStopsRun(t *testing.T) {
	// One byte of script: the first tick succeeds, the second hits an
	// exhausted source and must halt continuous mode.
	e := newTestEngine(t, testConfig(8), testkit.NewScriptedEntropy([]byte{0xA5}))

	runTicks(e, 2)

	if e.Status().IsRunning {
		t.Error("engine still running after generation failure")
	}
	if got := e.Status().TotalTrials; got != 1 {
		t.Errorf("total trials %d, want 1", got)
	}
}

func TestContinuous_Lifecycle(t *testing.T) {
	cfg := testConfig(8)
	cfg.TargetRate = 100 // 10ms interval
	e := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5, 0x3C}))

	var ticks atomic.Int64
	e.OnTrial(func(trial.Trial) { ticks.Add(1) })

	session := core.NewSessionID()
	if err := e.StartContinuous(session, trial.ModeSession, trial.IntentionHigh); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.StartContinuous(session, trial.ModeSession, trial.IntentionHigh); !errors.Is(err, core.ErrEngineRunning) {
		t.Errorf("double start: got %v, want ErrEngineRunning", err)
	}

	time.Sleep(250 * time.Millisecond)
	e.StopContinuous()
	after := ticks.Load()
	if after < 10 {
		t.Errorf("expected >=10 trials over 250ms at 100/s, got %d", after)
	}

	status := e.Status()
	if status.IsRunning {
		t.Error("status running after stop")
	}
	if status.SessionID != session {
		t.Errorf("session %s, want %s", status.SessionID, session)
	}
	if status.Intention != trial.IntentionHigh {
		t.Errorf("intention %s", status.Intention)
	}
	if status.Timing.IntervalCount == 0 {
		t.Error("timing metrics empty after a run")
	}

	time.Sleep(50 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Errorf("trials produced after stop: %d -> %d", after, got)
	}
}

func TestStopContinuous_FromTrialListener(t *testing.T) {
	cfg := testConfig(8)
	cfg.TargetRate = 100 // 10ms interval
	e := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5, 0x3C}))

	// Listeners run on the scheduler goroutine; stopping from one must not
	// block on that same goroutine.
	stopped := make(chan struct{})
	var once sync.Once
	e.OnTrial(func(trial.Trial) {
		e.StopContinuous()
		once.Do(func() { close(stopped) })
	})

	if err := e.StartContinuous("", trial.ModeContinuous, trial.IntentionNone); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("StopContinuous called from a trial listener never returned")
	}

	if e.Status().IsRunning {
		t.Error("engine still reports running after listener stop")
	}

	total := e.Status().TotalTrials
	time.Sleep(50 * time.Millisecond)
	if got := e.Status().TotalTrials; got != total {
		t.Errorf("trials produced after listener stop: %d -> %d", total, got)
	}
}

func TestStartContinuous_Validation(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))

	if err := e.StartContinuous("", "burst", trial.IntentionNone); !core.IsConfigError(err) {
		t.Errorf("unknown mode: got %v, want config error", err)
	}
	if err := e.StartContinuous("", trial.ModeContinuous, "chaotic"); !core.IsConfigError(err) {
		t.Errorf("unknown intention: got %v, want config error", err)
	}
}

func TestUpdateSession(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))
	if _, err := e.GenerateTrial(); err != nil {
		t.Fatalf("generate: %v", err)
	}

	next := core.NewSessionID()
	if err := e.UpdateSession(next, trial.IntentionLow); err != nil {
		t.Fatalf("update session: %v", err)
	}

	tr, err := e.GenerateTrial()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if tr.SessionID != next {
		t.Errorf("session %s, want %s", tr.SessionID, next)
	}
	if tr.Intention != trial.IntentionLow {
		t.Errorf("intention %s, want low", tr.Intention)
	}
	if tr.TrialNumber != 1 {
		t.Errorf("trial numbering not reset: %d", tr.TrialNumber)
	}

	if err := e.UpdateSession("not-a-uuid", trial.IntentionNone); !core.IsConfigError(err) {
		t.Errorf("malformed session: got %v, want config error", err)
	}
}

func TestUpdateConfig_FailFast(t *testing.T) {
	e := newTestEngine(t, testConfig(200), testkit.NewLoopingEntropy([]byte{0xA5}))

	bad := 0.001
	if err := e.UpdateConfig(trial.ConfigPatch{TargetRate: &bad}); !core.IsConfigError(err) {
		t.Fatalf("got %v, want config error", err)
	}
	if e.Config().TargetRate != 1.0 {
		t.Errorf("configuration mutated by rejected patch: %v", e.Config().TargetRate)
	}

	bits := 64
	if err := e.UpdateConfig(trial.ConfigPatch{BitsPerTrial: &bits}); err != nil {
		t.Fatalf("valid patch rejected: %v", err)
	}
	if e.Config().BitsPerTrial != 64 {
		t.Errorf("bits per trial %d, want 64", e.Config().BitsPerTrial)
	}
}

func TestUpdateConfig_RestartsWhileRunning(t *testing.T) {
	cfg := testConfig(8)
	cfg.TargetRate = 100
	e := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5}))

	session := core.NewSessionID()
	if err := e.StartContinuous(session, trial.ModeSession, trial.IntentionHigh); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.StopContinuous()

	rate := 200.0
	if err := e.UpdateConfig(trial.ConfigPatch{TargetRate: &rate}); err != nil {
		t.Fatalf("update config: %v", err)
	}

	status := e.Status()
	if !status.IsRunning {
		t.Error("engine not running after reconfiguration")
	}
	if status.SessionID != session {
		t.Errorf("session lost across restart: %s", status.SessionID)
	}
	if status.TargetRate != 200.0 {
		t.Errorf("target rate %v, want 200", status.TargetRate)
	}
}

func TestUpdateConfig_TrimsBuffer(t *testing.T) {
	cfg := testConfig(8)
	cfg.BufferSize = 10
	e := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5}))
	runTicks(e, 10)
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	size := 3
	if err := e.UpdateConfig(trial.ConfigPatch{BufferSize: &size}); err != nil {
		t.Fatalf("update config: %v", err)
	}
	recent := e.RecentTrials(0)
	if len(recent) != 3 {
		t.Fatalf("buffer holds %d trials after shrink, want 3", len(recent))
	}
	if recent[2].TrialNumber != 10 {
		t.Errorf("newest trial %d, want 10", recent[2].TrialNumber)
	}
}

func TestQualityWindow(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))
	runTicks(e, 5)
	if got := len(e.QualityWindow()); got != 5 {
		t.Errorf("quality window %d, want 5", got)
	}

	cfg := testConfig(8)
	cfg.QualityMonitoring = false
	e2 := newTestEngine(t, cfg, testkit.NewLoopingEntropy([]byte{0xA5}))
	runTicks(e2, 5)
	if got := len(e2.QualityWindow()); got != 0 {
		t.Errorf("monitoring off but window holds %d trials", got)
	}
}

func TestRecentTrials_DefensiveCopy(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))
	runTicks(e, 3)

	got := e.RecentTrials(0)
	got[0].Value = -999

	again := e.RecentTrials(0)
	if again[0].Value == -999 {
		t.Error("RecentTrials returned a live reference into the buffer")
	}
}

func TestDestroy_Terminal(t *testing.T) {
	e := newTestEngine(t, testConfig(8), testkit.NewLoopingEntropy([]byte{0xA5}))
	runTicks(e, 3)
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	e.Destroy()

	if _, err := e.GenerateTrial(); !errors.Is(err, core.ErrEngineDestroyed) {
		t.Errorf("generate after destroy: got %v", err)
	}
	if err := e.StartContinuous("", trial.ModeContinuous, trial.IntentionNone); !errors.Is(err, core.ErrEngineDestroyed) {
		t.Errorf("start after destroy: got %v", err)
	}
	if _, err := e.RunCalibration(MinCalibrationTrials); !errors.Is(err, core.ErrEngineDestroyed) {
		t.Errorf("calibration after destroy: got %v", err)
	}
	if got := e.RecentTrials(0); len(got) != 0 {
		t.Errorf("buffers not cleared: %d trials", len(got))
	}
}
