// Package timer holds the countdown engine: a single in-process sleep timer
// that counts whole seconds and, on expiry, pauses media playback, waits for
// the pause to settle, and suspends the machine.
package timer

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snoozarr/snoozarr/internal/clock"
	"github.com/snoozarr/snoozarr/internal/config"
	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/integration"
	"github.com/snoozarr/snoozarr/internal/logger"
)

// ExpiryCallback receives the finished run's snapshot when the timer expires
// naturally. Callbacks run in registration order, before media is paused.
type ExpiryCallback func(State)

// Engine is the countdown state machine. One Engine serves the whole process;
// starting a timer while one is running replaces it atomically.
//
// Ticks are driven by chained clock.AfterFunc calls rather than a ticker so
// the clock abstraction stays minimal and tests can drive time directly.
// Each run carries a uuid; a tick or expiry pipeline whose run id no longer
// matches the live run is stale and drops itself.
type Engine struct {
	clk      clock.Clock
	eventBus eventbus.Publisher
	media    integration.MediaController
	power    integration.PowerController

	tickInterval time.Duration
	settleDelay  time.Duration

	mu        sync.Mutex
	runID     string
	running   bool
	remaining int64
	total     int64
	startedAt time.Time
	tickTimer clock.Timer
	callbacks []ExpiryCallback
}

// NewEngine creates the countdown engine. Tick cadence and settle delay come
// from config. An optional Clock can be provided for testing; if none is
// provided, RealClock is used.
func NewEngine(eb eventbus.Publisher, media integration.MediaController, power integration.PowerController, clocks ...clock.Clock) *Engine {
	var c clock.Clock = clock.NewRealClock()
	if len(clocks) > 0 && clocks[0] != nil {
		c = clocks[0]
	}
	cfg := config.Get()
	return &Engine{
		clk:          c,
		eventBus:     eb,
		media:        media,
		power:        power,
		tickInterval: cfg.TickInterval,
		settleDelay:  cfg.SettleDelay,
	}
}

// OnExpire registers a callback invoked when a timer expires naturally.
// Not invoked on Cancel. Should be called during wiring, before Start.
func (e *Engine) OnExpire(cb ExpiryCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

// State returns a snapshot of the current countdown.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start begins a countdown of the given duration, replacing any running
// timer without firing its expiry. The duration is truncated to whole
// seconds. Durations of zero or less are ignored and the current state is
// returned unchanged.
func (e *Engine) Start(minutes float64) State {
	totalSeconds := int64(math.Floor(minutes * 60))
	if totalSeconds <= 0 {
		logger.Warnf("Ignoring timer start with non-positive duration: %v minutes", minutes)
		return e.State()
	}

	e.mu.Lock()
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	if e.running {
		logger.Infof("Replacing running timer (%ds remaining) with new %ds run", e.remaining, totalSeconds)
	}

	runID := uuid.NewString()
	e.runID = runID
	e.running = true
	e.total = totalSeconds
	e.remaining = totalSeconds
	e.startedAt = e.clk.Now()
	e.scheduleTickLocked(runID)

	snap := e.snapshotLocked()
	e.mu.Unlock()

	logger.Infof("Timer started: %d seconds (run %s)", totalSeconds, runID)
	e.publishRunEvent(domain.TimerStarted, runID, snap)
	return snap
}

// Cancel stops the running countdown without triggering the expiry pipeline.
// Cancelling an idle engine is a no-op.
func (e *Engine) Cancel() State {
	e.mu.Lock()
	if !e.running {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}

	runID := e.runID
	cancelled := e.snapshotLocked()
	e.resetLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	logger.Infof("Timer cancelled with %d of %d seconds remaining (run %s)",
		cancelled.RemainingSeconds, cancelled.TotalSeconds, runID)
	e.publishRunEvent(domain.TimerCancelled, runID, cancelled)
	return snap
}

// Stop halts the engine without publishing events. Used at shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// scheduleTickLocked arms the next tick for the given run. Caller holds e.mu.
func (e *Engine) scheduleTickLocked(runID string) {
	e.tickTimer = e.clk.AfterFunc(e.tickInterval, func() {
		e.handleTick(runID)
	})
}

// handleTick decrements the countdown by one second. A tick whose run id no
// longer matches the live run raced with a Cancel or replacement Start and
// is dropped.
func (e *Engine) handleTick(runID string) {
	e.mu.Lock()
	if !e.running || e.runID != runID {
		e.mu.Unlock()
		return
	}

	e.remaining--
	if e.remaining > 0 {
		e.scheduleTickLocked(runID)
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.publishRunEvent(domain.TimerTick, runID, snap)
		return
	}

	// Expired. Reset to idle in the same critical section so no caller
	// ever observes a not-running state with stale counters.
	finished := State{
		IsRunning:        false,
		RemainingSeconds: 0,
		TotalSeconds:     e.total,
		StartedAt:        timePtr(e.startedAt),
	}
	callbacks := make([]ExpiryCallback, len(e.callbacks))
	copy(callbacks, e.callbacks)
	e.resetLocked()
	e.mu.Unlock()

	e.expire(runID, finished, callbacks)
}

// expire runs the expiry pipeline: callbacks, pause media, settle, suspend.
// The pipeline never aborts; each step logs and publishes its outcome and
// the next step runs regardless.
func (e *Engine) expire(runID string, finished State, callbacks []ExpiryCallback) {
	logger.Infof("Timer expired after %d seconds (run %s)", finished.TotalSeconds, runID)
	e.publishRunEvent(domain.TimerExpired, runID, finished)

	for i, cb := range callbacks {
		e.runCallback(i, cb, finished)
	}

	pauseResult := e.media.Pause()
	if pauseResult.Success {
		e.publishControllerEvent(domain.MediaPaused, runID, pauseResult)
	} else {
		logger.Warnf("Media pause failed, continuing to suspend: %s", pauseResult.Message)
		e.publishControllerEvent(domain.MediaPauseError, runID, pauseResult)
	}

	// Give the pause a moment to take effect before the machine sleeps.
	// Fire-and-forget: once expiry begins the suspend cannot be cancelled.
	e.clk.AfterFunc(e.settleDelay, func() {
		suspendResult := e.power.Suspend()
		if suspendResult.Success {
			e.publishControllerEvent(domain.SystemSuspended, runID, suspendResult)
		} else {
			logger.Errorf("Suspend failed: %s", suspendResult.Message)
			e.publishControllerEvent(domain.SuspendFailed, runID, suspendResult)
		}
	})
}

// runCallback invokes one expiry callback, isolating panics so a broken
// subscriber cannot stop the pipeline.
func (e *Engine) runCallback(index int, cb ExpiryCallback, finished State) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Expiry callback %d panicked: %v", index, r)
		}
	}()
	cb(finished)
}

// resetLocked returns the engine to canonical idle form. Caller holds e.mu.
func (e *Engine) resetLocked() {
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	e.runID = ""
	e.running = false
	e.remaining = 0
	e.total = 0
	e.startedAt = time.Time{}
}

// snapshotLocked builds a State from current fields. Caller holds e.mu.
func (e *Engine) snapshotLocked() State {
	s := State{
		IsRunning:        e.running,
		RemainingSeconds: e.remaining,
		TotalSeconds:     e.total,
	}
	if e.running {
		s.StartedAt = timePtr(e.startedAt)
	}
	return s
}

func (e *Engine) publishRunEvent(eventType domain.EventType, runID string, snap State) {
	data := map[string]interface{}{
		"total_seconds":     snap.TotalSeconds,
		"remaining_seconds": snap.RemainingSeconds,
	}
	if snap.StartedAt != nil {
		data["started_at"] = snap.StartedAt.UnixMilli()
	}
	if err := e.eventBus.Publish(domain.Event{
		RunID:     runID,
		EventType: eventType,
		EventData: data,
	}); err != nil {
		logger.Errorf("Failed to publish %s event: %v", eventType, err)
	}
}

func (e *Engine) publishControllerEvent(eventType domain.EventType, runID string, result integration.Result) {
	if err := e.eventBus.Publish(domain.Event{
		RunID:     runID,
		EventType: eventType,
		EventData: map[string]interface{}{
			"success": result.Success,
			"message": result.Message,
		},
	}); err != nil {
		logger.Errorf("Failed to publish %s event: %v", eventType, err)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
