package timer

import (
	"testing"
	"time"

	"github.com/snoozarr/snoozarr/internal/config"
	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/integration"
	"github.com/snoozarr/snoozarr/internal/testutil"
)

// newTestEngine wires an Engine to a mock clock, event bus, and controllers.
func newTestEngine(t *testing.T) (*Engine, *testutil.MockClock, *testutil.MockEventBus, *testutil.MockMediaController, *testutil.MockPowerController) {
	t.Helper()
	config.SetForTesting(config.NewTestConfig())

	clk := testutil.NewMockClockAt(time.Date(2026, 8, 24, 22, 0, 0, 0, time.UTC))
	eb := testutil.NewMockEventBus()
	media := &testutil.MockMediaController{}
	power := &testutil.MockPowerController{}

	engine := NewEngine(eb, media, power, clk)
	return engine, clk, eb, media, power
}

// advanceSeconds drives the chained tick schedule one second at a time.
func advanceSeconds(clk *testutil.MockClock, n int) {
	for i := 0; i < n; i++ {
		clk.Advance(time.Second)
	}
}

// =============================================================================
// Start tests
// =============================================================================

func TestEngine_Start_ReturnsRunningState(t *testing.T) {
	engine, clk, eb, _, _ := newTestEngine(t)

	state := engine.Start(30)

	if !state.IsRunning {
		t.Error("State should be running after Start")
	}
	if state.TotalSeconds != 1800 {
		t.Errorf("TotalSeconds = %d, want 1800", state.TotalSeconds)
	}
	if state.RemainingSeconds != 1800 {
		t.Errorf("RemainingSeconds = %d, want 1800", state.RemainingSeconds)
	}
	if state.StartedAt == nil {
		t.Fatal("StartedAt should be set on a running timer")
	}
	if !state.StartedAt.Equal(clk.Now()) {
		t.Errorf("StartedAt = %v, want %v", state.StartedAt, clk.Now())
	}

	if eb.EventCount(domain.TimerStarted) != 1 {
		t.Errorf("Expected 1 TimerStarted event, got %d", eb.EventCount(domain.TimerStarted))
	}
	events := eb.GetEvents(domain.TimerStarted)
	if events[0].RunID == "" {
		t.Error("TimerStarted event should carry a run id")
	}
}

func TestEngine_Start_FractionalMinutes(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)

	state := engine.Start(0.5)

	if state.TotalSeconds != 30 {
		t.Errorf("TotalSeconds = %d, want 30 for 0.5 minutes", state.TotalSeconds)
	}
}

func TestEngine_Start_TruncatesToWholeSeconds(t *testing.T) {
	engine, _, _, _, _ := newTestEngine(t)

	tests := []struct {
		name    string
		minutes float64
		want    int64
	}{
		{"one second", 1.0 / 60, 1},
		{"half minute", 0.5, 30},
		{"fractional second truncated down", 2.5083333333333333, 150}, // 150.5s
		{"just under two minutes", 1.9999, 119},
		{"whole minutes unchanged", 30, 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := engine.Start(tt.minutes)
			if state.TotalSeconds != tt.want {
				t.Errorf("Start(%v): TotalSeconds = %d, want %d", tt.minutes, state.TotalSeconds, tt.want)
			}
		})
	}
}

func TestEngine_Start_NonPositiveDuration(t *testing.T) {
	engine, _, eb, _, _ := newTestEngine(t)

	state := engine.Start(0)

	if state.IsRunning {
		t.Error("Start(0) should leave the engine idle")
	}
	if eb.EventCount(domain.TimerStarted) != 0 {
		t.Error("Start(0) should not publish TimerStarted")
	}

	state = engine.Start(-5)
	if state.IsRunning {
		t.Error("Start(-5) should leave the engine idle")
	}
}

func TestEngine_Start_ReplacesRunningTimer(t *testing.T) {
	engine, clk, eb, _, power := newTestEngine(t)

	engine.Start(30)
	advanceSeconds(clk, 5)

	state := engine.Start(60)

	if state.TotalSeconds != 3600 {
		t.Errorf("TotalSeconds = %d, want 3600 after replacement", state.TotalSeconds)
	}
	if state.RemainingSeconds != 3600 {
		t.Errorf("RemainingSeconds = %d, want 3600 after replacement", state.RemainingSeconds)
	}

	// The replaced run must not expire
	if eb.EventCount(domain.TimerExpired) != 0 {
		t.Error("Replacing a timer should not fire its expiry")
	}
	if power.CallCount() != 0 {
		t.Error("Replacing a timer should not trigger suspend")
	}
	if eb.EventCount(domain.TimerStarted) != 2 {
		t.Errorf("Expected 2 TimerStarted events, got %d", eb.EventCount(domain.TimerStarted))
	}

	// The new run counts down on its own schedule
	advanceSeconds(clk, 1)
	if got := engine.State().RemainingSeconds; got != 3599 {
		t.Errorf("RemainingSeconds = %d, want 3599", got)
	}
}

// =============================================================================
// Tick tests
// =============================================================================

func TestEngine_Tick_DecrementsOncePerSecond(t *testing.T) {
	engine, clk, eb, _, _ := newTestEngine(t)

	engine.Start(1)

	advanceSeconds(clk, 1)
	if got := engine.State().RemainingSeconds; got != 59 {
		t.Errorf("After 1s: RemainingSeconds = %d, want 59", got)
	}

	advanceSeconds(clk, 9)
	if got := engine.State().RemainingSeconds; got != 50 {
		t.Errorf("After 10s: RemainingSeconds = %d, want 50", got)
	}

	if eb.EventCount(domain.TimerTick) != 10 {
		t.Errorf("Expected 10 TimerTick events, got %d", eb.EventCount(domain.TimerTick))
	}

	ticks := eb.GetEvents(domain.TimerTick)
	last := ticks[len(ticks)-1]
	if remaining, _ := last.GetInt64("remaining_seconds"); remaining != 50 {
		t.Errorf("Last tick remaining_seconds = %d, want 50", remaining)
	}
}

func TestEngine_Tick_TotalStaysFixed(t *testing.T) {
	engine, clk, _, _, _ := newTestEngine(t)

	engine.Start(2)
	advanceSeconds(clk, 30)

	state := engine.State()
	if state.TotalSeconds != 120 {
		t.Errorf("TotalSeconds = %d, want 120 mid-run", state.TotalSeconds)
	}
	if state.RemainingSeconds != 90 {
		t.Errorf("RemainingSeconds = %d, want 90", state.RemainingSeconds)
	}
	if state.RemainingSeconds > state.TotalSeconds {
		t.Error("RemainingSeconds must never exceed TotalSeconds")
	}
}

// =============================================================================
// Cancel tests
// =============================================================================

func TestEngine_Cancel_ReturnsIdleState(t *testing.T) {
	engine, clk, eb, _, power := newTestEngine(t)

	engine.Start(30)
	advanceSeconds(clk, 3)

	state := engine.Cancel()

	if state.IsRunning {
		t.Error("State should be idle after Cancel")
	}
	if state.RemainingSeconds != 0 || state.TotalSeconds != 0 {
		t.Errorf("Cancelled state should be canonical idle, got remaining=%d total=%d",
			state.RemainingSeconds, state.TotalSeconds)
	}
	if state.StartedAt != nil {
		t.Error("StartedAt should be nil after Cancel")
	}

	events := eb.GetEvents(domain.TimerCancelled)
	if len(events) != 1 {
		t.Fatalf("Expected 1 TimerCancelled event, got %d", len(events))
	}
	if remaining, _ := events[0].GetInt64("remaining_seconds"); remaining != 1797 {
		t.Errorf("TimerCancelled remaining_seconds = %d, want 1797", remaining)
	}

	// No expiry side effects after cancel, no matter how long we wait
	advanceSeconds(clk, 7200)
	if eb.EventCount(domain.TimerExpired) != 0 {
		t.Error("Cancelled timer must never expire")
	}
	if power.CallCount() != 0 {
		t.Error("Cancelled timer must never suspend")
	}
}

func TestEngine_Cancel_WhenIdle(t *testing.T) {
	engine, _, eb, _, _ := newTestEngine(t)

	state := engine.Cancel()

	if state.IsRunning {
		t.Error("Cancel on idle engine should return idle state")
	}
	if eb.EventCount(domain.TimerCancelled) != 0 {
		t.Error("Cancel on idle engine should not publish an event")
	}
}

func TestEngine_Cancel_StaleTickDropped(t *testing.T) {
	engine, clk, _, _, _ := newTestEngine(t)

	engine.Start(30)
	engine.Cancel()

	// The pending tick was stopped by Cancel; even a FireAll of anything
	// left over must not resurrect the countdown.
	clk.FireAll()

	state := engine.State()
	if state.IsRunning || state.RemainingSeconds != 0 {
		t.Errorf("Stale tick changed state: %+v", state)
	}
}

// =============================================================================
// Expiry pipeline tests
// =============================================================================

func TestEngine_Expiry_PausesThenSuspends(t *testing.T) {
	engine, clk, eb, media, power := newTestEngine(t)

	engine.Start(0.05) // 3 seconds

	advanceSeconds(clk, 2)
	if media.CallCount() != 0 {
		t.Error("Media should not be paused before expiry")
	}

	// Final tick fires the expiry pipeline
	advanceSeconds(clk, 1)

	if eb.EventCount(domain.TimerExpired) != 1 {
		t.Fatalf("Expected 1 TimerExpired event, got %d", eb.EventCount(domain.TimerExpired))
	}
	if media.CallCount() != 1 {
		t.Errorf("Media pause calls = %d, want 1", media.CallCount())
	}

	// Suspend waits for the settle delay
	if power.CallCount() != 0 {
		t.Error("Suspend should wait for the settle delay")
	}
	advanceSeconds(clk, 1)
	if power.CallCount() != 1 {
		t.Errorf("Suspend calls = %d, want 1 after settle delay", power.CallCount())
	}

	if eb.EventCount(domain.MediaPaused) != 1 {
		t.Errorf("Expected 1 MediaPaused event, got %d", eb.EventCount(domain.MediaPaused))
	}
	if eb.EventCount(domain.SystemSuspended) != 1 {
		t.Errorf("Expected 1 SystemSuspended event, got %d", eb.EventCount(domain.SystemSuspended))
	}
}

func TestEngine_Expiry_StateIsCanonicalIdle(t *testing.T) {
	engine, clk, eb, _, _ := newTestEngine(t)

	engine.Start(0.05)
	advanceSeconds(clk, 3)

	state := engine.State()
	if state.IsRunning {
		t.Error("Engine should be idle after expiry")
	}
	if state.RemainingSeconds != 0 || state.TotalSeconds != 0 {
		t.Errorf("Expired state should be canonical idle, got remaining=%d total=%d",
			state.RemainingSeconds, state.TotalSeconds)
	}
	if state.StartedAt != nil {
		t.Error("StartedAt should be nil after expiry")
	}

	// The TimerExpired event still carries the finished run's counters
	events := eb.GetEvents(domain.TimerExpired)
	if len(events) != 1 {
		t.Fatalf("Expected 1 TimerExpired event, got %d", len(events))
	}
	if total, _ := events[0].GetInt64("total_seconds"); total != 180 {
		t.Errorf("TimerExpired total_seconds = %d, want 180", total)
	}
}

func TestEngine_Expiry_CallbacksRunInOrder(t *testing.T) {
	engine, clk, _, media, _ := newTestEngine(t)

	var order []string
	engine.OnExpire(func(s State) {
		order = append(order, "first")
		if s.TotalSeconds != 180 {
			t.Errorf("Callback snapshot TotalSeconds = %d, want 180", s.TotalSeconds)
		}
		if s.IsRunning {
			t.Error("Callback snapshot should not be running")
		}
	})
	engine.OnExpire(func(s State) {
		order = append(order, "second")
		if media.CallCount() != 0 {
			t.Error("Callbacks must run before media pause")
		}
	})

	engine.Start(0.05)
	advanceSeconds(clk, 3)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Callback order = %v, want [first second]", order)
	}
	if media.CallCount() != 1 {
		t.Error("Media should be paused after callbacks")
	}
}

func TestEngine_Expiry_CallbackPanicIsolated(t *testing.T) {
	engine, clk, _, media, power := newTestEngine(t)

	secondRan := false
	engine.OnExpire(func(State) {
		panic("boom")
	})
	engine.OnExpire(func(State) {
		secondRan = true
	})

	engine.Start(0.05)
	advanceSeconds(clk, 3)

	if !secondRan {
		t.Error("A panicking callback must not block later callbacks")
	}
	if media.CallCount() != 1 {
		t.Error("A panicking callback must not block the media pause")
	}

	advanceSeconds(clk, 1)
	if power.CallCount() != 1 {
		t.Error("A panicking callback must not block the suspend")
	}
}

func TestEngine_Expiry_PauseFailureStillSuspends(t *testing.T) {
	engine, clk, eb, media, power := newTestEngine(t)

	media.PauseFunc = func() integration.Result {
		return integration.Result{Success: false, Message: "playerctl not found"}
	}

	engine.Start(0.05)
	advanceSeconds(clk, 3)

	if eb.EventCount(domain.MediaPauseError) != 1 {
		t.Errorf("Expected 1 MediaPauseError event, got %d", eb.EventCount(domain.MediaPauseError))
	}
	if eb.EventCount(domain.MediaPaused) != 0 {
		t.Error("MediaPaused should not be published on failure")
	}

	advanceSeconds(clk, 1)
	if power.CallCount() != 1 {
		t.Error("Suspend must run even when the media pause fails")
	}
}

func TestEngine_Expiry_SuspendFailurePublished(t *testing.T) {
	engine, clk, eb, _, power := newTestEngine(t)

	power.SuspendFunc = func() integration.Result {
		return integration.Result{Success: false, Message: "systemctl exited 1"}
	}

	engine.Start(0.05)
	advanceSeconds(clk, 4)

	events := eb.GetEvents(domain.SuspendFailed)
	if len(events) != 1 {
		t.Fatalf("Expected 1 SuspendFailed event, got %d", len(events))
	}
	if msg, _ := events[0].GetString("message"); msg != "systemctl exited 1" {
		t.Errorf("SuspendFailed message = %q", msg)
	}
	if eb.EventCount(domain.SystemSuspended) != 0 {
		t.Error("SystemSuspended should not be published on failure")
	}
}

func TestEngine_Expiry_CallbacksNotInvokedOnCancel(t *testing.T) {
	engine, clk, _, _, _ := newTestEngine(t)

	called := false
	engine.OnExpire(func(State) { called = true })

	engine.Start(30)
	advanceSeconds(clk, 5)
	engine.Cancel()
	advanceSeconds(clk, 7200)

	if called {
		t.Error("Expiry callbacks must not fire on Cancel")
	}
}

func TestEngine_Expiry_EventOrder(t *testing.T) {
	engine, clk, eb, _, _ := newTestEngine(t)

	engine.Start(0.05)
	advanceSeconds(clk, 4)

	var sequence []domain.EventType
	for _, e := range eb.GetAllEvents() {
		switch e.EventType {
		case domain.TimerExpired, domain.MediaPaused, domain.SystemSuspended:
			sequence = append(sequence, e.EventType)
		}
	}

	want := []domain.EventType{domain.TimerExpired, domain.MediaPaused, domain.SystemSuspended}
	if len(sequence) != len(want) {
		t.Fatalf("Event sequence = %v, want %v", sequence, want)
	}
	for i := range want {
		if sequence[i] != want[i] {
			t.Fatalf("Event sequence = %v, want %v", sequence, want)
		}
	}
}

// =============================================================================
// Restart after expiry
// =============================================================================

func TestEngine_StartDuringSettleDelay(t *testing.T) {
	engine, clk, eb, media, power := newTestEngine(t)

	engine.Start(0.05) // 3 seconds
	advanceSeconds(clk, 3)

	// Expiry has paused media; the suspend is still waiting out the settle
	// delay when a new run begins.
	if media.CallCount() != 1 {
		t.Fatal("First run should have paused media on expiry")
	}
	if power.CallCount() != 0 {
		t.Fatal("Suspend should still be pending in the settle window")
	}

	state := engine.Start(1)
	if !state.IsRunning || state.TotalSeconds != 60 {
		t.Fatalf("New run should start during the settle window, got %+v", state)
	}

	// The old run's suspend still fires exactly once, and the new run's
	// countdown is untouched by the stale pipeline.
	advanceSeconds(clk, 1)
	if power.CallCount() != 1 {
		t.Errorf("Suspend calls = %d, want 1 from the expired run", power.CallCount())
	}

	state = engine.State()
	if !state.IsRunning {
		t.Error("New run must stay running through the stale suspend")
	}
	if state.RemainingSeconds != 59 || state.TotalSeconds != 60 {
		t.Errorf("New run state = remaining %d total %d, want 59/60",
			state.RemainingSeconds, state.TotalSeconds)
	}

	if eb.EventCount(domain.TimerExpired) != 1 {
		t.Errorf("Expected 1 TimerExpired event, got %d", eb.EventCount(domain.TimerExpired))
	}

	// No second suspend later
	advanceSeconds(clk, 5)
	if power.CallCount() != 1 {
		t.Errorf("Suspend calls = %d after further ticks, want 1", power.CallCount())
	}
}

func TestEngine_StartAfterExpiry(t *testing.T) {
	engine, clk, eb, _, power := newTestEngine(t)

	engine.Start(0.05)
	advanceSeconds(clk, 4)

	if power.CallCount() != 1 {
		t.Fatal("First run should have suspended")
	}

	state := engine.Start(1)
	if !state.IsRunning || state.TotalSeconds != 60 {
		t.Errorf("Engine should accept a new run after expiry, got %+v", state)
	}

	advanceSeconds(clk, 60)
	if eb.EventCount(domain.TimerExpired) != 2 {
		t.Errorf("Expected 2 TimerExpired events, got %d", eb.EventCount(domain.TimerExpired))
	}
}
