package domain

import (
	"time"
)

type EventType string

const (
	TimerStarted    EventType = "TimerStarted"
	TimerTick       EventType = "TimerTick"
	TimerCancelled  EventType = "TimerCancelled"
	TimerExpired    EventType = "TimerExpired"
	MediaPaused     EventType = "MediaPaused"
	MediaPauseError EventType = "MediaPauseError"
	SystemSuspended EventType = "SystemSuspended"
	SuspendFailed   EventType = "SuspendFailed"

	NotificationSent   EventType = "NotificationSent"
	NotificationFailed EventType = "NotificationFailed"

	// BedtimeTriggered fires when the cron schedule auto-starts a countdown
	BedtimeTriggered EventType = "BedtimeTriggered"
)

type Event struct {
	// RunID identifies the timer run this event belongs to. Empty for
	// events not tied to a specific run (e.g. BedtimeTriggered).
	RunID     string                 `json:"run_id,omitempty"`
	EventType EventType              `json:"event_type"`
	EventData map[string]interface{} `json:"event_data"`
	CreatedAt time.Time              `json:"created_at"`
}

// =============================================================================
// Type-safe event data accessors
// These helpers provide compile-time safety when extracting data from events.
// =============================================================================

// GetString safely extracts a string field from EventData.
// Returns the value and true if found and is a string, otherwise empty string and false.
func (e *Event) GetString(key string) (string, bool) {
	if e.EventData == nil {
		return "", false
	}
	v, ok := e.EventData[key].(string)
	return v, ok
}

// GetStringOr extracts a string field or returns the default value.
func (e *Event) GetStringOr(key, defaultVal string) string {
	if v, ok := e.GetString(key); ok {
		return v
	}
	return defaultVal
}

// GetInt64 safely extracts an int64 field from EventData.
// Handles both int64 and float64 (JSON unmarshaling produces float64).
func (e *Event) GetInt64(key string) (int64, bool) {
	if e.EventData == nil {
		return 0, false
	}
	switch v := e.EventData[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// GetInt64Or extracts an int64 field or returns the default value.
func (e *Event) GetInt64Or(key string, defaultVal int64) int64 {
	if v, ok := e.GetInt64(key); ok {
		return v
	}
	return defaultVal
}

// GetFloat64 safely extracts a float64 field from EventData.
func (e *Event) GetFloat64(key string) (float64, bool) {
	if e.EventData == nil {
		return 0, false
	}
	switch v := e.EventData[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetBool safely extracts a bool field from EventData.
func (e *Event) GetBool(key string) (bool, bool) {
	if e.EventData == nil {
		return false, false
	}
	v, ok := e.EventData[key].(bool)
	return v, ok
}

// GetBoolOr extracts a bool field or returns the default value.
func (e *Event) GetBoolOr(key string, defaultVal bool) bool {
	if v, ok := e.GetBool(key); ok {
		return v
	}
	return defaultVal
}

// =============================================================================
// Typed event data structures for common events
// =============================================================================

// TimerRunEventData carries the run counters shared by the timer lifecycle
// events (TimerStarted, TimerTick, TimerCancelled, TimerExpired).
type TimerRunEventData struct {
	TotalSeconds     int64 `json:"total_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	StartedAt        int64 `json:"started_at"` // epoch milliseconds
}

// ParseTimerRunEventData extracts typed run counters from an event.
func (e *Event) ParseTimerRunEventData() (TimerRunEventData, bool) {
	total, ok := e.GetInt64("total_seconds")
	if !ok {
		return TimerRunEventData{}, false
	}
	return TimerRunEventData{
		TotalSeconds:     total,
		RemainingSeconds: e.GetInt64Or("remaining_seconds", 0),
		StartedAt:        e.GetInt64Or("started_at", 0),
	}, true
}

// ControllerEventData carries the outcome of a media pause or suspend call.
type ControllerEventData struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// ParseControllerEventData extracts a typed controller outcome from an event.
func (e *Event) ParseControllerEventData() (ControllerEventData, bool) {
	success, ok := e.GetBool("success")
	if !ok {
		return ControllerEventData{}, false
	}
	return ControllerEventData{
		Success: success,
		Message: e.GetStringOr("message", ""),
		DryRun:  e.GetBoolOr("dry_run", false),
	}, true
}
