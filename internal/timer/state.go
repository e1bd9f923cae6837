package timer

import (
	"encoding/json"
	"time"
)

// State is an immutable snapshot of the countdown. When no timer is running
// the snapshot is in canonical idle form: counters zero, StartedAt nil.
type State struct {
	IsRunning        bool
	RemainingSeconds int64
	TotalSeconds     int64
	StartedAt        *time.Time
}

// stateJSON is the wire shape of a State. StartedAt goes out as epoch
// milliseconds or null so browser clients can feed it to Date directly.
type stateJSON struct {
	IsRunning        bool   `json:"isRunning"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	TotalSeconds     int64  `json:"totalSeconds"`
	StartedAt        *int64 `json:"startedAt"`
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	var startedAt *int64
	if s.StartedAt != nil {
		ms := s.StartedAt.UnixMilli()
		startedAt = &ms
	}
	return json.Marshal(stateJSON{
		IsRunning:        s.IsRunning,
		RemainingSeconds: s.RemainingSeconds,
		TotalSeconds:     s.TotalSeconds,
		StartedAt:        startedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.IsRunning = raw.IsRunning
	s.RemainingSeconds = raw.RemainingSeconds
	s.TotalSeconds = raw.TotalSeconds
	s.StartedAt = nil
	if raw.StartedAt != nil {
		t := time.UnixMilli(*raw.StartedAt)
		s.StartedAt = &t
	}
	return nil
}
