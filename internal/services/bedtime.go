// Package services holds background services that drive the timer engine.
package services

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/logger"
	"github.com/snoozarr/snoozarr/internal/timer"
)

// Engine is the slice of the timer engine the bedtime schedule drives.
type Engine interface {
	Start(minutes float64) timer.State
	State() timer.State
}

// BedtimeService auto-starts a sleep timer on a cron schedule. A timer
// already running at the scheduled moment is left alone so a manually
// chosen duration is never shortened.
type BedtimeService struct {
	engine   Engine
	eb       eventbus.Publisher
	cronExpr string
	minutes  float64
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	active   bool
}

// NewBedtimeService creates the bedtime scheduler. An empty cron expression
// disables it.
func NewBedtimeService(engine Engine, eb eventbus.Publisher, cronExpr string, minutes float64) *BedtimeService {
	return &BedtimeService{
		engine:   engine,
		eb:       eb,
		cronExpr: cronExpr,
		minutes:  minutes,
		cron:     cron.New(),
	}
}

// ValidateCron checks a cron expression without scheduling anything.
func ValidateCron(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %v", err)
	}
	return nil
}

// Start registers the cron job and begins the schedule. Disabled or invalid
// schedules log and leave the service inactive; the rest of the process is
// unaffected.
func (s *BedtimeService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cronExpr == "" {
		logger.Debugf("No bedtime schedule configured")
		return nil
	}
	if s.minutes <= 0 {
		return fmt.Errorf("bedtime minutes must be positive, got %g", s.minutes)
	}
	if err := ValidateCron(s.cronExpr); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.cronExpr, s.trigger)
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.active = true
	s.cron.Start()

	logger.Infof("Bedtime schedule active: %q starts a %g minute timer", s.cronExpr, s.minutes)
	return nil
}

// Stop halts the schedule.
func (s *BedtimeService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.cron.Stop()
	s.active = false
}

// Active reports whether a schedule is registered and running.
func (s *BedtimeService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// trigger fires at the scheduled time.
func (s *BedtimeService) trigger() {
	if s.engine.State().IsRunning {
		logger.Infof("Bedtime schedule fired but a timer is already running, skipping")
		return
	}

	logger.Infof("Bedtime schedule starting a %g minute timer", s.minutes)
	s.engine.Start(s.minutes)

	if err := s.eb.Publish(domain.Event{
		EventType: domain.BedtimeTriggered,
		EventData: map[string]interface{}{
			"minutes": s.minutes,
			"cron":    s.cronExpr,
		},
	}); err != nil {
		logger.Errorf("Failed to publish BedtimeTriggered event: %v", err)
	}
}
