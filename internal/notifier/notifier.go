// Package notifier pushes event notifications to shoutrrr URLs configured
// via SNOOZARR_NOTIFY_URLS. With no URLs configured the notifier is inert.
package notifier

import (
	"fmt"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/logger"
)

// sendFunc delivers one message to one shoutrrr URL. Swappable in tests.
type sendFunc func(url, message string) error

// Notifier subscribes to timer events and fans each one out to all
// configured notification URLs.
type Notifier struct {
	eb   eventbus.Publisher
	urls []string
	send sendFunc
	wg   sync.WaitGroup
}

// NewNotifier creates a notifier for the given shoutrrr URLs.
func NewNotifier(eb eventbus.Publisher, urls []string) *Notifier {
	return &Notifier{
		eb:   eb,
		urls: urls,
		send: shoutrrr.Send,
	}
}

// notifiableEvents are the event types that produce a notification.
// Ticks are deliberately excluded; one message per second is noise.
var notifiableEvents = []domain.EventType{
	domain.TimerExpired,
	domain.MediaPauseError,
	domain.SuspendFailed,
	domain.BedtimeTriggered,
}

// Start subscribes to notifiable events. A notifier with no URLs skips
// subscribing entirely.
func (n *Notifier) Start() {
	if len(n.urls) == 0 {
		logger.Debugf("No notification URLs configured, notifier idle")
		return
	}

	for _, eventType := range notifiableEvents {
		et := eventType // capture for closure
		n.eb.Subscribe(et, func(ev domain.Event) {
			n.handleEvent(ev)
		})
	}

	logger.Infof("Notifier started with %d URL(s)", len(n.urls))
}

// Stop waits for in-flight sends to finish.
func (n *Notifier) Stop() {
	n.wg.Wait()
}

func (n *Notifier) handleEvent(ev domain.Event) {
	message := formatMessage(ev)
	for _, url := range n.urls {
		url := url
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.deliver(url, string(ev.EventType), message)
		}()
	}
}

// deliver sends one message and publishes the outcome.
func (n *Notifier) deliver(url, triggerEvent, message string) {
	err := n.send(url, message)
	if err != nil {
		logger.Errorf("Failed to send notification for %s: %v", triggerEvent, err)
		n.publishOutcome(domain.NotificationFailed, triggerEvent, err.Error())
		return
	}
	logger.Debugf("Sent notification for %s", triggerEvent)
	n.publishOutcome(domain.NotificationSent, triggerEvent, "")
}

func (n *Notifier) publishOutcome(eventType domain.EventType, triggerEvent, errMsg string) {
	data := map[string]interface{}{
		"trigger_event": triggerEvent,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	if err := n.eb.Publish(domain.Event{
		EventType: eventType,
		EventData: data,
	}); err != nil {
		logger.Errorf("Failed to publish %s event: %v", eventType, err)
	}
}

// messageFormatter builds a notification message from an event
type messageFormatter func(ev domain.Event) string

var messageFormatters = map[domain.EventType]messageFormatter{
	domain.TimerExpired:     fmtTimerExpired,
	domain.MediaPauseError:  fmtMediaPauseError,
	domain.SuspendFailed:    fmtSuspendFailed,
	domain.BedtimeTriggered: fmtBedtimeTriggered,
}

func formatMessage(ev domain.Event) string {
	if formatter, ok := messageFormatters[ev.EventType]; ok {
		return formatter(ev)
	}
	return fmt.Sprintf("📢 Event: %s", ev.EventType)
}

func fmtTimerExpired(ev domain.Event) string {
	total := ev.GetInt64Or("total_seconds", 0)
	return fmt.Sprintf("😴 Sleep timer expired after %s\n⏸️ Pausing media and suspending the machine", formatDuration(total))
}

func fmtMediaPauseError(ev domain.Event) string {
	msg := ev.GetStringOr("message", "unknown error")
	return fmt.Sprintf("⚠️ Media pause failed: %s\n💤 Suspend will proceed anyway", msg)
}

func fmtSuspendFailed(ev domain.Event) string {
	msg := ev.GetStringOr("message", "unknown error")
	return fmt.Sprintf("❌ Suspend failed: %s\n👉 The machine is still awake", msg)
}

func fmtBedtimeTriggered(ev domain.Event) string {
	minutes := ev.GetInt64Or("minutes", 0)
	return fmt.Sprintf("🌙 Bedtime schedule started a %d minute sleep timer", minutes)
}

// formatDuration renders whole seconds as a compact human duration
func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if d >= time.Minute {
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", seconds)
}
