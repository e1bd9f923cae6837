package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/logger"
)

// MetricsService exposes Prometheus metrics for Snoozarr
type MetricsService struct {
	eventBus eventbus.Publisher
	registry *prometheus.Registry

	// Counters
	timersStarted      prometheus.Counter
	timersFinished     *prometheus.CounterVec
	mediaPauses        *prometheus.CounterVec
	suspends           *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	bedtimeTriggers    prometheus.Counter

	// Gauges
	timerRunning     prometheus.Gauge
	remainingSeconds prometheus.Gauge

	// Histograms
	timerDuration prometheus.Histogram
}

// NewMetricsService creates and registers Prometheus metrics.
// Metrics live in a private registry so repeated construction (tests,
// restarts) never collides with the default global registry.
func NewMetricsService(eb eventbus.Publisher) *MetricsService {
	m := &MetricsService{
		eventBus: eb,
		registry: prometheus.NewRegistry(),

		timersStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snoozarr_timers_started_total",
				Help: "Total number of sleep timers started",
			},
		),

		timersFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snoozarr_timers_finished_total",
				Help: "Total number of sleep timers finished by outcome",
			},
			[]string{"outcome"}, // expired, cancelled
		),

		mediaPauses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snoozarr_media_pause_total",
				Help: "Total number of media pause attempts by outcome",
			},
			[]string{"outcome"}, // success, failed
		),

		suspends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snoozarr_suspend_total",
				Help: "Total number of suspend attempts by outcome",
			},
			[]string{"outcome"}, // success, failed
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snoozarr_notifications_total",
				Help: "Total number of notifications sent by outcome",
			},
			[]string{"outcome"}, // sent, failed
		),

		bedtimeTriggers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "snoozarr_bedtime_triggers_total",
				Help: "Total number of timers auto-started by the bedtime schedule",
			},
		),

		timerRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snoozarr_timer_running",
				Help: "Whether a sleep timer is currently running (0 or 1)",
			},
		),

		remainingSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "snoozarr_timer_remaining_seconds",
				Help: "Seconds remaining on the running sleep timer",
			},
		),

		timerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snoozarr_timer_duration_seconds",
				Help:    "Configured duration of expired sleep timers in seconds",
				Buckets: prometheus.ExponentialBuckets(60, 2, 10), // 1min to ~8.5 hours
			},
		),
	}

	m.registry.MustRegister(
		m.timersStarted,
		m.timersFinished,
		m.mediaPauses,
		m.suspends,
		m.notificationsTotal,
		m.bedtimeTriggers,
		m.timerRunning,
		m.remainingSeconds,
		m.timerDuration,
	)

	return m
}

// Start subscribes to events and updates metrics
func (m *MetricsService) Start() {
	m.eventBus.Subscribe(domain.TimerStarted, m.handleTimerStarted)
	m.eventBus.Subscribe(domain.TimerTick, m.handleTimerTick)
	m.eventBus.Subscribe(domain.TimerCancelled, m.handleTimerCancelled)
	m.eventBus.Subscribe(domain.TimerExpired, m.handleTimerExpired)
	m.eventBus.Subscribe(domain.MediaPaused, m.handleMediaPaused)
	m.eventBus.Subscribe(domain.MediaPauseError, m.handleMediaPauseError)
	m.eventBus.Subscribe(domain.SystemSuspended, m.handleSystemSuspended)
	m.eventBus.Subscribe(domain.SuspendFailed, m.handleSuspendFailed)
	m.eventBus.Subscribe(domain.NotificationSent, m.handleNotificationSent)
	m.eventBus.Subscribe(domain.NotificationFailed, m.handleNotificationFailed)
	m.eventBus.Subscribe(domain.BedtimeTriggered, m.handleBedtimeTriggered)

	logger.Infof("Metrics service started")
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Event handlers

func (m *MetricsService) handleTimerStarted(event domain.Event) {
	m.timersStarted.Inc()
	m.timerRunning.Set(1)
	if total, ok := event.GetInt64("total_seconds"); ok {
		m.remainingSeconds.Set(float64(total))
	}
}

func (m *MetricsService) handleTimerTick(event domain.Event) {
	if remaining, ok := event.GetInt64("remaining_seconds"); ok {
		m.remainingSeconds.Set(float64(remaining))
	}
}

func (m *MetricsService) handleTimerCancelled(event domain.Event) {
	m.timersFinished.WithLabelValues("cancelled").Inc()
	m.timerRunning.Set(0)
	m.remainingSeconds.Set(0)
}

func (m *MetricsService) handleTimerExpired(event domain.Event) {
	m.timersFinished.WithLabelValues("expired").Inc()
	m.timerRunning.Set(0)
	m.remainingSeconds.Set(0)
	if total, ok := event.GetInt64("total_seconds"); ok {
		m.timerDuration.Observe(float64(total))
	}
}

func (m *MetricsService) handleMediaPaused(event domain.Event) {
	m.mediaPauses.WithLabelValues("success").Inc()
}

func (m *MetricsService) handleMediaPauseError(event domain.Event) {
	m.mediaPauses.WithLabelValues("failed").Inc()
}

func (m *MetricsService) handleSystemSuspended(event domain.Event) {
	m.suspends.WithLabelValues("success").Inc()
}

func (m *MetricsService) handleSuspendFailed(event domain.Event) {
	m.suspends.WithLabelValues("failed").Inc()
}

func (m *MetricsService) handleNotificationSent(event domain.Event) {
	m.notificationsTotal.WithLabelValues("sent").Inc()
}

func (m *MetricsService) handleNotificationFailed(event domain.Event) {
	m.notificationsTotal.WithLabelValues("failed").Inc()
}

func (m *MetricsService) handleBedtimeTriggered(event domain.Event) {
	m.bedtimeTriggers.Inc()
}
