package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsPublished   prometheus.Counter
	PublishFailures  prometheus.Counter
	ReviewsRequested prometheus.Counter
	RemindersSent    prometheus.Counter
	ItemsAutoSkipped prometheus.Counter
	PlansGenerated   prometheus.Counter
	QueuesPaused     prometheus.Counter
	TickDuration     prometheus.Histogram
	ActivePolicies   prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_items_published_total",
			Help: "Total queue items successfully published to a channel.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_publish_failures_total",
			Help: "Total publish attempts that failed at the channel.",
		}),
		ReviewsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_reviews_requested_total",
			Help: "Total items sent to a tenant for approval.",
		}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "review_reminders_sent_total",
			Help: "Total review reminders re-sent by the escalator.",
		}),
		ItemsAutoSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_items_auto_skipped_total",
			Help: "Total review items skipped after the reminder limit.",
		}),
		PlansGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_plans_generated_total",
			Help: "Total content plans generated (auto and manual).",
		}),
		QueuesPaused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "policies_paused_total",
			Help: "Total policies deactivated by the empty-queue or limit fail-safes.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_tick_seconds",
			Help:    "Duration of one per-tenant scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
		ActivePolicies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publish_policies_active",
			Help: "Number of tenants with an active publish policy at the last tick.",
		}),
	}

	reg.MustRegister(
		m.ItemsPublished,
		m.PublishFailures,
		m.ReviewsRequested,
		m.RemindersSent,
		m.ItemsAutoSkipped,
		m.PlansGenerated,
		m.QueuesPaused,
		m.TickDuration,
		m.ActivePolicies,
	)

	return m
}

// ObserveTick records one per-tenant tick duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
}
