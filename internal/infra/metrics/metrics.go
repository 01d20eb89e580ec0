package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_scheduler_runs_total",
			Help: "Total number of scheduler passes by result",
		},
		[]string{"result"},
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outreach_scheduler_run_duration_seconds",
			Help:    "Duration of a full scheduler pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_messages_sent_total",
			Help: "Total number of messages moved from draft to sent",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_send_failures_total",
			Help: "Total number of failed send attempts by reason",
		},
		[]string{"reason"},
	)

	FollowUps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_followups_total",
			Help: "Due follow-ups processed by outcome",
		},
		[]string{"outcome"},
	)

	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_replies_total",
			Help: "Inbound replies by outcome",
		},
		[]string{"outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_cache_requests_total",
			Help: "Cache-aside lookups by result",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_events_published_total",
			Help: "Status change events handed to a backend, by backend and result",
		},
		[]string{"backend", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Send failure reasons.
const (
	ReasonDuplicateContact = "duplicate_contact"
	ReasonInvalidState     = "invalid_state"
	ReasonQuota            = "quota_exceeded"
	ReasonError            = "error"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Scheduler run results.
const (
	RunSucceeded = "success"
	RunPartial   = "partial"
	RunFailed    = "failure"
	RunSkipped   = "skipped"
)

// Event publish results.
const (
	PublishOK     = "ok"
	PublishFailed = "error"
)
