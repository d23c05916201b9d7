// Package metrics содержит счетчики Prometheus бота.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var MessagesInspected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_messages_inspected_total",
	Help: "The total number of group messages inspected by the moderator",
})

var SpamVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_spam_verdicts_total",
	Help: "Non-clean spam detector verdicts by kind",
}, []string{"kind"})

var ModerationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_moderation_verdicts_total",
	Help: "Non-clean content moderator verdicts by kind",
}, []string{"kind"})

var WarningsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_warnings_issued_total",
	Help: "Warnings added to the ledger by issuer type",
}, []string{"issuer"})

var PunishmentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_punishments_applied_total",
	Help: "Punishments applied by kind and outcome",
}, []string{"kind", "outcome"})

var AdapterFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_adapter_failures_total",
	Help: "Best-effort platform calls that failed",
}, []string{"op"})

var EngagementSends = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_engagement_sends_total",
	Help: "Engagement content dispatches by category and outcome",
}, []string{"category", "outcome"})

var TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "modbot_engagement_tick_duration_seconds",
	Help:    "Duration of engagement scheduler ticks",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})
