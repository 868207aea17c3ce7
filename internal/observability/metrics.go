package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QualityScoreCalculations counts score calculations by outcome.
	QualityScoreCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifieds_quality_score_calculations_total",
		Help: "Total number of listing quality score calculations",
	}, []string{"result"})

	// QualityOverallScore records the distribution of computed overall scores.
	QualityOverallScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "classifieds_quality_overall_score",
		Help:    "Distribution of computed overall listing quality scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	// ListingsAutoHidden counts listings hidden by the moderator, by trigger.
	ListingsAutoHidden = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifieds_listing_auto_hidden_total",
		Help: "Total number of listings automatically hidden after reports",
	}, []string{"reason"})

	// ModerationChecks counts report-driven moderation evaluations by outcome.
	ModerationChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifieds_moderation_checks_total",
		Help: "Total number of report-driven moderation checks",
	}, []string{"result"})

	// ReportsSubmitted counts accepted user reports.
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classifieds_reports_submitted_total",
		Help: "Total number of listing reports submitted",
	})

	// AdminWebSocketConnections is the gauge of connected admin dashboards.
	AdminWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "classifieds_admin_websocket_connections",
		Help: "Number of active admin WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifieds_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// HideReason labels an auto-hide by which threshold tripped.
func HideReason(spam, fraud bool) string {
	switch {
	case spam && fraud:
		return "spam_and_fraud"
	case fraud:
		return "fraud"
	default:
		return "spam"
	}
}
