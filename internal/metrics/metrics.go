package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tuning_portal"

var (
	SecurityEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_recorded_total",
			Help:      "Security events persisted, by type and severity",
		},
		[]string{"event_type", "severity"},
	)

	SecurityAlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_alerts_created_total",
			Help:      "Security alerts raised, by alert type",
		},
		[]string{"alert_type"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter, by purpose",
		},
		[]string{"purpose"},
	)

	GeoLookupFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_lookup_fallbacks_total",
			Help:      "IP lookups answered with the offline fallback location",
		},
	)

	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Secondary security checks that failed without failing the request",
		},
		[]string{"op"},
	)

	RetentionRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_rows_deleted_total",
			Help:      "Rows removed by the retention sweep, by table",
		},
		[]string{"table"},
	)
)
