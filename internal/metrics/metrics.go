package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenant_notes"

// NotesMetrics holds the Prometheus metrics for the notes service.
type NotesMetrics struct {
	Registry        *prometheus.Registry
	AccessDenials   *prometheus.CounterVec
	NotesCreated    *prometheus.CounterVec
	QuotaRejections *prometheus.CounterVec
	TenantUpgrades  prometheus.Counter
	Invitations     *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewNotesMetrics registers the metrics on a fresh registry, which also carries
// the Go runtime and process collectors.
func NewNotesMetrics() *NotesMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newNotesMetrics(reg)
}

// NewNotesMetricsWithRegistry registers the metrics on reg only.
func NewNotesMetricsWithRegistry(reg *prometheus.Registry) *NotesMetrics {
	return newNotesMetrics(reg)
}

func newNotesMetrics(reg *prometheus.Registry) *NotesMetrics {
	factory := promauto.With(reg)
	return &NotesMetrics{
		Registry: reg,
		AccessDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "denials_total",
			Help:      "Total number of denied operations by action and reason.",
		}, []string{"action", "reason"}), // reason: unauthorized, cross_tenant_access, insufficient_role
		NotesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notes",
			Name:      "created_total",
			Help:      "Total number of notes created by tenant plan.",
		}, []string{"plan"}),
		QuotaRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "rejections_total",
			Help:      "Total number of note creations rejected by the plan limit.",
		}, []string{"tenant"}),
		TenantUpgrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenants",
			Name:      "upgrades_total",
			Help:      "Total number of tenants upgraded to the pro plan.",
		}),
		Invitations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "users",
			Name:      "invitations_total",
			Help:      "Total number of invitations sent by role.",
		}, []string{"role"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by outcome.",
		}, []string{"outcome"}), // outcome: success, failure
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
