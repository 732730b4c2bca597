package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ReportsProcessed counts location reports by pipeline outcome
	ReportsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "location_reports_total", Help: "Location reports by processing outcome."},
		[]string{"outcome"},
	)
	// AlertsCreated counts alerts by kind
	AlertsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_created_total", Help: "Alerts created by kind."},
		[]string{"kind"},
	)
	// AlertsSuppressed counts dedup-suppressed alert attempts by kind
	AlertsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_suppressed_total", Help: "Alert creations suppressed by the dedup window."},
		[]string{"kind"},
	)
	// Notifications counts channel sends by channel and status
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notification_sends_total", Help: "Notification channel sends by channel and status."},
		[]string{"channel", "status"},
	)
	// DispatchQueueDrops counts alerts dropped because the dispatch queue was full
	DispatchQueueDrops = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_queue_drops_total", Help: "Alerts dropped by a full dispatch queue."},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ReportsProcessed)
		Registry.MustRegister(AlertsCreated)
		Registry.MustRegister(AlertsSuppressed)
		Registry.MustRegister(Notifications)
		Registry.MustRegister(DispatchQueueDrops)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
