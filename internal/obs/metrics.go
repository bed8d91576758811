package obs

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector when no namespace is configured.
const DefaultNamespace = "parkconnect"

// Default latency buckets in milliseconds. Ticket PDFs and CSV exports sit in
// the upper range; JSON lookups in the lower one.
var defaultBuckets = []float64{5, 15, 50, 100, 250, 500, 1000, 2500, 5000}

// HTTPMetrics groups the request collectors. Every series carries the route
// audience so visitor traffic and staff traffic can be graphed apart.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
}

// NewHTTPMetrics registers the request collectors on reg, reusing collectors
// that are already registered.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if len(buckets) == 0 {
		buckets = defaultBuckets
	} else {
		buckets = append([]float64(nil), buckets...)
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests handled, by audience, route and status.",
		}, []string{"audience", "method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "Request latency in milliseconds, by audience and route.",
			Buckets:   buckets,
		}, []string{"audience", "method", "route"}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served, by audience.",
		}, []string{"audience"}),
	}
	mustRegisterCollector(reg, m.ReqTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.ReqTotal = v
		}
	})
	mustRegisterCollector(reg, m.ReqDur, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.ReqDur = v
		}
	})
	mustRegisterCollector(reg, m.InFlight, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.GaugeVec); ok {
			m.InFlight = v
		}
	})
	return m
}

// Route audiences.
const (
	AudiencePublic = "public"
	AudienceStaff  = "staff"
	AudienceGate   = "gate"
	AudienceOps    = "ops"
)

// Audience classifies a request path: admin endpoints are staff traffic, scan
// endpoints come from the gate, health and metrics are operational, and the
// rest is visitor-facing.
func Audience(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/admin"):
		return AudienceStaff
	case strings.HasPrefix(path, "/api/v1/scan"):
		return AudienceGate
	case strings.HasPrefix(path, "/health"), path == "/metrics", strings.HasPrefix(path, "/debug/"):
		return AudienceOps
	default:
		return AudiencePublic
	}
}

// ParseBucketsCSV turns OBS_METRICS_BUCKETS_MS into bucket bounds, skipping
// entries that are not positive numbers.
func ParseBucketsCSV(csv string) []float64 {
	var out []float64
	for _, part := range strings.Split(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// DurationMillis converts d to fractional milliseconds.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
