// Package metrics registers the gateway's Prometheus collectors: pool
// size, request latency, and rate-limit rejections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the gateway exports.
type Metrics struct {
	ServerInstances        *prometheus.GaugeVec
	ServerHealthyInstances *prometheus.GaugeVec
	RequestDuration        *prometheus.HistogramVec
	RateLimitRejections    *prometheus.CounterVec
}

// New registers every collector against reg (pass prometheus.DefaultRegisterer
// in production, a fresh prometheus.NewRegistry() in tests).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ServerInstances: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_server_instances",
			Help: "Number of spawned instances per configured MCP server.",
		}, []string{"server_id"}),
		ServerHealthyInstances: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_server_healthy_instances",
			Help: "Number of healthy instances per configured MCP server.",
		}, []string{"server_id"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of /mcp JSON-RPC requests, by method and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "outcome"}),
		RateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rate_limit_rejections_total",
			Help: "Requests rejected by the per-key rate limiter.",
		}, []string{"key_kind"}),
	}
}

// ObserveSnapshot publishes a servermanager.HealthSnapshot-shaped pool
// state into the gauge pair; callers pass the already-computed per-server
// counts rather than this package depending on servermanager directly.
func (m *Metrics) ObserveSnapshot(serverID string, instances, healthy int) {
	m.ServerInstances.WithLabelValues(serverID).Set(float64(instances))
	m.ServerHealthyInstances.WithLabelValues(serverID).Set(float64(healthy))
}
