// Package metric provides Prometheus metrics for hostbridge.
//
// A Registry owns its own prometheus.Registry so independent bootstraps in
// one test binary never collide on registration. All recording helpers are
// safe to call on a nil *Registry, which lets components treat metrics as
// optional.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hostbridge"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	BootstrapDuration  prometheus.Histogram
	BootstrapTotal     *prometheus.CounterVec
	TrustBundleEntries prometheus.Gauge
	TrustBundleBuilds  *prometheus.CounterVec
	AssetRequests      *prometheus.CounterVec
	PrefOps            *prometheus.CounterVec
}

// NewRegistry creates a registry with every hostbridge collector plus the
// standard Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		BootstrapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "duration_seconds",
			Help:      "Time spent in one-time platform initialization",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		BootstrapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "total",
			Help:      "Bootstrap runs by result",
		}, []string{"result"}),
		TrustBundleEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "bundle_entries",
			Help:      "Certificate entries in the most recent trust bundle",
		}),
		TrustBundleBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "bundle_builds_total",
			Help:      "Trust bundle aggregation runs by result",
		}, []string{"result"}),
		AssetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "asset",
			Name:      "requests_total",
			Help:      "asset: protocol requests by response status",
		}, []string{"status"}),
		PrefOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pref",
			Name:      "ops_total",
			Help:      "Preference store round-trips by operation",
		}, []string{"op"}),
	}

	r.reg.MustRegister(
		r.BootstrapDuration,
		r.BootstrapTotal,
		r.TrustBundleEntries,
		r.TrustBundleBuilds,
		r.AssetRequests,
		r.PrefOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Prometheus returns the underlying registry, e.g. for the badger engine.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveBootstrap records one bootstrap run.
func (r *Registry) ObserveBootstrap(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.BootstrapDuration.Observe(elapsed.Seconds())
	r.BootstrapTotal.WithLabelValues(result(err)).Inc()
}

// TrustBundleBuilt records one aggregation run.
func (r *Registry) TrustBundleBuilt(entries int, err error) {
	if r == nil {
		return
	}
	if err == nil {
		r.TrustBundleEntries.Set(float64(entries))
	}
	r.TrustBundleBuilds.WithLabelValues(result(err)).Inc()
}

// AssetRequest records one asset: response.
func (r *Registry) AssetRequest(status int) {
	if r == nil {
		return
	}
	r.AssetRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// PrefOp records one preference store round-trip.
func (r *Registry) PrefOp(op string) {
	if r == nil {
		return
	}
	r.PrefOps.WithLabelValues(op).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
