/*
Package metrics exposes Prometheus instrumentation for the browse service.

PURPOSE:
  Query latency and failure rates are what operators watch on a faceted
  search backend: one browse request fans out into several store queries,
  and a slow dimension shows up here before it shows up as a 504.

METRICS:
  payroll_browse_store_queries_total{op,result}
  payroll_browse_store_query_duration_seconds{op,result}
  payroll_browse_http_requests_total{route,method,status}
  payroll_browse_http_request_duration_seconds{route,method}

  op:     count, count_by, fetch
  result: ok, timeout, canceled, error

USAGE:
  reg := prometheus.NewRegistry()
  m := metrics.New(reg)

  store = m.WrapStore(store)
  r.Use(m.Middleware)
  r.Handle("/metrics", metrics.Handler(reg))
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payroll_browse"

// Metrics holds the registered collectors.
type Metrics struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_queries_total",
			Help:      "Total number of store queries by operation and result.",
		}, []string{"op", "result"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Latency distribution for store queries.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"op", "result"}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
