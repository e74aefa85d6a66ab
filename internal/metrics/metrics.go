// Package metrics exposes Prometheus counters for batch runs and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

type Registry struct {
	reg                    *prometheus.Registry
	Orders                 *prometheus.CounterVec
	ReconciliationWarnings prometheus.Counter
	AllocatedOverhead      *prometheus.CounterVec
	AllocationSeconds      prometheus.Histogram
	Requests               *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truecost_orders_total",
		Help: "Orders processed, by outcome.",
	}, []string{"outcome"})
	warnings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truecost_reconciliation_warnings_total",
		Help: "Allocations whose distributed overhead missed the tolerance.",
	})
	overhead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truecost_allocated_overhead_total",
		Help: "Overhead distributed across items, by target currency.",
	}, []string{"currency"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "truecost_allocation_seconds",
		Help:    "Time to load, allocate and project one order.",
		Buckets: prometheus.DefBuckets,
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truecost_http_requests_total",
		Help: "API requests, by route and status code.",
	}, []string{"route", "code"})

	r.MustRegister(orders, warnings, overhead, latency, requests)
	return &Registry{
		reg:                    r,
		Orders:                 orders,
		ReconciliationWarnings: warnings,
		AllocatedOverhead:      overhead,
		AllocationSeconds:      latency,
		Requests:               requests,
	}
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
