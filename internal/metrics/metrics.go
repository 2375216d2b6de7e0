/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes the reconciliation counters scraped at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cashbook"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	ReportsBuilt        *prometheus.CounterVec
	ReportDuration      prometheus.Histogram
	SourceFailures      *prometheus.CounterVec
	UnattributedTxns    prometheus.Counter
	OrphanDeposits      prometheus.Counter
	DepositWrites       *prometheus.CounterVec
	DepositWriteLatency prometheus.Histogram
}

// New builds a Metrics on a fresh registry, including the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ReportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Reports built, labelled by whether they were degraded.",
		}, []string{"degraded"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Time spent fetching and reconciling a report.",
			Buckets:   prometheus.DefBuckets,
		}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed fetches from a data source.",
		}, []string{"source"}),
		UnattributedTxns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unattributed_transactions_total",
			Help:      "Eligible transactions seen without an actor.",
		}),
		OrphanDeposits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_deposits_total",
			Help:      "Clerk deposit records whose transaction was not found.",
		}),
		DepositWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_writes_total",
			Help:      "Deposit record writes by level and outcome.",
		}, []string{"level", "outcome"}),
		DepositWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deposit_write_duration_seconds",
			Help:      "Time from accepting a deposit edit to returning the recomputed ledger.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReportsBuilt,
		m.ReportDuration,
		m.SourceFailures,
		m.UnattributedTxns,
		m.OrphanDeposits,
		m.DepositWrites,
		m.DepositWriteLatency,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ObserveReport records one built report.
func (m *Metrics) ObserveReport(degraded bool, seconds float64, unattributed, orphans int) {
	if m == nil {
		return
	}
	m.ReportsBuilt.WithLabelValues(boolLabel(degraded)).Inc()
	m.ReportDuration.Observe(seconds)
	m.UnattributedTxns.Add(float64(unattributed))
	m.OrphanDeposits.Add(float64(orphans))
}

// ObserveSourceFailure records a failed fetch from source.
func (m *Metrics) ObserveSourceFailure(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

// ObserveDepositWrite records one deposit write attempt.
func (m *Metrics) ObserveDepositWrite(level, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.DepositWrites.WithLabelValues(level, outcome).Inc()
	m.DepositWriteLatency.Observe(seconds)
}
