// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package observability holds the Prometheus metrics of the meeting pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage run outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeFailed    = "failed"
	OutcomeConflict  = "conflict"
)

// Job outcomes.
const (
	JobAcked      = "acked"
	JobRetried    = "retried"
	JobExhausted  = "exhausted"
	JobTerminated = "terminated"
	JobDiscarded  = "discarded"
)

// PipelineMetrics holds all Prometheus metrics for the meeting pipeline.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	StageRunsTotal        *prometheus.CounterVec
	StageDurationSeconds  *prometheus.HistogramVec
	TransitionsTotal      *prometheus.CounterVec
	JobsTotal             *prometheus.CounterVec
	JobsInFlight          prometheus.Gauge
	IntegrationCallsTotal *prometheus.CounterVec
}

// DefaultPipelineMetrics creates metrics on the default registerer.
func DefaultPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetrics(prometheus.DefaultRegisterer)
}

// NewPipelineMetrics creates a new set of pipeline metrics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		StageRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_stage_runs_total",
				Help: "Total stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),
		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_pipeline_stage_duration_seconds",
				Help:    "Stage execution latency",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_transitions_total",
				Help: "Total meeting status transitions",
			},
			[]string{"from", "to"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_jobs_total",
				Help: "Total job deliveries by outcome",
			},
			[]string{"outcome"},
		),
		JobsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meeting_pipeline_jobs_in_flight",
				Help: "Jobs currently being processed",
			},
		),
		IntegrationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_pipeline_integration_calls_total",
				Help: "Total external collaborator calls by outcome",
			},
			[]string{"integration", "outcome"},
		),
	}
}

// RecordStageRun records one stage execution.
func (m *PipelineMetrics) RecordStageRun(stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageRunsTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordTransition records a status write.
func (m *PipelineMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordJob records how a job delivery was settled.
func (m *PipelineMetrics) RecordJob(outcome string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Inc()
}

// JobStarted increments the in-flight gauge and returns the matching decrement.
func (m *PipelineMetrics) JobStarted() func() {
	if m == nil {
		return func() {}
	}
	m.JobsInFlight.Inc()
	return m.JobsInFlight.Dec
}

// RecordIntegrationCall records one external call attempt.
func (m *PipelineMetrics) RecordIntegrationCall(integration, outcome string) {
	if m == nil {
		return
	}
	m.IntegrationCallsTotal.WithLabelValues(integration, outcome).Inc()
}
