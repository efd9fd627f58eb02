package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bündelt die Prometheus-Kennzahlen der Ansicht.
type Metrics struct {
	FetchTotal        *prometheus.CounterVec
	RecordsLoaded     prometheus.Gauge
	MedicationsAdded  prometheus.Counter
	PipelineRunsTotal prometheus.Counter
}

// NewMetrics erstellt die Kennzahlen und registriert sie bei reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medwatch_fetch_total",
				Help: "Total number of medication list fetches by outcome.",
			},
			[]string{"outcome"},
		),
		RecordsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "medwatch_records",
				Help: "Number of medication records currently held by the view.",
			},
		),
		MedicationsAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "medwatch_medications_added_total",
				Help: "Total number of medications added through the add form.",
			},
		),
		PipelineRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "medwatch_pipeline_runs_total",
				Help: "Total number of filter/sort pipeline evaluations.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.FetchTotal, m.RecordsLoaded, m.MedicationsAdded, m.PipelineRunsTotal)
	}
	return m
}
