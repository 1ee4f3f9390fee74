// Package metrics records pipeline timings and outcomes.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Stage and run result labels.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveStage(stage string, d time.Duration, result string)
	ObserveRun(d time.Duration, outcome string)
	SetGeneratedTokens(category string, n int)
}

// NoopRecorder drops everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStage(string, time.Duration, string) {}
func (NoopRecorder) ObserveRun(time.Duration, string)           {}
func (NoopRecorder) SetGeneratedTokens(string, int)             {}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	runDuration     prom.Histogram
	runOutcomes     *prom.CounterVec
	generatedTokens *prom.GaugeVec
}

// NewPrometheusRecorder registers the pipeline collectors on reg. A nil reg
// gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "stylepipe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stylepipe",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "stylepipe",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "stylepipe",
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
		generatedTokens: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "stylepipe",
			Name:      "generated_tokens",
			Help:      "Token accessors emitted into the bindings, per theme category",
		}, []string{"category"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcomes, pr.generatedTokens)
	return pr
}

func (p *PrometheusRecorder) ObserveStage(stage string, d time.Duration, result string) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	p.stageResults.WithLabelValues(stage, result).Inc()
}

func (p *PrometheusRecorder) ObserveRun(d time.Duration, outcome string) {
	p.runDuration.Observe(d.Seconds())
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetGeneratedTokens(category string, n int) {
	p.generatedTokens.WithLabelValues(category).Set(float64(n))
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: create directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
