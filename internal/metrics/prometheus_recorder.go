package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	publishDuration *prom.HistogramVec
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	publishOutcome  *prom.CounterVec
	triggers        *prom.CounterVec
	pushRetries     prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.publishDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "publish_duration_seconds",
			Help:      "Duration of hosting-branch publish operations",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.publishOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "publish_outcomes_total",
			Help:      "Publish outcomes by final status",
		}, []string{"outcome"})
		pr.triggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "pipeline_triggers_total",
			Help:      "Pipeline runs by trigger source",
		}, []string{"trigger"})
		pr.pushRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "push_retries_total",
			Help:      "Total push retry attempts (transient failures)",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.publishDuration, pr.stageResults, pr.buildOutcome, pr.publishOutcome, pr.triggers, pr.pushRetries)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration, success bool) {
	if p == nil || p.publishDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.publishDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPublishOutcome(outcome string) {
	if p == nil || p.publishOutcome == nil {
		return
	}
	p.publishOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncTrigger(trigger string) {
	if p == nil || p.triggers == nil {
		return
	}
	p.triggers.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncPushRetry() {
	if p == nil || p.pushRetries == nil {
		return
	}
	p.pushRetries.Inc()
}
