// Package metrics 以 Prometheus 指标记录筛选会话的运行情况
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 会话、模型调用与持久化的指标记录接口
type Recorder interface {
	// ObserveTurn 记录一轮对话，stage 为处理该轮时所在阶段
	ObserveTurn(stage string)
	// ObserveCompletion 记录一次 completion 调用；errorKind 为空表示成功
	ObserveCompletion(errorKind string, duration time.Duration)
	ObserveStageTransition(from, to string)
	ObserveSessionStarted()
	ObserveSessionEnded(finalStage string)
	// ObserveSave 记录一次持久化写入，sink 如 local、mysql、minio、rabbitmq
	ObserveSave(sink string, err error)
	ObserveQueueWait(duration time.Duration)
}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	turnsTotal          *prometheus.CounterVec
	completionsTotal    *prometheus.CounterVec
	completionDuration  prometheus.Histogram
	stageTransitions    *prometheus.CounterVec
	sessionsStarted     prometheus.Counter
	sessionsEnded       *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	savesTotal          *prometheus.CounterVec
	rateLimitQueueWaits prometheus.Histogram
}

// NewPrometheusRecorder 在 reg 上注册全部指标；reg 为 nil 时使用默认 registry
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screening_turns_total",
				Help: "Total number of candidate turns by stage",
			},
			[]string{"stage"},
		),
		completionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screening_completions_total",
				Help: "Total number of chat completion calls by status and error kind",
			},
			[]string{"status", "error_kind"},
		),
		completionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "screening_completion_duration_seconds",
				Help:    "Duration of chat completion calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		stageTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screening_stage_transitions_total",
				Help: "Total number of stage transitions",
			},
			[]string{"from", "to"},
		),
		sessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "screening_sessions_started_total",
				Help: "Total number of screening sessions started",
			},
		),
		sessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screening_sessions_ended_total",
				Help: "Total number of screening sessions ended by final stage",
			},
			[]string{"final_stage"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "screening_active_sessions",
				Help: "Number of sessions started and not yet ended",
			},
		),
		savesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screening_saves_total",
				Help: "Total number of persistence writes by sink and status",
			},
			[]string{"sink", "status"},
		),
		rateLimitQueueWaits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "screening_llm_queue_wait_duration_seconds",
				Help:    "Time spent waiting for rate limit availability",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (p *PrometheusRecorder) ObserveTurn(stage string) {
	p.turnsTotal.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) ObserveCompletion(errorKind string, duration time.Duration) {
	status := "success"
	if errorKind != "" {
		status = "error"
	}
	p.completionsTotal.WithLabelValues(status, errorKind).Inc()
	p.completionDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveStageTransition(from, to string) {
	p.stageTransitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) ObserveSessionStarted() {
	p.sessionsStarted.Inc()
	p.activeSessions.Inc()
}

func (p *PrometheusRecorder) ObserveSessionEnded(finalStage string) {
	p.sessionsEnded.WithLabelValues(finalStage).Inc()
	p.activeSessions.Dec()
}

func (p *PrometheusRecorder) ObserveSave(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.savesTotal.WithLabelValues(sink, status).Inc()
}

func (p *PrometheusRecorder) ObserveQueueWait(duration time.Duration) {
	p.rateLimitQueueWaits.Observe(duration.Seconds())
}

// Nop 不记录任何指标
type Nop struct{}

func (Nop) ObserveTurn(string) {}
func (Nop) ObserveCompletion(string, time.Duration) {}
func (Nop) ObserveStageTransition(string, string) {}
func (Nop) ObserveSessionStarted() {}
func (Nop) ObserveSessionEnded(string) {}
func (Nop) ObserveSave(string, error) {}
func (Nop) ObserveQueueWait(time.Duration) {}

var (
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = Nop{}
)
