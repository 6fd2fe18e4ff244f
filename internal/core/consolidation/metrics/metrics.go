// Package metrics 提供合并调度的 Prometheus 指标
//
// 仅暴露少量高价值指标：运行结果、合并轮次、当前运行数、监控建议次数。
// 所有方法对 nil 接收者安全，未注入指标时调用方无需判空。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weisyn/consolidator/pkg/types"
)

const (
	namespace = "wes"
	subsystem = "consolidation"
)

// Metrics 合并调度指标集合
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	roundsTotal   *prometheus.CounterVec
	runDuration   prometheus.Histogram
	activeRuns    prometheus.Gauge
	advisories    *prometheus.CounterVec
	lastEvalUnix  prometheus.Gauge
	settleSeconds prometheus.Histogram
}

// New 创建并注册指标；reg 为 nil 时注册到默认 Registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Consolidation runs by outcome (completed, not_converged, failed, rejected).",
		}, []string{"outcome"}),
		roundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rounds_total",
			Help:      "Merge rounds submitted, by result (confirmed, failed).",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a consolidation run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_runs",
			Help:      "Number of consolidation runs currently holding a (wallet, asset) lock.",
		}),
		advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "advisories_total",
			Help:      "Monitor evaluations by verdict (advised, healthy, skipped, error).",
		}, []string{"verdict"}),
		lastEvalUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "monitor_last_evaluation_unix",
			Help:      "Unix timestamp of the last monitor evaluation.",
		}),
		settleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settle_duration_seconds",
			Help:      "Time spent waiting for the ledger view to reflect a confirmed merge.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.roundsTotal,
		m.runDuration,
		m.activeRuns,
		m.advisories,
		m.lastEvalUnix,
		m.settleSeconds,
	)
	return m
}

// RunStarted 运行获得锁
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

// RunFinished 运行结束（释放锁之后调用）
func (m *Metrics) RunFinished(outcome types.RunOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(outcome.String()).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// RunRejected 因并发运行被拒绝
func (m *Metrics) RunRejected() {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues("rejected").Inc()
}

// RoundConfirmed 一轮合并确认
func (m *Metrics) RoundConfirmed() {
	if m == nil {
		return
	}
	m.roundsTotal.WithLabelValues("confirmed").Inc()
}

// RoundFailed 一轮合并失败
func (m *Metrics) RoundFailed() {
	if m == nil {
		return
	}
	m.roundsTotal.WithLabelValues("failed").Inc()
}

// ObserveSettle 记录等待账本同步的耗时
func (m *Metrics) ObserveSettle(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.settleSeconds.Observe(elapsed.Seconds())
}

// Evaluated 记录一次监控评估结论
func (m *Metrics) Evaluated(verdict string, at time.Time) {
	if m == nil {
		return
	}
	m.advisories.WithLabelValues(verdict).Inc()
	m.lastEvalUnix.Set(float64(at.Unix()))
}
