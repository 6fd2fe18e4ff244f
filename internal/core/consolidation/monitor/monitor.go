// Package monitor 实现自动合并监控器
//
// 监控器周期性评估被关注的 (钱包, 资产) 对是否需要合并，只负责检测：
// 满足建议条件时调用回调并发布 consolidation.advisory 事件，从不自行启动合并。
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/internal/core/consolidation/metrics"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

// 建议原因
const (
	ReasonFragmentation = "fragmentation_score"
	ReasonNoteCount     = "note_count"
	ReasonDustNotes     = "dust_notes"
)

// evaluationTimeout 单次评估的超时
const evaluationTimeout = 30 * time.Second

// RunStateReader 读取运行状态（运行中的对不做评估）
type RunStateReader interface {
	IsRunning(wallet types.WalletID, asset types.AssetID) bool
}

// Deps 监控器依赖
type Deps struct {
	Scanner consolidation.NoteScanner
	Options *consolidationconfig.MonitorOptions

	// 以下均可为空
	Runs     RunStateReader
	Scorer   consolidation.FragmentationScorer
	Callback consolidation.AdvisoryCallback
	EventBus event.EventBus
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   log.Logger
}

// Monitor 自动合并监控器
type Monitor struct {
	scanner  consolidation.NoteScanner
	options  *consolidationconfig.MonitorOptions
	runs     RunStateReader
	scorer   consolidation.FragmentationScorer
	callback consolidation.AdvisoryCallback
	eventBus event.EventBus
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   log.Logger

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}

	evalMu   sync.Mutex
	lastEval time.Time
}

// New 创建监控器（初始为 Disabled）
func New(deps Deps) (*Monitor, error) {
	if deps.Scanner == nil {
		return nil, errors.New("note scanner 不能为空")
	}
	options := deps.Options
	if options == nil {
		options = consolidationconfig.DefaultMonitorOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("监控配置无效: %w", err)
	}
	m := &Monitor{
		scanner:  deps.Scanner,
		options:  options,
		runs:     deps.Runs,
		scorer:   deps.Scorer,
		callback: deps.Callback,
		eventBus: deps.EventBus,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
	if m.scorer == nil {
		m.scorer = DefaultScorer
	}
	if m.clock == nil {
		m.clock = clockimpl.NewSystemClock()
	}
	return m, nil
}

// SetCallback 替换建议回调（fx 装配自动执行器时使用）
func (m *Monitor) SetCallback(cb consolidation.AdvisoryCallback) {
	m.mu.Lock()
	m.callback = cb
	m.mu.Unlock()
}

// Enable 启动周期性评估；已启用时为空操作
//
// 后台协程不继承 ctx 的取消，只由 Disable 停止。
func (m *Monitor) Enable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enabled {
		return nil
	}
	if m.options.PollInterval <= 0 {
		return fmt.Errorf("poll_interval 必须为正数: %s", m.options.PollInterval)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.enabled = true
	go m.loop(loopCtx, m.done)

	if m.logger != nil {
		m.logger.Infof("[ConsolidationMonitor] ✅ 自动合并监控已启用 interval=%s watch=%d",
			m.options.PollInterval, len(m.options.Watch))
	}
	return nil
}

// Disable 停止周期性评估并等待后台协程退出；不影响运行中的合并
func (m *Monitor) Disable() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = false
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	cancel()
	<-done
	if m.logger != nil {
		m.logger.Info("[ConsolidationMonitor] 自动合并监控已停用")
	}
}

// Enabled 当前是否启用
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// LastEvaluation 最近一次评估时间
func (m *Monitor) LastEvaluation() time.Time {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()
	return m.lastEval
}

// Options 生效的监控配置
func (m *Monitor) Options() *consolidationconfig.MonitorOptions {
	return m.options
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := m.clock.NewTicker(m.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			evalCtx, cancel := context.WithTimeout(ctx, evaluationTimeout)
			if _, err := m.CheckNow(evalCtx); err != nil && m.logger != nil {
				m.logger.Warnf("[ConsolidationMonitor] 周期评估失败: %v", err)
			}
			cancel()
		}
	}
}

// CheckNow 立即评估所有关注对
//
// 返回已评估的结果（运行中的对被跳过）；单个对扫描失败不影响其余对，错误合并返回。
// 仅在 Enabled 时对建议合并的结果调用回调并发布事件。
func (m *Monitor) CheckNow(ctx context.Context) ([]*types.Advisory, error) {
	m.evalMu.Lock()
	defer m.evalMu.Unlock()

	now := m.clock.Now()
	m.lastEval = now

	m.mu.Lock()
	act := m.enabled
	callback := m.callback
	m.mu.Unlock()

	var (
		results []*types.Advisory
		errs    []error
	)
	for _, w := range m.options.Watch {
		if m.runs != nil && m.runs.IsRunning(w.Wallet, w.Asset) {
			m.metrics.Evaluated("skipped", now)
			continue
		}

		notes, err := m.scanner.ScanNotes(ctx, w.Wallet, w.Asset)
		if err != nil {
			m.metrics.Evaluated("error", now)
			errs = append(errs, fmt.Errorf("scan %s/%s: %w", w.Wallet, w.Asset, err))
			continue
		}

		advisory := m.Evaluate(w.Wallet, w.Asset, notes, now)
		results = append(results, advisory)

		if !advisory.Advised() {
			m.metrics.Evaluated("healthy", now)
			continue
		}
		m.metrics.Evaluated("advised", now)
		if m.logger != nil {
			m.logger.Infof("[ConsolidationMonitor] 建议合并 wallet=%s asset=%s notes=%d dust=%d score=%d reasons=%v",
				w.Wallet, w.Asset, advisory.NoteCount, advisory.DustCount, advisory.FragmentationScore, advisory.Reasons)
		}
		if act {
			m.notify(ctx, callback, advisory)
		}
	}
	return results, errors.Join(errs...)
}

// Evaluate 按阈值评估一组票据（纯计算，不触发回调）
func (m *Monitor) Evaluate(wallet types.WalletID, asset types.AssetID, notes []types.Note, at time.Time) *types.Advisory {
	opts := m.options
	advisory := &types.Advisory{
		Wallet:      wallet,
		Asset:       asset,
		NoteCount:   len(notes),
		Reasons:     []string{},
		EvaluatedAt: at,
	}
	for i := range notes {
		if notes[i].Amount.Lt(&opts.DustAmountFloor) {
			advisory.DustCount++
		}
	}
	advisory.FragmentationScore = m.scorer.Score(notes)

	// 少于 2 张票据无从合并
	if advisory.NoteCount < 2 {
		return advisory
	}
	if advisory.FragmentationScore >= opts.FragmentationThreshold {
		advisory.Reasons = append(advisory.Reasons, ReasonFragmentation)
	}
	if advisory.NoteCount > opts.MaxNoteCount {
		advisory.Reasons = append(advisory.Reasons, ReasonNoteCount)
	}
	if advisory.DustCount > opts.MaxDustNotes {
		advisory.Reasons = append(advisory.Reasons, ReasonDustNotes)
	}
	return advisory
}

func (m *Monitor) notify(ctx context.Context, callback consolidation.AdvisoryCallback, advisory *types.Advisory) {
	defer func() {
		if r := recover(); r != nil && m.logger != nil {
			m.logger.Warnf("[ConsolidationMonitor] 建议回调 panic 已恢复: %v", r)
		}
	}()
	if m.eventBus != nil {
		m.eventBus.Publish(types.EventTypeConsolidationAdvisory, advisory)
	}
	if callback != nil {
		callback(ctx, advisory)
	}
}

var _ consolidation.Monitor = (*Monitor)(nil)
