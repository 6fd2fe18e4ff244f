// Package runner 实现合并调度的编排循环
//
// 🎯 **核心职责**：
// - 每轮：使缓存失效 → 重新扫描 → 选批 → 提交合并并等待确认 → 等待账本同步
// - 同一 (钱包, 资产) 同时只允许一个运行，不同资产可并发
// - 迭代上限保证任何票据分布下都会结束
//
// ⚠️ **核心约束**：
// - 下一轮选批只使用本轮确认之后重新获取的快照，从不复用旧快照
// - 失败不自动重试；锁在所有路径上释放
// - 运行状态只在内存中，不持久化
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/internal/core/consolidation/metrics"
	"github.com/weisyn/consolidator/internal/core/consolidation/selector"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

// errStaleView 扫描结果仍包含上一轮已合并的输入票据
var errStaleView = errors.New("ledger view does not reflect the previous merge")

// ReceiptRecorder 确认回执的审计记录器（写失败不影响运行）
type ReceiptRecorder interface {
	Record(ctx context.Context, runID string, round uint32, wallet types.WalletID, asset types.AssetID, receipt *types.MergeReceipt) error
}

// Deps 运行服务依赖
type Deps struct {
	Scanner   consolidation.NoteScanner
	Submitter consolidation.MergeSubmitter
	Options   *consolidationconfig.ConsolidationOptions

	// 以下均可为空
	Settler  Settler
	EventBus event.EventBus
	Journal  ReceiptRecorder
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   log.Logger
}

// Service 合并调度服务
type Service struct {
	scanner   consolidation.NoteScanner
	submitter consolidation.MergeSubmitter
	options   *consolidationconfig.ConsolidationOptions
	settler   Settler
	eventBus  event.EventBus
	journal   ReceiptRecorder
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    log.Logger

	locks *lockRegistry

	stateMu sync.RWMutex
	states  map[runKey]types.RunState

	newRunID func() string
}

// NewService 创建合并调度服务
func NewService(deps Deps) (*Service, error) {
	if deps.Scanner == nil {
		return nil, errors.New("note scanner 不能为空")
	}
	if deps.Submitter == nil {
		return nil, errors.New("merge submitter 不能为空")
	}
	options := deps.Options
	if options == nil {
		options = consolidationconfig.DefaultConsolidationOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("合并调度配置无效: %w", err)
	}

	s := &Service{
		scanner:   deps.Scanner,
		submitter: deps.Submitter,
		options:   options,
		settler:   deps.Settler,
		eventBus:  deps.EventBus,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		logger:    deps.Logger,
		locks:     newLockRegistry(),
		states:    make(map[runKey]types.RunState),
		newRunID:  uuid.NewString,
	}
	if s.settler == nil {
		s.settler = NewSettler(options, deps.Scanner)
	}
	if s.clock == nil {
		s.clock = clockimpl.NewSystemClock()
	}
	return s, nil
}

// FanIn 生效的扇入
func (s *Service) FanIn() int {
	return selector.ClampBatchSize(s.options.MaxBatchSize)
}

// State 返回当前（或最近一次）运行状态；从未运行时为 Idle
func (s *Service) State(wallet types.WalletID, asset types.AssetID) types.RunState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.states[runKey{wallet, asset}]
}

// IsRunning 是否有运行中的合并
func (s *Service) IsRunning(wallet types.WalletID, asset types.AssetID) bool {
	return s.locks.isHeld(runKey{wallet, asset})
}

// ActiveRuns 当前持有锁的运行数
func (s *Service) ActiveRuns() int {
	return s.locks.count()
}

func (s *Service) setState(key runKey, state types.RunState) {
	s.stateMu.Lock()
	s.states[key] = state
	s.stateMu.Unlock()
}

func (s *Service) updateState(key runKey, fn func(*types.RunState)) {
	s.stateMu.Lock()
	state := s.states[key]
	fn(&state)
	s.states[key] = state
	s.stateMu.Unlock()
}

// refresh 使缓存失效后重新扫描
func (s *Service) refresh(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error) {
	if err := s.scanner.InvalidateNoteCache(ctx, wallet); err != nil {
		return nil, fmt.Errorf("invalidate note cache: %w", err)
	}
	notes, err := s.scanner.ScanNotes(ctx, wallet, asset)
	if err != nil {
		return nil, fmt.Errorf("scan notes: %w", err)
	}
	return notes, nil
}

// record 写审计日志，失败只记录
func (s *Service) record(ctx context.Context, runID string, round uint32, wallet types.WalletID, asset types.AssetID, receipt *types.MergeReceipt) {
	if s.journal == nil || receipt == nil {
		return
	}
	if err := s.journal.Record(ctx, runID, round, wallet, asset, receipt); err != nil && s.logger != nil {
		s.logger.Warnf("[ConsolidationRunner] 写入回执日志失败 run=%s round=%d: %v", runID, round, err)
	}
}

func validateIdentity(wallet types.WalletID, asset types.AssetID) error {
	if wallet == "" {
		return types.NewConsolidationError(types.ErrorKindInvalidRequest, wallet, asset, 0, errors.New("wallet 不能为空"))
	}
	if asset == "" {
		return types.NewConsolidationError(types.ErrorKindInvalidRequest, wallet, asset, 0, errors.New("asset 不能为空"))
	}
	return nil
}
var _ consolidation.Runner = (*Service)(nil)
