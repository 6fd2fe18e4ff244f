package consolidation

import (
	"context"
	"time"

	"github.com/weisyn/consolidator/pkg/types"
)

// ============================================================================
//                              进度通知
// ============================================================================

// ProgressObserver 进度观察者
//
// 即发即忘：实现不应阻塞，panic 会被调度器恢复并记录，不会中断运行。
type ProgressObserver interface {
	OnProgress(event types.ProgressEvent)
}

// ProgressFunc 函数适配器
type ProgressFunc func(event types.ProgressEvent)

// OnProgress 实现 ProgressObserver
func (f ProgressFunc) OnProgress(event types.ProgressEvent) {
	if f != nil {
		f(event)
	}
}

// ============================================================================
//                              合并运行
// ============================================================================

// RunRequest 合并运行请求
type RunRequest struct {
	Wallet types.WalletID
	Asset  types.AssetID

	// Target 为 nil 表示合并到最少票据数
	Target *types.ConsolidationTarget

	// MaxIterations 最大合并轮数，0 表示使用配置默认值
	MaxIterations uint32

	// Observer 可选的进度观察者
	Observer ProgressObserver
}

// SingleBatchRequest 执行预计算计划中的单个批次
type SingleBatchRequest struct {
	Wallet   types.WalletID
	Asset    types.AssetID
	Plan     *types.ConsolidationPlan
	Index    int
	Observer ProgressObserver
}

// Runner 合并调度服务
//
// 同一 (钱包, 资产) 同时最多只有一个运行；不同资产可并发。
type Runner interface {
	// Run 驱动合并循环直至终止条件、迭代上限或错误
	//
	// 未收敛（达到迭代上限）以 OutcomeNotConverged 返回，error 为 nil。
	// 合并或扫描失败时同时返回部分进度摘要与错误。
	Run(ctx context.Context, req RunRequest) (*types.RunSummary, error)

	// RunSingleBatch 只执行计划中的第 Index 个批次，不做循环与估算
	RunSingleBatch(ctx context.Context, req SingleBatchRequest) (*types.MergeReceipt, error)

	// State 返回当前（或最近一次）运行状态
	State(wallet types.WalletID, asset types.AssetID) types.RunState

	// IsRunning 是否有运行中的合并
	IsRunning(wallet types.WalletID, asset types.AssetID) bool
}

// ============================================================================
//                              自动合并监控
// ============================================================================

// AdvisoryCallback 监控器在建议合并时调用的回调
type AdvisoryCallback func(ctx context.Context, advisory *types.Advisory)

// Monitor 自动合并监控器
//
// 只负责"检测"，不负责"执行"：监控器从不自行启动合并运行。
type Monitor interface {
	// Enable 启动周期性评估；已启用时为空操作
	Enable(ctx context.Context) error

	// Disable 停止周期性评估并等待后台协程退出，不影响运行中的合并
	Disable()

	// Enabled 当前是否启用
	Enabled() bool

	// CheckNow 立即执行一次评估，返回所有 (钱包, 资产) 对的评估结果
	CheckNow(ctx context.Context) ([]*types.Advisory, error)

	// LastEvaluation 最近一次评估时间，零值表示尚未评估
	LastEvaluation() time.Time
}
