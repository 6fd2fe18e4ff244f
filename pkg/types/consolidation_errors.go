// Package types 定义合并调度相关的错误类型
package types

import (
	"errors"
	"fmt"
)

// ErrorKind 合并调度错误分类
type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindConcurrentRunRejected 同一 (钱包, 资产) 已有运行中的合并
	ErrorKindConcurrentRunRejected
	// ErrorKindMergeSubmissionFailed 合并提交或确认失败
	ErrorKindMergeSubmissionFailed
	// ErrorKindLedgerSyncFailed 选批前的账本扫描失败或视图仍是旧状态
	ErrorKindLedgerSyncFailed
	// ErrorKindPlanStale 预计算计划中的票据已不再可用
	ErrorKindPlanStale
	// ErrorKindInvalidRequest 请求参数无效
	ErrorKindInvalidRequest
)

// String 实现 fmt.Stringer
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConcurrentRunRejected:
		return "concurrent_run_rejected"
	case ErrorKindMergeSubmissionFailed:
		return "merge_submission_failed"
	case ErrorKindLedgerSyncFailed:
		return "ledger_sync_failed"
	case ErrorKindPlanStale:
		return "plan_stale"
	case ErrorKindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// 哨兵错误，配合 errors.Is 使用
var (
	ErrConcurrentRunRejected = errors.New("consolidation: run already in progress")
	ErrMergeSubmissionFailed = errors.New("consolidation: merge submission failed")
	ErrLedgerSyncFailed      = errors.New("consolidation: ledger sync failed")
	ErrPlanStale             = errors.New("consolidation: plan is stale")
	ErrInvalidRequest        = errors.New("consolidation: invalid request")
)

var kindSentinels = map[ErrorKind]error{
	ErrorKindConcurrentRunRejected: ErrConcurrentRunRejected,
	ErrorKindMergeSubmissionFailed: ErrMergeSubmissionFailed,
	ErrorKindLedgerSyncFailed:      ErrLedgerSyncFailed,
	ErrorKindPlanStale:             ErrPlanStale,
	ErrorKindInvalidRequest:        ErrInvalidRequest,
}

// ConsolidationError 合并调度错误
type ConsolidationError struct {
	Kind   ErrorKind
	Wallet WalletID
	Asset  AssetID
	Round  uint32 // 出错时所在轮次（0 表示选批之前）
	Err    error  // 底层原因
}

// NewConsolidationError 创建合并调度错误
func NewConsolidationError(kind ErrorKind, wallet WalletID, asset AssetID, round uint32, cause error) *ConsolidationError {
	return &ConsolidationError{Kind: kind, Wallet: wallet, Asset: asset, Round: round, Err: cause}
}

// Error 实现 error 接口
func (e *ConsolidationError) Error() string {
	msg := fmt.Sprintf("consolidation %s (wallet=%s asset=%s round=%d)", e.Kind, e.Wallet, e.Asset, e.Round)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 返回底层原因
func (e *ConsolidationError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrXxx) 按错误分类匹配
func (e *ConsolidationError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf 提取错误分类；非 ConsolidationError 返回 ErrorKindUnknown
func KindOf(err error) ErrorKind {
	var ce *ConsolidationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindUnknown
}
