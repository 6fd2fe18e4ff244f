// Package types provides event type definitions.
package types

// EventType 事件类型
type EventType string

// 合并调度事件
const (
	// EventTypeConsolidationProgress 合并进度（参数：ProgressEvent）
	EventTypeConsolidationProgress EventType = "consolidation.progress"

	// EventTypeConsolidationFinished 单次运行结束（参数：*RunSummary, error）
	EventTypeConsolidationFinished EventType = "consolidation.finished"

	// EventTypeConsolidationAdvisory 监控器建议合并（参数：*Advisory）
	EventTypeConsolidationAdvisory EventType = "consolidation.advisory"

	// EventTypeNoteCacheInvalidated 票据缓存失效（参数：WalletID）
	EventTypeNoteCacheInvalidated EventType = "notes.cache_invalidated"
)
