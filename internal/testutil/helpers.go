package testutil

import (
	"sync"

	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

// NewTestLogger 创建测试用日志（不输出）
func NewTestLogger() log.Logger {
	return &MockLogger{}
}

// NewTestBehavioralLogger 创建记录调用的测试日志
func NewTestBehavioralLogger() *BehavioralMockLogger {
	return &BehavioralMockLogger{logs: make([]string, 0)}
}

// RecordingObserver 记录收到的进度事件
type RecordingObserver struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

// OnProgress 实现 consolidation.ProgressObserver
func (o *RecordingObserver) OnProgress(event types.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

// Events 返回事件副本
func (o *RecordingObserver) Events() []types.ProgressEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.ProgressEvent(nil), o.events...)
}

// Phases 返回事件阶段序列
func (o *RecordingObserver) Phases() []types.Phase {
	events := o.Events()
	out := make([]types.Phase, 0, len(events))
	for _, e := range events {
		out = append(out, e.Phase)
	}
	return out
}
