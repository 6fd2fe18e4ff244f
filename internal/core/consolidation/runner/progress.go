package runner

import (
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// emitProgress 把进度同时发给调用方观察者与事件总线
//
// 观察者或总线订阅者 panic 只记录日志，运行继续。
func (s *Service) emitProgress(observer consolidation.ProgressObserver, event types.ProgressEvent) {
	if observer != nil {
		s.safeNotify("observer", func() { observer.OnProgress(event) })
	}
	if s.eventBus != nil {
		s.safeNotify("eventbus", func() { s.eventBus.Publish(types.EventTypeConsolidationProgress, event) })
	}
}

func (s *Service) safeNotify(target string, fn func()) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Warnf("[ConsolidationRunner] 进度通知 panic 已恢复 target=%s: %v", target, r)
		}
	}()
	fn()
}

// publishFinished 发布运行结束事件
func (s *Service) publishFinished(summary *types.RunSummary, err error) {
	if s.eventBus == nil {
		return
	}
	s.safeNotify("eventbus", func() {
		s.eventBus.Publish(types.EventTypeConsolidationFinished, summary, err)
	})
}
