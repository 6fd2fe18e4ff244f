// Package event 提供事件总线接口定义
//
// 🎯 **事件总线 (Event Bus)**
//
// 调度器通过事件总线广播进度、运行结果与监控建议，
// 订阅者（API、CLI、自动执行器）与调度器之间不直接耦合。
package event

import "github.com/weisyn/consolidator/pkg/types"

// EventType 兼容别名
type EventType = types.EventType

// Event 事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Data 返回事件数据
	Data() interface{}
}

// EventBus 事件总线接口
//
// handler 为任意函数，参数需与 Publish 的参数列表一致。
type EventBus interface {
	// Subscribe 订阅事件
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// SubscribeOnce 一次性订阅事件
	SubscribeOnce(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// PublishEvent 发布Event接口类型事件
	PublishEvent(event Event)
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool
}
