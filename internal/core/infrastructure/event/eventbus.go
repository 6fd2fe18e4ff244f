// 基于asaskevich/EventBus的事件总线实现

package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// EventBus 是基于asaskevich/EventBus的实现
//
// 在底层总线之上增加：
//   - 配置开关（未启用时所有操作静默成功）
//   - 单主题订阅者上限
//   - 发布计数（供健康检查与测试观察）
type EventBus struct {
	bus    evbus.Bus
	config *eventconfig.Config
	logger log.Logger

	subMu       sync.Mutex
	subscribers map[event.EventType]int

	published atomic.Uint64
	running   atomic.Bool
}

// New 创建事件总线实例
// 所有事件总线实例必须通过此函数创建，确保配置被正确应用
func New(config *eventconfig.Config) *EventBus {
	if config == nil {
		config = eventconfig.New(nil)
	}
	return &EventBus{
		bus:         evbus.New(),
		config:      config,
		subscribers: make(map[event.EventType]int),
	}
}

// WithLogger 设置日志记录器
func (eb *EventBus) WithLogger(logger log.Logger) *EventBus {
	eb.logger = logger
	return eb
}

// reserve 登记一个订阅者，超出上限时拒绝
func (eb *EventBus) reserve(eventType event.EventType) error {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()
	limit := eb.config.GetMaxSubscribers()
	if limit > 0 && eb.subscribers[eventType] >= limit {
		return fmt.Errorf("事件 %s 的订阅者已达上限 %d", eventType, limit)
	}
	eb.subscribers[eventType]++
	return nil
}

func (eb *EventBus) release(eventType event.EventType) {
	eb.subMu.Lock()
	if eb.subscribers[eventType] > 0 {
		eb.subscribers[eventType]--
	}
	eb.subMu.Unlock()
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil // 如果事件系统未启用，静默成功
	}
	if err := eb.reserve(eventType); err != nil {
		return err
	}
	if err := eb.bus.Subscribe(string(eventType), handler); err != nil {
		eb.release(eventType)
		return err
	}
	return nil
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	if err := eb.reserve(eventType); err != nil {
		return err
	}
	if err := eb.bus.SubscribeAsync(string(eventType), handler, transactional); err != nil {
		eb.release(eventType)
		return err
	}
	return nil
}

// SubscribeOnce 实现一次性订阅
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	eb.published.Add(1)
	eb.bus.Publish(string(eventType), args...)
}

// PublishEvent 发布Event接口类型事件
func (eb *EventBus) PublishEvent(e event.Event) {
	if e == nil {
		return
	}
	eb.Publish(e.Type(), e.Data())
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	if err := eb.bus.Unsubscribe(string(eventType), handler); err != nil {
		return err
	}
	eb.release(eventType)
	return nil
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// PublishedCount 已发布事件数量
func (eb *EventBus) PublishedCount() uint64 {
	return eb.published.Load()
}

// Start 启动事件总线
func (eb *EventBus) Start(context.Context) error {
	if !eb.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event bus already running")
	}
	if eb.logger != nil {
		eb.logger.Infof("[EventBus] 事件总线已启动 (enabled=%v)", eb.config.IsEnabled())
	}
	return nil
}

// Stop 停止事件总线，等待异步处理完成
func (eb *EventBus) Stop(context.Context) error {
	if !eb.running.CompareAndSwap(true, false) {
		return nil
	}
	eb.WaitAsync()
	if eb.logger != nil {
		eb.logger.Infof("[EventBus] 事件总线已停止，共发布 %d 个事件", eb.published.Load())
	}
	return nil
}

// IsRunning 检查事件总线是否运行中
func (eb *EventBus) IsRunning() bool {
	return eb.running.Load()
}

var _ event.EventBus = (*EventBus)(nil)
