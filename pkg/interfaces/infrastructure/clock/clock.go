// Package clock provides clock interfaces.
package clock

import "time"

// Clock 提供统一的时间源接口（基础设施层接口）
//
// 设计目标：
// - 可测试：支持可替换与Mock实现
// - 一致性：监控器的 lastEvaluation、周期评估节拍与运行摘要的时间戳来自同一时间源
type Clock interface {
	// Now 获取当前时间
	Now() time.Time

	// Since 计算从指定时间到现在的持续时间
	Since(t time.Time) time.Duration

	// NewTicker 创建按 d 周期触发的节拍器，d 必须为正数
	NewTicker(d time.Duration) Ticker
}

// Ticker 周期节拍
type Ticker interface {
	// C 节拍通道；接收方跟不上时丢弃多余节拍
	C() <-chan time.Time

	// Stop 停止节拍，不关闭通道
	Stop()
}
