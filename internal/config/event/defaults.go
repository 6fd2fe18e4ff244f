package event

// 事件系统默认配置值
const (
	// defaultEnabled 默认启用事件系统；进度与合并建议都经由事件总线分发
	defaultEnabled = true

	// defaultMaxSubscribers 默认单主题最大订阅者数量
	defaultMaxSubscribers = 100
)
