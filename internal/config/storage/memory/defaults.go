package memory

import "time"

// 内存存储默认配置值
const (
	// defaultMaxMemory 默认最大内存使用量为64MB
	defaultMaxMemory = 64 << 20

	// defaultMaxEntries 默认窗口内最大条目数
	defaultMaxEntries = 10000

	// defaultDefaultTTL 默认TTL；票据快照只需在两次失效之间有效
	defaultDefaultTTL = 10 * time.Minute

	// defaultCleanupInterval 默认清理间隔
	defaultCleanupInterval = time.Minute
)
