package badger

// BadgerDB存储默认配置值
const (
	// defaultPath 默认数据库路径（相对路径按 ResolveDataPath 解析）
	defaultPath = "./data/journal"

	// defaultInMemory 默认落盘
	defaultInMemory = false

	// defaultSyncWrites 回执日志只做审计，不要求同步写入
	defaultSyncWrites = false

	// defaultMemTableSize 默认内存表大小为16MB
	defaultMemTableSize = 16 << 20
)
