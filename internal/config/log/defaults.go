package log

// 日志配置默认值
const (
	defaultLogLevel = "info"

	// defaultFilePath 为空时只写控制台
	defaultFilePath = ""

	// lumberjack 轮转
	defaultMaxSize    = 100 // MB
	defaultMaxBackups = 10
	defaultMaxAge     = 30 // 天
	defaultCompress   = true

	defaultEnableCaller     = true
	defaultEnableStacktrace = true

	// defaultEnableMultiFile 写文件时默认拆分基础设施日志与调度日志
	defaultEnableMultiFile  = true
	defaultSystemLogFile    = "system.log"
	defaultSchedulerLogFile = "scheduler.log"
)
