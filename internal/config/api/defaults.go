package api

import "time"

const (
	defaultEnabled       = true
	defaultHost          = "127.0.0.1"
	defaultPort          = 8089
	defaultEnableMetrics = true

	// 合并运行会阻塞到所有轮次确认，写超时需要覆盖整次运行
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)
