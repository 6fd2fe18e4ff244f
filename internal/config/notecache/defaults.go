package notecache

import "time"

const (
	defaultBackend = BackendMemory

	// defaultTTL 调度器每轮都会先失效缓存，TTL 只约束监控器等只读方
	defaultTTL = 15 * time.Second
)
