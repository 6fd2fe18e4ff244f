package storage

import (
	goredis "github.com/redis/go-redis/v9"
)

// Provider 存储提供者接口
//
// 内存缓存在启动时创建；BadgerDB 与 Redis 只在首次获取时打开，
// 未启用回执日志或 Redis 缓存后端时不会占用对应资源。
type Provider interface {
	// GetMemoryStore 获取进程内缓存
	GetMemoryStore() (MemoryStore, error)
	// GetBadgerStore 获取（必要时打开）BadgerDB 存储
	GetBadgerStore() (BadgerStore, error)
	// GetRedisClient 获取（必要时创建）Redis 客户端
	GetRedisClient() (goredis.UniversalClient, error)
	// Close 关闭所有已打开的存储
	Close() error
}
