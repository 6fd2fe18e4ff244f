// Package storage 提供存储接口定义
//
// 🧠 **内存存储 (Memory Storage)**
//
// 票据快照缓存的进程内实现基于此接口（BigCache），
// 支持 TTL 过期和按前缀批量失效（用于 InvalidateNoteCache）。
package storage

import (
	"context"
	"time"
)

// MemoryStore 定义了通用的内存缓存接口
type MemoryStore interface {
	// Get 获取缓存值，返回值、是否存在及可能的错误
	Get(ctx context.Context, key string) (value []byte, exists bool, err error)

	// Set 设置缓存值，ttl 为 0 表示永不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除指定键的缓存，键不存在时不返回错误
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在（已过期视为不存在）
	Exists(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix 删除所有以 prefix 开头的键，返回删除数量
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	// Count 返回当前键数量
	Count(ctx context.Context) (int64, error)

	// Close 释放缓存资源
	Close() error
}
