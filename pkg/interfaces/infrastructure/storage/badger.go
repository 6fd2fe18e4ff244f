package storage

import (
	"context"
)

// BadgerStore 定义基于 BadgerDB 的持久化键值存储接口
//
// 用于合并回执日志：按前缀组织 wallet/asset/run/round 键。
type BadgerStore interface {
	// Close 关闭BadgerDB数据库连接
	// 确保所有待处理的事务被提交，数据被正确写入磁盘
	Close() error

	// Get 获取指定键的值
	// 如果键不存在，返回nil值和nil错误
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 设置键值对，已存在时覆盖
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除指定键的值，键不存在时不返回错误
	Delete(ctx context.Context, key []byte) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// PrefixScan 按前缀扫描，返回有序的键值对
	PrefixScan(ctx context.Context, prefix []byte) ([]KV, error)

	// RunInTransaction 在单个读写事务中执行 fn，fn 返回错误时回滚
	RunInTransaction(ctx context.Context, fn func(tx BadgerTransaction) error) error
}

// KV 有序扫描结果项
type KV struct {
	Key   []byte
	Value []byte
}

// BadgerTransaction 事务内操作
type BadgerTransaction interface {
	// Get 获取值，键不存在时返回 nil, nil
	Get(key []byte) ([]byte, error)
	// Set 设置值
	Set(key, value []byte) error
	// Delete 删除键
	Delete(key []byte) error
	// Exists 检查键是否存在
	Exists(key []byte) (bool, error)
}
