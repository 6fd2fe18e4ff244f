// Package storage 提供存储管理功能
package storage

import (
	"context"
	"errors"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	redisconfig "github.com/weisyn/consolidator/internal/config/storage/redis"
	badgerstore "github.com/weisyn/consolidator/internal/core/infrastructure/storage/badger"
	redisstore "github.com/weisyn/consolidator/internal/core/infrastructure/storage/redis"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// errProviderClosed 提供者已关闭
var errProviderClosed = errors.New("存储提供者已关闭")

// Provider 实现存储提供者接口
// 管理各类存储实例并提供访问方法
type Provider struct {
	memoryStore storage.MemoryStore

	badgerConfig *badgerconfig.Config
	badgerStore  storage.BadgerStore

	redisOptions *redisconfig.RedisOptions
	redisClient  goredis.UniversalClient

	// 日志记录器
	logger log.Logger

	closed bool
	mu     sync.Mutex
}

// NewProvider 创建新的存储提供者实例
func NewProvider(
	memoryStore storage.MemoryStore,
	badgerConfig *badgerconfig.Config,
	redisOptions *redisconfig.RedisOptions,
	logger log.Logger,
) *Provider {
	return &Provider{
		memoryStore:  memoryStore,
		badgerConfig: badgerConfig,
		redisOptions: redisOptions,
		logger:       logger,
	}
}

// GetMemoryStore 获取内存存储
func (p *Provider) GetMemoryStore() (storage.MemoryStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}
	if p.memoryStore == nil {
		return nil, errors.New("内存存储未初始化")
	}
	return p.memoryStore, nil
}

// GetBadgerStore 获取BadgerDB键值存储，首次调用时打开数据库
func (p *Provider) GetBadgerStore() (storage.BadgerStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}
	if p.badgerStore != nil {
		return p.badgerStore, nil
	}
	if p.badgerConfig == nil {
		return nil, errors.New("BadgerDB 配置未提供")
	}
	store, err := badgerstore.New(p.badgerConfig, p.logger)
	if err != nil {
		return nil, err
	}
	p.badgerStore = store
	return store, nil
}

// GetRedisClient 获取Redis客户端，首次调用时建连
func (p *Provider) GetRedisClient() (goredis.UniversalClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}
	if p.redisClient != nil {
		return p.redisClient, nil
	}
	client, err := redisstore.NewClient(context.Background(), p.redisOptions, p.logger)
	if err != nil {
		return nil, err
	}
	p.redisClient = client
	return client, nil
}

// Close 关闭所有已打开的存储，单个失败不影响其余存储的关闭
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.badgerStore != nil {
		if err := p.badgerStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.memoryStore != nil {
		if err := p.memoryStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && p.logger != nil {
		p.logger.Errorf("[Storage] 关闭存储时出现错误: %v", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

var _ storage.Provider = (*Provider)(nil)
