// Package memory 提供基于BigCache的内存缓存实现
package memory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	memoryconfig "github.com/weisyn/consolidator/internal/config/storage/memory"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// TTL前缀，用于在缓存键中存储TTL信息
const ttlPrefix = "_ttl_"

// Store 实现了MemoryStore接口，基于BigCache提供内存缓存功能
//
// BigCache 只支持全局 LifeWindow，单键 TTL 通过 ttlPrefix 影子键记录过期时间；
// keySet 维护键集合以支持按前缀删除。
type Store struct {
	cache  *bigcache.BigCache
	logger log.Logger
	mutex  sync.Mutex
	closed bool
	keySet map[string]struct{}
	now    func() time.Time
}

// New 创建一个新的BigCache内存存储实例
func New(config *memoryconfig.Config, logger log.Logger) (*Store, error) {
	if config == nil {
		config = memoryconfig.New(nil)
	}

	bigCacheConfig := bigcache.DefaultConfig(config.GetDefaultTTL())
	bigCacheConfig.MaxEntriesInWindow = config.GetMaxEntriesInWindow()
	bigCacheConfig.MaxEntrySize = config.GetMaxEntrySize()
	bigCacheConfig.HardMaxCacheSize = config.GetMaxMemoryMB()
	bigCacheConfig.Shards = 64
	bigCacheConfig.CleanWindow = config.GetCleanupInterval()
	bigCacheConfig.Verbose = false

	cache, err := bigcache.New(context.Background(), bigCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &Store{
		cache:  cache,
		logger: logger,
		keySet: make(map[string]struct{}),
		now:    time.Now,
	}, nil
}

// Close 关闭缓存并释放资源
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("关闭内存存储")
	}
	err := s.cache.Close()
	if err == nil {
		s.closed = true
	}
	return err
}

// isExpiredLocked 检查键的影子TTL是否已过期
func (s *Store) isExpiredLocked(key string) bool {
	raw, err := s.cache.Get(ttlPrefix + key)
	if err != nil || len(raw) != 8 {
		return false
	}
	expiresAt := int64(binary.LittleEndian.Uint64(raw))
	return s.now().UnixNano() > expiresAt
}

// dropLocked 删除键及其影子TTL
func (s *Store) dropLocked(key string) {
	_ = s.cache.Delete(key)
	_ = s.cache.Delete(ttlPrefix + key)
	delete(s.keySet, key)
}

// Get 获取缓存值
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isExpiredLocked(key) {
		s.dropLocked(key)
		return nil, false, nil
	}

	value, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		delete(s.keySet, key)
		return nil, false, nil
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("获取缓存键[%s]失败: %v", key, err)
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set 设置缓存值，可指定过期时间
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.cache.Set(key, value); err != nil {
		if s.logger != nil {
			s.logger.Warnf("设置缓存键[%s]失败: %v", key, err)
		}
		return err
	}
	s.keySet[key] = struct{}{}

	if ttl <= 0 {
		// 永不过期（仍受 BigCache LifeWindow 约束），删除可能存在的过期记录
		_ = s.cache.Delete(ttlPrefix + key)
		return nil
	}
	expirationBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(expirationBytes, uint64(s.now().Add(ttl).UnixNano()))
	if err := s.cache.Set(ttlPrefix+key, expirationBytes); err != nil {
		return fmt.Errorf("设置缓存键[%s]的TTL失败: %w", key, err)
	}
	return nil
}

// Delete 删除缓存项
func (s *Store) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.dropLocked(key)
	return nil
}

// Exists 检查键是否存在
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// DeleteByPrefix 删除所有以 prefix 开头的键
func (s *Store) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var deleted int64
	for key := range s.keySet {
		if strings.HasPrefix(key, prefix) {
			s.dropLocked(key)
			deleted++
		}
	}
	return deleted, nil
}

// Count 返回当前键数量（不含影子TTL键）
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return int64(len(s.keySet)), nil
}

var _ storage.MemoryStore = (*Store)(nil)
