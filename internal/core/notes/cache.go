package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"
	goredis "github.com/redis/go-redis/v9"

	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/consolidator/pkg/types"
)

// escapeGlob 转义 redis SCAN MATCH 的通配符，使前缀按字面匹配
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnapshotCache 票据快照缓存后端
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// encodeSnapshot JSON + snappy
func encodeSnapshot(notes []types.Note) ([]byte, error) {
	if notes == nil {
		notes = []types.Note{}
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func decodeSnapshot(data []byte) ([]types.Note, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("解压快照失败: %w", err)
	}
	var notes []types.Note
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil, fmt.Errorf("解码快照失败: %w", err)
	}
	return notes, nil
}

// ============================================================================
//                              进程内缓存（BigCache）
// ============================================================================

// memorySnapshotCache 基于 MemoryStore 的快照缓存
type memorySnapshotCache struct {
	store storage.MemoryStore
}

// NewMemorySnapshotCache 创建进程内快照缓存
func NewMemorySnapshotCache(store storage.MemoryStore) SnapshotCache {
	return &memorySnapshotCache{store: store}
}

func (c *memorySnapshotCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.store.Get(ctx, key)
}

func (c *memorySnapshotCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.store.Set(ctx, key, value, ttl)
}

func (c *memorySnapshotCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	return c.store.DeleteByPrefix(ctx, prefix)
}

// ============================================================================
//                              共享缓存（Redis）
// ============================================================================

// RedisClient 快照缓存用到的 Redis 命令子集（*redis.Client 与 UniversalClient 均满足）
type RedisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// redisScanBatch 每次 SCAN 的建议条数
const redisScanBatch = 100

// redisSnapshotCache 基于 Redis 的快照缓存，键统一加前缀
type redisSnapshotCache struct {
	client RedisClient
	prefix string
}

// NewRedisSnapshotCache 创建 Redis 快照缓存
func NewRedisSnapshotCache(client RedisClient, keyPrefix string) SnapshotCache {
	return &redisSnapshotCache{client: client, prefix: keyPrefix}
}

func (c *redisSnapshotCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// DeleteByPrefix 使用 SCAN + DEL，避免 KEYS 阻塞服务端
func (c *redisSnapshotCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	match := escapeGlob(c.prefix+prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, redisScanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
