// Package notecache 提供票据快照缓存配置
package notecache

import (
	"fmt"
	"time"

	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// Backend 快照缓存后端
type Backend string

const (
	BackendMemory Backend = "memory" // 进程内 BigCache
	BackendRedis  Backend = "redis"  // 多实例共享
	BackendNone   Backend = "none"   // 不缓存，每次直接读账本
)

// NoteCacheOptions 票据快照缓存配置选项
type NoteCacheOptions struct {
	Backend Backend       `json:"backend"`
	TTL     time.Duration `json:"ttl"`
}

// Config 票据快照缓存配置实现
type Config struct {
	options *NoteCacheOptions
	err     error
}

// New 创建票据快照缓存配置
func New(userConfig interface{}) *Config {
	c := &Config{options: &NoteCacheOptions{Backend: defaultBackend, TTL: defaultTTL}}
	uc, ok := userConfig.(*configtypes.UserNoteCacheConfig)
	if !ok || uc == nil {
		return c
	}
	if uc.Backend != nil {
		switch b := Backend(*uc.Backend); b {
		case BackendMemory, BackendRedis, BackendNone:
			c.options.Backend = b
		default:
			c.err = fmt.Errorf("未知的 note_cache.backend: %q", *uc.Backend)
		}
	}
	if uc.TTL != nil {
		d, err := utils.ParseDurationOr(*uc.TTL, c.options.TTL)
		if err != nil {
			c.err = fmt.Errorf("note_cache.ttl: %w", err)
		} else {
			c.options.TTL = d
		}
	}
	return c
}

// GetOptions 获取完整的缓存配置选项
func (c *Config) GetOptions() *NoteCacheOptions {
	return c.options
}

// Validate 返回解析阶段的错误
func (c *Config) Validate() error {
	return c.err
}
