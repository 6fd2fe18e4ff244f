// Package redis 提供 Redis 连接配置
package redis

import (
	configtypes "github.com/weisyn/consolidator/pkg/types"
)

// RedisOptions Redis 配置选项（共享票据快照缓存后端）
type RedisOptions struct {
	Addr      string `json:"addr"`
	Password  string `json:"-"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// Config Redis 配置实现
type Config struct {
	options *RedisOptions
}

// New 创建 Redis 配置实现
func New(userConfig interface{}) *Config {
	options := &RedisOptions{
		Addr:      defaultAddr,
		DB:        defaultDB,
		KeyPrefix: defaultKeyPrefix,
	}
	if rc, ok := userConfig.(*configtypes.UserRedisConfig); ok && rc != nil {
		if rc.Addr != nil {
			options.Addr = *rc.Addr
		}
		if rc.Password != nil {
			options.Password = *rc.Password
		}
		if rc.DB != nil {
			options.DB = *rc.DB
		}
		if rc.KeyPrefix != nil {
			options.KeyPrefix = *rc.KeyPrefix
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整的 Redis 配置选项
func (c *Config) GetOptions() *RedisOptions {
	return c.options
}
