// Package redis 提供 Redis 客户端的创建与连通性检查
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisconfig "github.com/weisyn/consolidator/internal/config/storage/redis"
	log "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// pingTimeout 建连时的连通性检查超时
const pingTimeout = 3 * time.Second

// NewClient 创建 Redis 客户端并执行一次 PING
func NewClient(ctx context.Context, options *redisconfig.RedisOptions, logger log.Logger) (goredis.UniversalClient, error) {
	if options == nil {
		return nil, fmt.Errorf("redis 配置不能为空")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         options.Addr,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 redis %s 失败: %w", options.Addr, err)
	}
	if logger != nil {
		logger.Infof("[Redis] 已连接 addr=%s db=%d", options.Addr, options.DB)
	}
	return client, nil
}
