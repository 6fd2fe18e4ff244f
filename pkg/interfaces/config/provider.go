// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/consolidator/internal/config/api"
	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	logconfig "github.com/weisyn/consolidator/internal/config/log"
	notecacheconfig "github.com/weisyn/consolidator/internal/config/notecache"
	simulatorconfig "github.com/weisyn/consolidator/internal/config/simulator"
	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/consolidator/internal/config/storage/memory"
	redisconfig "github.com/weisyn/consolidator/internal/config/storage/redis"
	"github.com/weisyn/consolidator/pkg/types"
)

// Provider 配置提供者接口
//
// 每个 Get 方法都返回"默认值 + 用户覆盖"后的完整配置选项。
type Provider interface {
	// === 基础设施配置 ===

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions
	// GetEvent 获取事件总线配置
	GetEvent() *eventconfig.EventOptions
	// GetMemoryStore 获取内存缓存配置
	GetMemoryStore() *memoryconfig.MemoryOptions
	// GetBadger 获取 BadgerDB 配置
	GetBadger() *badgerconfig.BadgerOptions
	// GetRedis 获取 Redis 配置
	GetRedis() *redisconfig.RedisOptions

	// === 业务配置 ===

	// GetNoteCache 获取票据快照缓存配置
	GetNoteCache() *notecacheconfig.NoteCacheOptions
	// GetConsolidation 获取合并调度配置
	GetConsolidation() *consolidationconfig.ConsolidationOptions
	// GetMonitor 获取自动合并监控配置
	GetMonitor() *consolidationconfig.MonitorOptions
	// GetAPI 获取 API 配置
	GetAPI() *apiconfig.APIOptions
	// GetSimulator 获取账本模拟器配置
	GetSimulator() *simulatorconfig.SimulatorOptions

	// === 应用信息 ===

	// GetAppConfig 获取原始应用配置
	GetAppConfig() *types.AppConfig
	// GetDataDir 获取数据目录
	GetDataDir() string

	// Validate 校验配置（无效时长、越界阈值、未知枚举值）
	Validate() error
}
