package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/weisyn/consolidator/internal/config/api"
	"github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/internal/config/event"
	"github.com/weisyn/consolidator/internal/config/log"
	"github.com/weisyn/consolidator/internal/config/notecache"
	"github.com/weisyn/consolidator/internal/config/simulator"
	"github.com/weisyn/consolidator/internal/config/storage/badger"
	"github.com/weisyn/consolidator/internal/config/storage/memory"
	"github.com/weisyn/consolidator/internal/config/storage/redis"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	"github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// defaultDataDir 默认数据目录
const defaultDataDir = "./data"

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// LoadFile 从 JSON 文件加载应用配置
//
// 文件不存在时返回空配置（全部使用默认值）；解析失败返回错误。
func LoadFile(path string) (*types.AppConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.AppConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return &appConfig, nil
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// GetEvent 获取事件总线配置
func (p *Provider) GetEvent() *event.EventOptions {
	return event.New(p.appConfig.Event).GetOptions()
}

// GetMemoryStore 获取内存缓存配置
func (p *Provider) GetMemoryStore() *memory.MemoryOptions {
	var userConfig *types.UserMemoryConfig
	if p.appConfig.Storage != nil {
		userConfig = p.appConfig.Storage.Memory
	}
	return memory.New(userConfig).GetOptions()
}

// GetBadger 获取 BadgerDB 配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	var userConfig *types.UserBadgerConfig
	if p.appConfig.Storage != nil {
		userConfig = p.appConfig.Storage.Badger
	}
	return badger.New(userConfig, p.GetDataDir()).GetOptions()
}

// GetRedis 获取 Redis 配置
func (p *Provider) GetRedis() *redis.RedisOptions {
	var userConfig *types.UserRedisConfig
	if p.appConfig.Storage != nil {
		userConfig = p.appConfig.Storage.Redis
	}
	return redis.New(userConfig).GetOptions()
}

// GetNoteCache 获取票据快照缓存配置
func (p *Provider) GetNoteCache() *notecache.NoteCacheOptions {
	return notecache.New(p.appConfig.NoteCache).GetOptions()
}

// GetConsolidation 获取合并调度配置
func (p *Provider) GetConsolidation() *consolidation.ConsolidationOptions {
	return consolidation.New(p.appConfig.Consolidation).GetOptions()
}

// GetMonitor 获取自动合并监控配置
func (p *Provider) GetMonitor() *consolidation.MonitorOptions {
	return consolidation.NewMonitor(p.appConfig.Monitor).GetOptions()
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetSimulator 获取账本模拟器配置
func (p *Provider) GetSimulator() *simulator.SimulatorOptions {
	return simulator.New(p.appConfig.Simulator).GetOptions()
}

// GetAppConfig 获取原始应用配置
func (p *Provider) GetAppConfig() *types.AppConfig {
	return p.appConfig
}

// GetDataDir 获取数据目录（绝对路径）
func (p *Provider) GetDataDir() string {
	dir := defaultDataDir
	if p.appConfig.DataDir != nil && *p.appConfig.DataDir != "" {
		dir = *p.appConfig.DataDir
	}
	return utils.ResolveDataPath(dir)
}

// Validate 校验所有带约束的配置段
func (p *Provider) Validate() error {
	var errs []error
	if err := log.New(p.appConfig.Log).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if err := consolidation.New(p.appConfig.Consolidation).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("consolidation: %w", err))
	}
	if err := consolidation.NewMonitor(p.appConfig.Monitor).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("monitor: %w", err))
	}
	if err := notecache.New(p.appConfig.NoteCache).Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := simulator.New(p.appConfig.Simulator).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulator: %w", err))
	}
	return errors.Join(errs...)
}
