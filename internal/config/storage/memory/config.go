package memory

import (
	"time"

	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// MemoryOptions 内存存储（BigCache）配置选项
type MemoryOptions struct {
	// === 基础配置 ===
	MaxMemory  int64         `json:"max_memory"`  // 最大内存使用量（字节）
	MaxEntries int           `json:"max_entries"` // 窗口内最大条目数（预分配依据）
	DefaultTTL time.Duration `json:"default_ttl"` // 默认TTL（BigCache LifeWindow）

	// === 清理配置 ===
	CleanupInterval time.Duration `json:"cleanup_interval"` // 清理间隔（BigCache CleanWindow）
}

// Config 内存存储配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建内存存储配置实现
func New(userConfig interface{}) *Config {
	options := createDefaultMemoryOptions()
	if mc, ok := userConfig.(*configtypes.UserMemoryConfig); ok && mc != nil {
		applyUserConfig(options, mc)
	}
	return &Config{options: options}
}

// NewFromOptions 从已有选项创建配置
func NewFromOptions(options *MemoryOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

// createDefaultMemoryOptions 创建默认内存存储配置
func createDefaultMemoryOptions() *MemoryOptions {
	return &MemoryOptions{
		MaxMemory:       defaultMaxMemory,
		MaxEntries:      defaultMaxEntries,
		DefaultTTL:      defaultDefaultTTL,
		CleanupInterval: defaultCleanupInterval,
	}
}

// applyUserConfig 只处理配置文件中实际出现的字段；无效时长保留默认值
func applyUserConfig(options *MemoryOptions, mc *configtypes.UserMemoryConfig) {
	if mc.MaxEntries != nil && *mc.MaxEntries > 0 {
		options.MaxEntries = *mc.MaxEntries
	}
	if mc.DefaultTTL != nil {
		if d, err := utils.ParseDurationOr(*mc.DefaultTTL, options.DefaultTTL); err == nil && d > 0 {
			options.DefaultTTL = d
		}
	}
	if mc.CleanupInterval != nil {
		if d, err := utils.ParseDurationOr(*mc.CleanupInterval, options.CleanupInterval); err == nil {
			options.CleanupInterval = d
		}
	}
}

// GetOptions 获取完整的内存存储配置选项
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

// GetMaxMemoryMB 获取最大内存（MB，BigCache HardMaxCacheSize）
func (c *Config) GetMaxMemoryMB() int {
	return int(c.options.MaxMemory >> 20)
}

// GetDefaultTTL 获取默认TTL
func (c *Config) GetDefaultTTL() time.Duration {
	return c.options.DefaultTTL
}

// GetCleanupInterval 获取清理间隔
func (c *Config) GetCleanupInterval() time.Duration {
	return c.options.CleanupInterval
}

// GetMaxEntriesInWindow 获取窗口内最大条目数
// 限制在 10000 以内，减少 BigCache 预分配内存
func (c *Config) GetMaxEntriesInWindow() int {
	if c.options.MaxEntries > 10000 {
		return 10000
	}
	return c.options.MaxEntries
}

// GetMaxEntrySize 获取最大条目大小（字节）
// 票据快照经 snappy 压缩后通常远小于该值
func (c *Config) GetMaxEntrySize() int {
	return 64 * 1024
}
