package badger

import (
	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// BadgerOptions BadgerDB存储配置选项
type BadgerOptions struct {
	// === 基础配置 ===
	Path       string `json:"path"`        // 数据库存储路径
	InMemory   bool   `json:"in_memory"`   // 纯内存模式（测试与 simulate 命令）
	SyncWrites bool   `json:"sync_writes"` // 是否同步写入

	// === 基础性能配置 ===
	MemTableSize int64 `json:"mem_table_size"` // 内存表大小
}

// Config BadgerDB配置实现
type Config struct {
	options *BadgerOptions
}

// New 创建BadgerDB配置实现
//
// userConfig 为 *types.UserBadgerConfig；dataDir 非空时默认路径为 {dataDir}/journal
func New(userConfig interface{}, dataDir string) *Config {
	options := createDefaultBadgerOptions(dataDir)
	if bc, ok := userConfig.(*configtypes.UserBadgerConfig); ok && bc != nil {
		applyUserConfig(options, bc)
	}
	return &Config{options: options}
}

// NewFromOptions 从BadgerOptions创建配置实现
func NewFromOptions(options *BadgerOptions) *Config {
	return &Config{options: options}
}

// createDefaultBadgerOptions 创建默认BadgerDB配置
func createDefaultBadgerOptions(dataDir string) *BadgerOptions {
	path := defaultPath
	if dataDir != "" {
		path = dataDir + "/journal"
	}
	return &BadgerOptions{
		Path:         utils.ResolveDataPath(path),
		InMemory:     defaultInMemory,
		SyncWrites:   defaultSyncWrites,
		MemTableSize: defaultMemTableSize,
	}
}

// applyUserConfig 应用用户配置覆盖默认值
func applyUserConfig(options *BadgerOptions, bc *configtypes.UserBadgerConfig) {
	if bc.Path != nil && *bc.Path != "" {
		options.Path = utils.ResolveDataPath(*bc.Path)
	}
	if bc.InMemory != nil {
		options.InMemory = *bc.InMemory
	}
	if bc.SyncWrites != nil {
		options.SyncWrites = *bc.SyncWrites
	}
}

// GetOptions 获取完整的BadgerDB配置选项
func (c *Config) GetOptions() *BadgerOptions {
	return c.options
}

// GetPath 获取数据库路径
func (c *Config) GetPath() string {
	return c.options.Path
}

// IsInMemory 是否纯内存模式
func (c *Config) IsInMemory() bool {
	return c.options.InMemory
}

// IsSyncWritesEnabled 是否启用同步写入
func (c *Config) IsSyncWritesEnabled() bool {
	return c.options.SyncWrites
}

// GetMemTableSize 获取内存表大小
func (c *Config) GetMemTableSize() int64 {
	return c.options.MemTableSize
}
