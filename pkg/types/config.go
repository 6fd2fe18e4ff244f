package types

// AppConfig 应用配置（对应 JSON 配置文件）
//
// 所有字段均为指针：只处理配置文件中实际出现的字段，未出现的字段使用各模块默认值。
type AppConfig struct {
	// 应用程序基本信息
	AppName     *string `json:"app_name,omitempty"`    // 应用名称
	DataDir     *string `json:"data_dir,omitempty"`    // 数据目录路径
	Environment *string `json:"environment,omitempty"` // 运行环境：dev | test | prod

	Log           *UserLogConfig           `json:"log,omitempty"`
	Event         *UserEventConfig         `json:"event,omitempty"`
	Storage       *UserStorageConfig       `json:"storage,omitempty"`
	NoteCache     *UserNoteCacheConfig     `json:"note_cache,omitempty"`
	Consolidation *UserConsolidationConfig `json:"consolidation,omitempty"`
	Monitor       *UserMonitorConfig       `json:"monitor,omitempty"`
	API           *UserAPIConfig           `json:"api,omitempty"`
	Simulator     *UserSimulatorConfig     `json:"simulator,omitempty"`
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`      // 日志级别：debug, info, warn, error, fatal
	FilePath  *string `json:"file_path,omitempty"`  // 日志文件路径（stdout/stderr 表示控制台）
	MultiFile *bool   `json:"multi_file,omitempty"` // 是否按模块拆分 system/scheduler 日志
}

// UserEventConfig 用户事件配置
type UserEventConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	Memory *UserMemoryConfig `json:"memory,omitempty"`
	Badger *UserBadgerConfig `json:"badger,omitempty"`
	Redis  *UserRedisConfig  `json:"redis,omitempty"`
}

// UserMemoryConfig 用户内存缓存配置
type UserMemoryConfig struct {
	MaxEntries      *int    `json:"max_entries,omitempty"`
	DefaultTTL      *string `json:"default_ttl,omitempty"`
	CleanupInterval *string `json:"cleanup_interval,omitempty"`
}

// UserBadgerConfig 用户 BadgerDB 配置
type UserBadgerConfig struct {
	Path       *string `json:"path,omitempty"`
	InMemory   *bool   `json:"in_memory,omitempty"`
	SyncWrites *bool   `json:"sync_writes,omitempty"`
}

// UserRedisConfig 用户 Redis 配置
type UserRedisConfig struct {
	Addr      *string `json:"addr,omitempty"`
	Password  *string `json:"password,omitempty"`
	DB        *int    `json:"db,omitempty"`
	KeyPrefix *string `json:"key_prefix,omitempty"`
}

// UserNoteCacheConfig 用户票据快照缓存配置
type UserNoteCacheConfig struct {
	Backend *string `json:"backend,omitempty"` // memory | redis | none
	TTL     *string `json:"ttl,omitempty"`
}

// UserConsolidationConfig 用户合并调度配置
type UserConsolidationConfig struct {
	MaxBatchSize       *int    `json:"max_batch_size,omitempty"`
	MaxIterations      *int    `json:"max_iterations,omitempty"`
	SettleMode         *string `json:"settle_mode,omitempty"` // fixed | poll
	SettleDelay        *string `json:"settle_delay,omitempty"`
	SettlePollInterval *string `json:"settle_poll_interval,omitempty"`
	SettleTimeout      *string `json:"settle_timeout,omitempty"`
	JournalEnabled     *bool   `json:"journal_enabled,omitempty"`
}

// UserMonitorConfig 用户自动合并监控配置
type UserMonitorConfig struct {
	Enabled                *bool             `json:"enabled,omitempty"`
	AutoRun                *bool             `json:"auto_run,omitempty"`
	PollInterval           *string           `json:"poll_interval,omitempty"`
	FragmentationThreshold *int              `json:"fragmentation_threshold,omitempty"`
	MaxNoteCount           *int              `json:"max_note_count,omitempty"`
	MaxDustNotes           *int              `json:"max_dust_notes,omitempty"`
	DustAmountFloor        *string           `json:"dust_amount_floor,omitempty"`
	Watch                  []UserWatchTarget `json:"watch,omitempty"`
}

// UserWatchTarget 监控的 (钱包, 资产) 对
type UserWatchTarget struct {
	Wallet string `json:"wallet"`
	Asset  string `json:"asset"`
}

// UserAPIConfig 用户 API 配置
type UserAPIConfig struct {
	Enabled       *bool   `json:"enabled,omitempty"`
	Host          *string `json:"host,omitempty"`
	Port          *int    `json:"port,omitempty"`
	EnableMetrics *bool   `json:"enable_metrics,omitempty"`
}

// UserSimulatorConfig 开发用账本模拟器配置
type UserSimulatorConfig struct {
	ConfirmLatency *string            `json:"confirm_latency,omitempty"`
	VisibilityLag  *string            `json:"visibility_lag,omitempty"`
	Seeds          []UserSimNoteSeeds `json:"seeds,omitempty"`
}

// UserSimNoteSeeds 模拟器初始票据
type UserSimNoteSeeds struct {
	Wallet  string   `json:"wallet"`
	Asset   string   `json:"asset"`
	Amounts []string `json:"amounts"`
}

// StringPtr 返回字符串指针（配置测试与默认值构造）
func StringPtr(s string) *string { return &s }

// BoolPtr 返回布尔指针
func BoolPtr(b bool) *bool { return &b }

// IntPtr 返回整数指针
func IntPtr(i int) *int { return &i }
