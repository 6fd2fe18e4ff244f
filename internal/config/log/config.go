package log

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	configtypes "github.com/weisyn/consolidator/pkg/types"
)

// LogOptions 日志配置选项
type LogOptions struct {
	Level     string `json:"level"`      // debug | info | warn | error | fatal
	ToConsole bool   `json:"to_console"` // 是否同时输出到控制台（stderr）
	FilePath  string `json:"file_path"`  // 日志文件路径，为空时只输出到控制台

	MaxSize    int  `json:"max_size"`    // 单个文件上限(MB)
	MaxBackups int  `json:"max_backups"` // 保留的历史文件数
	MaxAge     int  `json:"max_age"`     // 保留天数
	Compress   bool `json:"compress"`    // 压缩历史文件

	EnableCaller     bool `json:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace"`

	// 多文件：system.log 收存储/事件/缓存日志，scheduler.log 收调度/监控/API/账本日志
	EnableMultiFile  bool   `json:"enable_multi_file"`
	SystemLogFile    string `json:"system_log_file"`
	SchedulerLogFile string `json:"scheduler_log_file"`
}

// Config 日志配置实现
type Config struct {
	options *LogOptions
	err     error
}

// New 创建日志配置：默认值之上叠加配置文件中出现的字段
func New(userConfig interface{}) *Config {
	c := &Config{options: &LogOptions{
		Level:            defaultLogLevel,
		ToConsole:        true,
		FilePath:         defaultFilePath,
		MaxSize:          defaultMaxSize,
		MaxBackups:       defaultMaxBackups,
		MaxAge:           defaultMaxAge,
		Compress:         defaultCompress,
		EnableCaller:     defaultEnableCaller,
		EnableStacktrace: defaultEnableStacktrace,
		EnableMultiFile:  defaultEnableMultiFile,
		SystemLogFile:    defaultSystemLogFile,
		SchedulerLogFile: defaultSchedulerLogFile,
	}}

	uc, ok := userConfig.(*configtypes.UserLogConfig)
	if !ok || uc == nil {
		return c
	}
	if uc.Level != nil {
		c.options.Level = *uc.Level
		if _, err := zapcore.ParseLevel(*uc.Level); err != nil {
			c.err = fmt.Errorf("未知的日志级别 %q", *uc.Level)
		}
	}
	if uc.FilePath != nil {
		switch path := *uc.FilePath; path {
		case "stdout", "stderr":
			c.options.FilePath = ""
			c.options.ToConsole = true
		default:
			// 写文件时不再重复输出到控制台
			c.options.FilePath = path
			c.options.ToConsole = path == ""
		}
	}
	if uc.MultiFile != nil {
		c.options.EnableMultiFile = *uc.MultiFile
	}
	return c
}

// NewFromOptions 包装已解析的选项（fx 模块从 Provider 取得）
func NewFromOptions(options *LogOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

// Validate 校验日志级别
func (c *Config) Validate() error {
	return c.err
}

// GetOptions 获取日志配置选项
func (c *Config) GetOptions() *LogOptions {
	return c.options
}

// GetZapLevel 解析后的 zap 级别；无法识别时回落到 info
func (c *Config) GetZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.options.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (c *Config) IsConsoleEnabled() bool { return c.options.ToConsole }
func (c *Config) GetFilePath() string    { return c.options.FilePath }
func (c *Config) IsCallerEnabled() bool  { return c.options.EnableCaller }

// IsMultiFileEnabled 仅在写文件时生效
func (c *Config) IsMultiFileEnabled() bool {
	return c.options.EnableMultiFile && c.options.FilePath != ""
}

// CreateFileEncoder 文件使用 JSON，便于采集
func (c *Config) CreateFileEncoder() zapcore.Encoder {
	cfg := baseEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// CreateConsoleEncoder 控制台使用带颜色的行格式
func (c *Config) CreateConsoleEncoder() zapcore.Encoder {
	cfg := baseEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func baseEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
