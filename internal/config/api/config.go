package api

import (
	"fmt"
	"time"

	"github.com/weisyn/consolidator/pkg/types"
)

// APIOptions 运维 HTTP API 配置选项
type APIOptions struct {
	Enabled bool   `json:"enabled"` // 是否启用HTTP服务
	Host    string `json:"host"`    // 监听地址
	Port    int    `json:"port"`    // 监听端口

	// EnableMetrics 是否暴露 /metrics（Prometheus）
	EnableMetrics bool `json:"enable_metrics"`

	// 超时配置
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig interface{}) *Config {
	options := &APIOptions{
		Enabled:         defaultEnabled,
		Host:            defaultHost,
		Port:            defaultPort,
		EnableMetrics:   defaultEnableMetrics,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
	}
	if uc, ok := userConfig.(*types.UserAPIConfig); ok && uc != nil {
		if uc.Enabled != nil {
			options.Enabled = *uc.Enabled
		}
		if uc.Host != nil {
			options.Host = *uc.Host
		}
		if uc.Port != nil && *uc.Port > 0 {
			options.Port = *uc.Port
		}
		if uc.EnableMetrics != nil {
			options.EnableMetrics = *uc.EnableMetrics
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整的API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}

// Address 监听地址 host:port
func (o *APIOptions) Address() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}
