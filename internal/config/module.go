// Package config 提供应用配置管理功能
package config

import (
	"github.com/weisyn/consolidator/internal/config/api"
	"github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	"github.com/weisyn/consolidator/pkg/types"
	"go.uber.org/fx"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// 应用配置选项
	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	// 配置提供者
	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			// 提供具体的配置类型用于依赖注入
			func(provider config.Provider) *consolidation.ConsolidationOptions {
				return provider.GetConsolidation()
			},
			func(provider config.Provider) *consolidation.MonitorOptions {
				return provider.GetMonitor()
			},
			func(provider config.Provider) *api.APIOptions {
				return provider.GetAPI()
			},
		),
	)
}

// ProvideConfigServices 提供配置服务；配置校验失败时阻止应用启动
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}

	provider := NewProvider(appConfig)
	if err := provider.Validate(); err != nil {
		return ConfigOutput{}, err
	}

	return ConfigOutput{
		Provider: provider,
	}, nil
}

// StaticOptions 固定的应用配置（测试与 CLI 直接构造）
type StaticOptions struct {
	AppConfig *types.AppConfig
}

// GetAppConfig 实现 config.AppOptions
func (s StaticOptions) GetAppConfig() *types.AppConfig {
	return s.AppConfig
}
