// Package log 提供日志管理功能
package log

import (
	"context"
	"fmt"

	logconfig "github.com/weisyn/consolidator/internal/config/log"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	logInterface "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// 模块标识（module 字段取值，决定写入哪个日志文件）
const (
	ModuleConsolidation = "consolidation"
	ModuleMonitor       = "monitor"
	ModuleAPI           = "api"
	ModuleLedger        = "ledger"

	ModuleStorage = "storage"
	ModuleEvent   = "event"
	ModuleCache   = "cache"
	ModuleInfra   = "infra"
)

// ModuleParams 定义日志模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
}

// ModuleOutput 定义日志模块的输出结构
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger
	ZapLogger *zap.Logger // 供需要 zap 特性的模块使用（gin 访问日志）
}

// Module 返回日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 根据配置初始化日志记录器并替换全局记录器
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger, err := New(logconfig.NewFromOptions(params.Provider.GetLog()))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("根据用户配置创建日志记录器失败: %w", err)
	}

	// 替换掉init()时用默认配置创建的日志器
	SetLogger(logger)

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync() // 控制台 Sync 在部分平台返回 EINVAL，忽略
			return nil
		},
	})

	return ModuleOutput{
		Logger:    logger,
		ZapLogger: logger.GetZapLogger(),
	}, nil
}

// NewModuleLogger 创建带 module 字段的 logger；baseLogger 为 nil 时使用全局记录器
func NewModuleLogger(baseLogger logInterface.Logger, module string) logInterface.Logger {
	base := OrGlobal(baseLogger)
	if base == nil {
		return nil
	}
	return base.With("module", module)
}
