// Package storage 提供存储管理功能
package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/consolidator/internal/config/storage/memory"
	logimpl "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider // 配置提供者
	Logger    log.Logger      `optional:"true"` // 日志记录器
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	// 主存储提供者
	Provider storageInterface.Provider

	// 内存存储（启动即创建）
	MemoryStore storageInterface.MemoryStore
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建存储提供者并挂接关闭钩子
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(params.Logger, logimpl.ModuleStorage)

	memStore, err := memory.New(memoryconfig.NewFromOptions(params.Provider.GetMemoryStore()), logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建内存存储失败: %w", err)
	}

	provider := NewProvider(
		memStore,
		badgerconfig.NewFromOptions(params.Provider.GetBadger()),
		params.Provider.GetRedis(),
		logger,
	)

	// 添加生命周期钩子确保在应用停止时关闭数据库
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if logger != nil {
				logger.Info("[Storage] 正在关闭存储服务...")
			}
			return provider.Close()
		},
	})

	return ModuleOutput{Provider: provider, MemoryStore: memStore}, nil
}
