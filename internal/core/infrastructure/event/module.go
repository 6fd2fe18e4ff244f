// Package event 提供事件管理功能
package event

import (
	"go.uber.org/fx"

	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	logimpl "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	eventInterface "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Provider  config.Provider
	Logger    log.Logger `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 创建事件总线并挂接生命周期
func ProvideEventBus(input ModuleInput) ModuleOutput {
	cfg := eventconfig.New(nil)
	if input.Provider != nil {
		cfg = eventconfig.New(input.Provider.GetAppConfig().Event)
	}
	bus := New(cfg).WithLogger(logimpl.NewModuleLogger(input.Logger, logimpl.ModuleEvent))

	input.Lifecycle.Append(fx.Hook{
		OnStart: bus.Start,
		OnStop:  bus.Stop,
	})

	return ModuleOutput{EventBus: bus}
}
