package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/weisyn/consolidator/internal/api"
	config "github.com/weisyn/consolidator/internal/config"
	"github.com/weisyn/consolidator/internal/core/consolidation"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	"github.com/weisyn/consolidator/internal/core/infrastructure/event"
	log "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/internal/core/infrastructure/storage"
	"github.com/weisyn/consolidator/internal/core/notes"
	configiface "github.com/weisyn/consolidator/pkg/interfaces/config"
)

// Bootstrap 应用引导程序
//
// 模块按层加载：基础设施 → 通信与数据 → 业务 → 应用。
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
	deps  Components
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 配置、日志、时钟与指标注册表
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),
		log.Module(),
		fx.Provide(clockimpl.NewSystemClock),
		fx.Provide(newRegistry),
		fx.Invoke(ensureDataDirectories),
	}
}

// SetupCommunicationLayer 事件总线与存储
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),
		storage.Module(),
	}
}

// SetupBusinessLayer 账本视图与合并调度
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		notes.Module(),
		consolidation.Module(),
	}
}

// SetupApplicationLayer 对外接口
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{api.Module()}
}

// SetupModules 按层汇总全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupCommunicationLayer()...)
	all = append(all, b.SetupBusinessLayer()...)
	all = append(all, b.SetupApplicationLayer()...)
	all = append(all, b.opts.extra...)
	return all
}

// CreateFxApp 创建 fx 应用并导出核心组件
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
		fx.Populate(&b.deps.Service, &b.deps.Monitor, &b.deps.Ledger, &b.deps.Scanner, &b.deps.Journal, &b.deps.Provider),
	)
	return b.fxApp.Err()
}

// StartApp 启动应用
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// registryOut 同一个注册表同时作为 Registerer 与 Gatherer
type registryOut struct {
	fx.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// newRegistry 每个应用实例独立的注册表，附带进程与 Go 运行时指标
func newRegistry() registryOut {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registryOut{Registerer: reg, Gatherer: reg}
}

// ensureDataDirectories 创建数据目录与日志目录
func ensureDataDirectories(provider configiface.Provider) error {
	dirs := []string{provider.GetDataDir()}
	if logPath := provider.GetLog().FilePath; logPath != "" && logPath != "stdout" && logPath != "stderr" {
		dirs = append(dirs, filepath.Dir(logPath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}
