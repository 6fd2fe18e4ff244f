// Package consolidation 装配合并调度服务、监控器与审计日志
package consolidation

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/consolidator/internal/core/consolidation/journal"
	"github.com/weisyn/consolidator/internal/core/consolidation/metrics"
	"github.com/weisyn/consolidator/internal/core/consolidation/monitor"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	logimpl "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	consolidationIface "github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 合并调度模块依赖
type ModuleParams struct {
	fx.In

	Lifecycle       fx.Lifecycle
	Provider        config.Provider
	StorageProvider storage.Provider
	Scanner         consolidationIface.NoteScanner
	Submitter       consolidationIface.MergeSubmitter

	EventBus   event.EventBus                         `optional:"true"`
	Clock      clock.Clock                            `optional:"true"`
	Logger     log.Logger                             `optional:"true"`
	Registerer prometheus.Registerer                  `optional:"true"`
	Scorer     consolidationIface.FragmentationScorer `optional:"true"`
}

// ModuleOutput 合并调度模块输出
type ModuleOutput struct {
	fx.Out

	Service  *runner.Service
	Runner   consolidationIface.Runner
	Monitor  *monitor.Monitor
	MonitorI consolidationIface.Monitor
	Journal  *journal.Journal // 未启用时为 nil
	Metrics  *metrics.Metrics
}

// Module 返回合并调度模块
func Module() fx.Option {
	return fx.Module("consolidation",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建运行服务与监控器，并挂接监控器的启停
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(params.Logger, logimpl.ModuleConsolidation)
	monitorLogger := logimpl.NewModuleLogger(params.Logger, logimpl.ModuleMonitor)

	registerer := params.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := metrics.New(registerer)

	options := params.Provider.GetConsolidation()

	var (
		j        *journal.Journal
		recorder runner.ReceiptRecorder
	)
	if options.JournalEnabled {
		store, err := params.StorageProvider.GetBadgerStore()
		if err != nil {
			return ModuleOutput{}, fmt.Errorf("打开审计日志存储失败: %w", err)
		}
		j, err = journal.New(store, params.Clock, logger)
		if err != nil {
			return ModuleOutput{}, err
		}
		recorder = j
	}

	service, err := runner.NewService(runner.Deps{
		Scanner:   params.Scanner,
		Submitter: params.Submitter,
		Options:   options,
		EventBus:  params.EventBus,
		Journal:   recorder,
		Metrics:   m,
		Clock:     params.Clock,
		Logger:    logger,
	})
	if err != nil {
		return ModuleOutput{}, err
	}

	monitorOptions := params.Provider.GetMonitor()
	mon, err := monitor.New(monitor.Deps{
		Scanner:  params.Scanner,
		Options:  monitorOptions,
		Runs:     service,
		Scorer:   params.Scorer,
		EventBus: params.EventBus,
		Metrics:  m,
		Clock:    params.Clock,
		Logger:   monitorLogger,
	})
	if err != nil {
		return ModuleOutput{}, err
	}

	var auto *AutoRunner
	if monitorOptions.AutoRun {
		auto = NewAutoRunner(service, logger)
		mon.SetCallback(auto.OnAdvisory)
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !monitorOptions.Enabled {
				return nil
			}
			if logger != nil {
				logger.Infof("[Consolidation] 启动合并监控 watch=%d interval=%s auto_run=%v",
					len(monitorOptions.Watch), monitorOptions.PollInterval, monitorOptions.AutoRun)
			}
			return mon.Enable(ctx)
		},
		OnStop: func(ctx context.Context) error {
			mon.Disable()
			if auto != nil {
				return auto.Stop(ctx)
			}
			return nil
		},
	})

	return ModuleOutput{
		Service:  service,
		Runner:   service,
		Monitor:  mon,
		MonitorI: mon,
		Journal:  j,
		Metrics:  m,
	}, nil
}
