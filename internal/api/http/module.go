package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/weisyn/consolidator/internal/api/http/handlers"
	"github.com/weisyn/consolidator/internal/core/consolidation/journal"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	logimpl "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// ServerParams HTTP 服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Service   *runner.Service
	Scanner   consolidation.NoteScanner
	Monitor   consolidation.Monitor
	Journal   *journal.Journal `optional:"true"`

	Logger     log.Logger            `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
}

// Module 返回HTTP模块
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(ProvideServer),
	)
}

// ProvideServer 组装路由与服务器，并挂接生命周期
func ProvideServer(params ServerParams) *Server {
	logger := logimpl.NewModuleLogger(params.Logger, logimpl.ModuleAPI)
	options := params.Provider.GetAPI()

	gin.SetMode(gin.ReleaseMode)

	// 未启用审计日志时 Journal 为 nil 指针，不能直接装入接口
	var journalReader handlers.JournalReader
	if params.Journal != nil {
		journalReader = params.Journal
	}

	async := runner.NewBackground()
	router := NewRouter(RouterDeps{
		Runner:        params.Service,
		Scanner:       params.Scanner,
		Monitor:       params.Monitor,
		Journal:       journalReader,
		Runs:          params.Service,
		Async:         async,
		FanIn:         params.Service.FanIn(),
		Logger:        logger,
		EnableMetrics: options.EnableMetrics,
		Registerer:    params.Registerer,
		Gatherer:      params.Gatherer,
	})
	server := NewServer(router, options, logger)

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return server.Start() },
		OnStop: func(ctx context.Context) error {
			// 先停止接收请求，再取消异步运行
			if err := server.Stop(ctx); err != nil {
				return err
			}
			return async.Stop(ctx)
		},
	})
	return server
}
