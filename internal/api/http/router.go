package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/consolidator/internal/api/http/handlers"
	"github.com/weisyn/consolidator/internal/api/http/middleware"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Runner  consolidation.Runner
	Scanner consolidation.NoteScanner
	Monitor consolidation.Monitor
	Journal handlers.JournalReader   // 可为 nil
	Runs    handlers.ActiveRunCounter // 可为 nil
	Async   *runner.Background        // 异步运行组，可为 nil
	FanIn   int

	Logger log.Logger

	// EnableMetrics 为 true 时挂载 /metrics 与请求指标中间件
	EnableMetrics bool
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
}

// NewRouter 创建 gin 路由并注册全部端点
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	router.Use(middleware.NewLogger(deps.Logger, "/health", "/health/live", "/metrics").Middleware())

	zl := zapOf(deps.Logger)
	if deps.EnableMetrics {
		router.Use(middleware.NewMetrics(zl, deps.Registerer).Middleware())
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	handlers.NewHealthHandler(deps.Runs, deps.Monitor).RegisterRoutes(router)

	v1 := router.Group("/api/v1")
	handlers.NewConsolidationHandler(zl, deps.Runner, deps.Scanner, deps.Journal, deps.Async, deps.FanIn).RegisterRoutes(v1)
	if deps.Monitor != nil {
		handlers.NewMonitorHandler(zl, deps.Monitor).RegisterRoutes(v1)
	}
	return router
}
