package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	apiNamespace = "wes"
	apiSubsystem = "api"

	// unmatchedRoute 未命中路由的请求统一归到一个标签值
	unmatchedRoute = "unmatched"
)

// Metrics HTTP 请求指标
type Metrics struct {
	logger   *zap.Logger
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics 创建指标中间件；reg 为 nil 时注册到默认 Registry
func NewMetrics(logger *zap.Logger, reg prometheus.Registerer) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		logger: logger,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: apiNamespace,
			Subsystem: apiSubsystem,
			Name:      "requests_total",
			Help:      "HTTP requests by route template and status code.",
		}, []string{"method", "route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: apiNamespace,
			Subsystem: apiSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			// 同步合并请求会一直阻塞到运行结束
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 30, 120, 600},
		}, []string{"method", "route"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: apiNamespace,
			Subsystem: apiSubsystem,
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
}

// Middleware 返回 gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.inFlight.Inc()
		start := time.Now()

		c.Next()

		m.inFlight.Dec()
		// 用路由模板作标签：钱包与资产出现在路径里，直接用 URL 会让标签基数失控
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
			m.logger.Debug("unmatched route", zap.String("path", c.Request.URL.Path))
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
