package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	infralog "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// Logger 访问日志中间件（复用系统统一日志接口）
//
// 探活与指标抓取路径只在出错时记录。
type Logger struct {
	logger infralog.Logger
	quiet  map[string]struct{}
}

// NewLogger 创建访问日志中间件；quietPaths 中的路径成功时不记录
func NewLogger(logger infralog.Logger, quietPaths ...string) *Logger {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}
	return &Logger{logger: logger, quiet: quiet}
}

// Middleware 返回Gin中间件
func (m *Logger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if _, ok := m.quiet[path]; ok && status < 400 {
			return
		}
		if m.logger == nil {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if wallet := c.Param("wallet"); wallet != "" {
			fields = append(fields, zap.String("wallet", wallet), zap.String("asset", c.Param("asset")))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		zl := m.logger.GetZapLogger()
		if zl == nil {
			return
		}
		switch {
		case status >= 500:
			zl.Error("HTTP request", fields...)
		case status >= 400:
			zl.Warn("HTTP request", fields...)
		default:
			zl.Info("HTTP request", fields...)
		}
	}
}
