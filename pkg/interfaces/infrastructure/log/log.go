// Package log 日志接口
//
// 组件只依赖 Logger，测试用 testutil.MockLogger 替换；With("module", ...) 附加的
// module 字段决定日志写入 system.log 还是 scheduler.log。
package log

import "go.uber.org/zap"

// Logger 日志记录器
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})

	// Fatal 记录后退出进程，只在启动阶段使用
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// With 返回附加了键值字段的子 Logger
	With(args ...interface{}) Logger

	Sync() error

	// GetZapLogger 底层 zap 实例（gin 中间件等需要 *zap.Logger 的场景）
	GetZapLogger() *zap.Logger
}
