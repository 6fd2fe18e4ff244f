// Package log 提供日志级别定义
package log

import "github.com/weisyn/consolidator/pkg/types"

// LogLevel 日志级别别名
type LogLevel = types.LogLevel

// 常量别名
const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)
