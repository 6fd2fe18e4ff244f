// Package configs 内置的默认配置文件
package configs

import _ "embed"

// 默认配置：未找到 --config 指定的文件时使用
//
//go:embed consolidator.json
var defaultConfig []byte

// GetDefaultConfig 获取内置默认配置
func GetDefaultConfig() []byte {
	return defaultConfig
}
