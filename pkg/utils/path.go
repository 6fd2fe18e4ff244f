// Package utils provides path and duration helper functions.
package utils

import (
	"os"
	"path/filepath"
)

// dataRootEnv 覆盖相对数据路径的解析基准目录
const dataRootEnv = "CONSOLIDATOR_DATA_ROOT"

// ResolveDataPath 解析数据目录路径为绝对路径
// 如果path已经是绝对路径，直接返回
// 如果是相对路径，基于 CONSOLIDATOR_DATA_ROOT（未设置时为当前工作目录）解析
func ResolveDataPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	base := os.Getenv(dataRootEnv)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return path
		}
		base = wd
	}
	return filepath.Join(base, path)
}

// EnsureDir 确保目录存在，如果不存在则创建
func EnsureDir(path string) error {
	//nolint:gosec // G301: 目录需要用户可读权限
	return os.MkdirAll(path, 0755)
}
