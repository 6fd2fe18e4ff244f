package utils

import (
	"fmt"
	"time"
)

// ParseDurationOr 解析配置中的时长字符串（如 "2s"、"500ms"）
//
// 空字符串返回 fallback；负数视为无效。
func ParseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback, fmt.Errorf("无效的时长 %q: %w", s, err)
	}
	if d < 0 {
		return fallback, fmt.Errorf("时长不能为负数: %q", s)
	}
	return d, nil
}
