// Package consolidation 提供合并调度与自动合并监控的配置
package consolidation

import (
	"errors"
	"fmt"
	"time"

	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// SettleMode 合并确认后的同步等待策略
type SettleMode string

const (
	// SettleModeFixed 固定等待 SettleDelay
	SettleModeFixed SettleMode = "fixed"
	// SettleModePoll 轮询扫描直到批次中的票据全部消失，最长等待 SettleTimeout
	SettleModePoll SettleMode = "poll"
)

// ConsolidationOptions 合并调度配置选项
type ConsolidationOptions struct {
	// MaxBatchSize 扇入：单次合并最多消费的票据数，同时作为轮数估算的对数底
	MaxBatchSize int `json:"max_batch_size"`

	// MaxIterations 单次运行的默认迭代上限
	MaxIterations uint32 `json:"max_iterations"`

	// === 同步等待 ===
	SettleMode         SettleMode    `json:"settle_mode"`
	SettleDelay        time.Duration `json:"settle_delay"`
	SettlePollInterval time.Duration `json:"settle_poll_interval"`
	SettleTimeout      time.Duration `json:"settle_timeout"`

	// JournalEnabled 是否把每轮确认回执写入审计日志
	JournalEnabled bool `json:"journal_enabled"`
}

// Config 合并调度配置实现
type Config struct {
	options *ConsolidationOptions
	errs    []error
}

// New 创建合并调度配置
func New(userConfig interface{}) *Config {
	c := &Config{options: DefaultConsolidationOptions()}
	if uc, ok := userConfig.(*configtypes.UserConsolidationConfig); ok && uc != nil {
		c.apply(uc)
	}
	return c
}

// DefaultConsolidationOptions 返回默认合并调度配置
func DefaultConsolidationOptions() *ConsolidationOptions {
	return &ConsolidationOptions{
		MaxBatchSize:       defaultMaxBatchSize,
		MaxIterations:      defaultMaxIterations,
		SettleMode:         defaultSettleMode,
		SettleDelay:        defaultSettleDelay,
		SettlePollInterval: defaultSettlePollInterval,
		SettleTimeout:      defaultSettleTimeout,
		JournalEnabled:     defaultJournalEnabled,
	}
}

func (c *Config) apply(uc *configtypes.UserConsolidationConfig) {
	o := c.options
	if uc.MaxBatchSize != nil {
		o.MaxBatchSize = *uc.MaxBatchSize
	}
	if uc.MaxIterations != nil {
		if *uc.MaxIterations < 0 {
			c.errs = append(c.errs, fmt.Errorf("max_iterations 不能为负数: %d", *uc.MaxIterations))
		} else {
			o.MaxIterations = uint32(*uc.MaxIterations)
		}
	}
	if uc.SettleMode != nil {
		o.SettleMode = SettleMode(*uc.SettleMode)
	}
	c.duration(uc.SettleDelay, &o.SettleDelay, "settle_delay")
	c.duration(uc.SettlePollInterval, &o.SettlePollInterval, "settle_poll_interval")
	c.duration(uc.SettleTimeout, &o.SettleTimeout, "settle_timeout")
	if uc.JournalEnabled != nil {
		o.JournalEnabled = *uc.JournalEnabled
	}
}

func (c *Config) duration(raw *string, dst *time.Duration, field string) {
	if raw == nil {
		return
	}
	d, err := utils.ParseDurationOr(*raw, *dst)
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("%s: %w", field, err))
		return
	}
	*dst = d
}

// GetOptions 获取完整的合并调度配置选项
func (c *Config) GetOptions() *ConsolidationOptions {
	return c.options
}

// Validate 校验配置（解析错误 + 取值范围）
func (c *Config) Validate() error {
	errs := append([]error(nil), c.errs...)
	if err := c.options.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate 校验取值范围
func (o *ConsolidationOptions) Validate() error {
	var errs []error
	if o.MaxBatchSize < 2 {
		errs = append(errs, fmt.Errorf("max_batch_size 必须 ≥ 2，当前为 %d", o.MaxBatchSize))
	}
	if o.MaxBatchSize > 255 {
		errs = append(errs, fmt.Errorf("max_batch_size 必须 ≤ 255，当前为 %d", o.MaxBatchSize))
	}
	switch o.SettleMode {
	case SettleModeFixed:
	case SettleModePoll:
		if o.SettlePollInterval <= 0 {
			errs = append(errs, errors.New("poll 模式下 settle_poll_interval 必须 > 0"))
		}
		if o.SettleTimeout <= 0 {
			errs = append(errs, errors.New("poll 模式下 settle_timeout 必须 > 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 settle_mode: %q（可选 fixed | poll）", o.SettleMode))
	}
	return errors.Join(errs...)
}
