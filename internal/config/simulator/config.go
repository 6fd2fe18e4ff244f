// Package simulator 提供开发用账本模拟器配置
package simulator

import (
	"errors"
	"fmt"
	"time"

	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// SeedOptions 某个 (钱包, 资产) 的初始票据金额
type SeedOptions struct {
	Wallet  configtypes.WalletID
	Asset   configtypes.AssetID
	Amounts []configtypes.Amount
}

// SimulatorOptions 账本模拟器配置选项
type SimulatorOptions struct {
	// ConfirmLatency 每次合并从提交到确认的耗时
	ConfirmLatency time.Duration
	// VisibilityLag 确认后新状态对扫描可见前的延迟
	VisibilityLag time.Duration
	Seeds         []SeedOptions
}

// Config 模拟器配置实现
type Config struct {
	options *SimulatorOptions
	errs    []error
}

// New 创建模拟器配置
func New(userConfig interface{}) *Config {
	c := &Config{options: &SimulatorOptions{}}
	uc, ok := userConfig.(*configtypes.UserSimulatorConfig)
	if !ok || uc == nil {
		return c
	}
	if uc.ConfirmLatency != nil {
		d, err := utils.ParseDurationOr(*uc.ConfirmLatency, 0)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("confirm_latency: %w", err))
		}
		c.options.ConfirmLatency = d
	}
	if uc.VisibilityLag != nil {
		d, err := utils.ParseDurationOr(*uc.VisibilityLag, 0)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("visibility_lag: %w", err))
		}
		c.options.VisibilityLag = d
	}
	for i, seed := range uc.Seeds {
		so := SeedOptions{
			Wallet: configtypes.WalletID(seed.Wallet),
			Asset:  configtypes.AssetID(seed.Asset),
		}
		for _, raw := range seed.Amounts {
			amount, err := configtypes.ParseAmount(raw)
			if err != nil {
				c.errs = append(c.errs, fmt.Errorf("seeds[%d]: %w", i, err))
				continue
			}
			so.Amounts = append(so.Amounts, amount)
		}
		c.options.Seeds = append(c.options.Seeds, so)
	}
	return c
}

// GetOptions 获取完整的模拟器配置选项
func (c *Config) GetOptions() *SimulatorOptions {
	return c.options
}

// Validate 返回解析阶段的错误
func (c *Config) Validate() error {
	return errors.Join(c.errs...)
}
