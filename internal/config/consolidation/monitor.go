package consolidation

import (
	"errors"
	"fmt"
	"time"

	configtypes "github.com/weisyn/consolidator/pkg/types"
	"github.com/weisyn/consolidator/pkg/utils"
)

// WatchTarget 监控的 (钱包, 资产) 对
type WatchTarget struct {
	Wallet configtypes.WalletID `json:"wallet"`
	Asset  configtypes.AssetID  `json:"asset"`
}

// MonitorOptions 自动合并监控配置选项
type MonitorOptions struct {
	Enabled      bool          `json:"enabled"`       // 启动时是否立即开始轮询
	AutoRun      bool          `json:"auto_run"`      // 是否在收到建议后自动发起合并
	PollInterval time.Duration `json:"poll_interval"` // 轮询间隔

	// === 建议阈值 ===
	FragmentationThreshold uint8              `json:"fragmentation_threshold"` // 0..100
	MaxNoteCount           int                `json:"max_note_count"`
	MaxDustNotes           int                `json:"max_dust_notes"`
	DustAmountFloor        configtypes.Amount `json:"-"`

	Watch []WatchTarget `json:"watch"`
}

// MonitorConfig 监控配置实现
type MonitorConfig struct {
	options *MonitorOptions
	errs    []error
}

// NewMonitor 创建监控配置
func NewMonitor(userConfig interface{}) *MonitorConfig {
	c := &MonitorConfig{options: DefaultMonitorOptions()}
	if uc, ok := userConfig.(*configtypes.UserMonitorConfig); ok && uc != nil {
		c.apply(uc)
	}
	return c
}

// DefaultMonitorOptions 返回默认监控配置
func DefaultMonitorOptions() *MonitorOptions {
	return &MonitorOptions{
		Enabled:                defaultMonitorEnabled,
		AutoRun:                defaultMonitorAutoRun,
		PollInterval:           defaultMonitorPollInterval,
		FragmentationThreshold: defaultFragmentationThreshold,
		MaxNoteCount:           defaultMaxNoteCount,
		MaxDustNotes:           defaultMaxDustNotes,
		DustAmountFloor:        configtypes.AmountFromUint64(defaultDustAmountFloor),
	}
}

func (c *MonitorConfig) apply(uc *configtypes.UserMonitorConfig) {
	o := c.options
	if uc.Enabled != nil {
		o.Enabled = *uc.Enabled
	}
	if uc.AutoRun != nil {
		o.AutoRun = *uc.AutoRun
	}
	if uc.PollInterval != nil {
		d, err := utils.ParseDurationOr(*uc.PollInterval, o.PollInterval)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("poll_interval: %w", err))
		} else {
			o.PollInterval = d
		}
	}
	if uc.FragmentationThreshold != nil {
		v := *uc.FragmentationThreshold
		if v < 0 || v > 100 {
			c.errs = append(c.errs, fmt.Errorf("fragmentation_threshold 必须在 0..100 之间，当前为 %d", v))
		} else {
			o.FragmentationThreshold = uint8(v)
		}
	}
	if uc.MaxNoteCount != nil {
		o.MaxNoteCount = *uc.MaxNoteCount
	}
	if uc.MaxDustNotes != nil {
		o.MaxDustNotes = *uc.MaxDustNotes
	}
	if uc.DustAmountFloor != nil {
		floor, err := configtypes.ParseAmount(*uc.DustAmountFloor)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("dust_amount_floor: %w", err))
		} else {
			o.DustAmountFloor = floor
		}
	}
	for _, w := range uc.Watch {
		o.Watch = append(o.Watch, WatchTarget{
			Wallet: configtypes.WalletID(w.Wallet),
			Asset:  configtypes.AssetID(w.Asset),
		})
	}
}

// GetOptions 获取完整的监控配置选项
func (c *MonitorConfig) GetOptions() *MonitorOptions {
	return c.options
}

// Validate 校验配置
func (c *MonitorConfig) Validate() error {
	errs := append([]error(nil), c.errs...)
	if err := c.options.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate 校验取值范围（阈值只要求非负）
func (o *MonitorOptions) Validate() error {
	var errs []error
	if o.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval 必须 > 0"))
	}
	if o.FragmentationThreshold > 100 {
		errs = append(errs, fmt.Errorf("fragmentation_threshold 必须 ≤ 100，当前为 %d", o.FragmentationThreshold))
	}
	if o.MaxNoteCount < 0 {
		errs = append(errs, fmt.Errorf("max_note_count 不能为负数: %d", o.MaxNoteCount))
	}
	if o.MaxDustNotes < 0 {
		errs = append(errs, fmt.Errorf("max_dust_notes 不能为负数: %d", o.MaxDustNotes))
	}
	for i, w := range o.Watch {
		if w.Wallet == "" || w.Asset == "" {
			errs = append(errs, fmt.Errorf("watch[%d]: wallet 与 asset 不能为空", i))
		}
	}
	return errors.Join(errs...)
}
