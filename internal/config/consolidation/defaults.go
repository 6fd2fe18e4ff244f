package consolidation

import (
	"time"

	"github.com/weisyn/consolidator/pkg/types"
)

// 合并调度默认配置值
const (
	// defaultMaxBatchSize 协议层单笔合并交易的输入上限
	defaultMaxBatchSize = types.DefaultMaxBatchSize

	defaultMaxIterations uint32 = types.DefaultMaxIterations

	defaultSettleMode         = SettleModeFixed
	defaultSettleDelay        = 2 * time.Second
	defaultSettlePollInterval = 500 * time.Millisecond
	defaultSettleTimeout      = 30 * time.Second

	defaultJournalEnabled = true
)

// 自动合并监控默认配置值
const (
	defaultMonitorEnabled      = false
	defaultMonitorAutoRun      = false
	defaultMonitorPollInterval = 30 * time.Second

	defaultFragmentationThreshold uint8 = 60
	defaultMaxNoteCount                 = 20
	defaultMaxDustNotes                 = 5

	// defaultDustAmountFloor 低于该金额的票据视为粉尘
	defaultDustAmountFloor uint64 = 1000
)
