package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// ErrSettleTimeout 账本视图在超时前仍未反映合并（输入未消失或产出不可见）
var ErrSettleTimeout = errors.New("ledger view did not reflect merge before timeout")

// Settler 合并确认后等待账本视图追上链上状态
type Settler interface {
	Settle(ctx context.Context, wallet types.WalletID, asset types.AssetID, receipt *types.MergeReceipt) error
}

// SleepFunc 可中断的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext 默认等待实现
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FixedDelaySettler 固定延迟
type FixedDelaySettler struct {
	Delay time.Duration
	Sleep SleepFunc
}

// Settle 实现 Settler
func (s *FixedDelaySettler) Settle(ctx context.Context, _ types.WalletID, _ types.AssetID, _ *types.MergeReceipt) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, s.Delay)
}

// PollSettler 轮询直到扫描结果中输入票据消失且产出票据出现，受 Timeout 约束
type PollSettler struct {
	Scanner  consolidation.NoteScanner
	Interval time.Duration
	Timeout  time.Duration
	Sleep    SleepFunc
}

// Settle 实现 Settler
func (s *PollSettler) Settle(ctx context.Context, wallet types.WalletID, asset types.AssetID, receipt *types.MergeReceipt) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	pollCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		if err := s.Scanner.InvalidateNoteCache(pollCtx, wallet); err != nil {
			return fmt.Errorf("invalidate note cache: %w", err)
		}
		notes, err := s.Scanner.ScanNotes(pollCtx, wallet, asset)
		if err == nil && receipt.Reflected(notes) {
			return nil
		}

		if err := sleep(pollCtx, s.Interval); err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w (attempts=%d, timeout=%s)", ErrSettleTimeout, attempt, s.Timeout)
			}
			return err
		}
	}
}

// NewSettler 按配置创建等待策略
func NewSettler(options *consolidationconfig.ConsolidationOptions, scanner consolidation.NoteScanner) Settler {
	if options.SettleMode == consolidationconfig.SettleModePoll {
		return &PollSettler{
			Scanner:  scanner,
			Interval: options.SettlePollInterval,
			Timeout:  options.SettleTimeout,
		}
	}
	return &FixedDelaySettler{Delay: options.SettleDelay}
}
