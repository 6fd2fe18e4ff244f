package consolidation

import (
	"context"
	"errors"

	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	consolidationIface "github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

// AutoRunner 收到监控建议后自动发起完整合并
//
// 每条建议在独立协程中执行；同一 (钱包, 资产) 已在运行时直接跳过。
// Stop 取消所有进行中的运行并等待其退出，之后到达的建议被忽略。
type AutoRunner struct {
	runner consolidationIface.Runner
	logger log.Logger
	runs   *runner.Background
}

// NewAutoRunner 创建自动执行器
func NewAutoRunner(r consolidationIface.Runner, logger log.Logger) *AutoRunner {
	return &AutoRunner{runner: r, logger: logger, runs: runner.NewBackground()}
}

// OnAdvisory 实现 AdvisoryCallback
func (a *AutoRunner) OnAdvisory(_ context.Context, advisory *types.Advisory) {
	if !advisory.Advised() || a.runs.Stopped() {
		return
	}
	if a.runner.IsRunning(advisory.Wallet, advisory.Asset) {
		return
	}

	a.runs.Go(func(ctx context.Context) {
		summary, err := a.runner.Run(ctx, consolidationIface.RunRequest{
			Wallet: advisory.Wallet,
			Asset:  advisory.Asset,
		})
		switch {
		case errors.Is(err, types.ErrConcurrentRunRejected):
			return
		case err != nil:
			if a.logger != nil {
				a.logger.Warnf("[AutoRun] 自动合并失败 wallet=%s asset=%s: %v", advisory.Wallet, advisory.Asset, err)
			}
		case a.logger != nil:
			a.logger.Infof("[AutoRun] 自动合并结束 wallet=%s asset=%s outcome=%s rounds=%d notes=%d→%d",
				advisory.Wallet, advisory.Asset, summary.Outcome, summary.RoundsCompleted,
				summary.InitialNoteCount, summary.FinalNoteCount)
		}
	})
}

// Stop 取消进行中的自动运行并等待退出
func (a *AutoRunner) Stop(ctx context.Context) error {
	return a.runs.Stop(ctx)
}
