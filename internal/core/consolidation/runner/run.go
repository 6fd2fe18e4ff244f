package runner

import (
	"context"

	"github.com/weisyn/consolidator/internal/core/consolidation/estimator"
	"github.com/weisyn/consolidator/internal/core/consolidation/selector"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// Run 驱动合并循环直至终止条件、迭代上限或错误
//
// 返回：
//   - 终止条件：Outcome=Completed，error 为 nil
//   - 迭代上限：Outcome=NotConverged，error 为 nil
//   - 扫描或合并失败：Outcome=Failed 的部分进度摘要 + ConsolidationError
//   - 并发运行：nil + ErrConcurrentRunRejected，不影响运行中的状态
func (s *Service) Run(ctx context.Context, req consolidation.RunRequest) (*types.RunSummary, error) {
	if err := validateIdentity(req.Wallet, req.Asset); err != nil {
		return nil, err
	}

	key := runKey{req.Wallet, req.Asset}
	if !s.locks.tryAcquire(key) {
		s.metrics.RunRejected()
		if s.logger != nil {
			s.logger.Warnf("[ConsolidationRunner] 拒绝并发运行 wallet=%s asset=%s", req.Wallet, req.Asset)
		}
		return nil, types.NewConsolidationError(types.ErrorKindConcurrentRunRejected, req.Wallet, req.Asset, 0, nil)
	}
	defer s.locks.release(key)

	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = s.options.MaxIterations
	}

	r := &run{
		svc:           s,
		req:           req,
		key:           key,
		fanIn:         s.FanIn(),
		maxIterations: maxIterations,
		summary: &types.RunSummary{
			RunID:     s.newRunID(),
			Wallet:    req.Wallet,
			Asset:     req.Asset,
			Target:    req.Target.String(),
			StartedAt: s.clock.Now(),
		},
	}

	s.setState(key, types.RunState{RunID: r.summary.RunID, Status: types.RunStatusRunning})
	s.metrics.RunStarted()
	if s.logger != nil {
		s.logger.Infof("[ConsolidationRunner] 🚀 开始合并 run=%s wallet=%s asset=%s target=%s fan_in=%d max_iterations=%d",
			r.summary.RunID, req.Wallet, req.Asset, r.summary.Target, r.fanIn, maxIterations)
	}

	err := r.loop(ctx)
	r.finish(ctx, err)
	return r.summary, err
}

// run 单次运行的内部状态，只由运行协程访问
type run struct {
	svc           *Service
	req           consolidation.RunRequest
	key           runKey
	fanIn         int
	maxIterations uint32

	tracker   estimator.Tracker
	round     uint32
	lastMerge *types.MergeReceipt
	summary   *types.RunSummary
}

func (r *run) loop(ctx context.Context) error {
	s := r.svc
	for {
		notes, err := s.refresh(ctx, r.req.Wallet, r.req.Asset)
		if err != nil {
			return r.fail(types.ErrorKindLedgerSyncFailed, err)
		}
		if r.round == 0 {
			r.summary.InitialNoteCount = len(notes)
		}
		if !r.lastMerge.Reflected(notes) {
			return r.fail(types.ErrorKindLedgerSyncFailed, errStaleView)
		}
		r.summary.FinalNoteCount = len(notes)

		sel := selector.Select(notes, r.req.Target, r.fanIn)
		if sel.Terminal {
			r.summary.Outcome = types.OutcomeCompleted
			r.summary.TerminalReason = sel.Reason
			return nil
		}
		if r.round >= r.maxIterations {
			r.summary.Outcome = types.OutcomeNotConverged
			if s.logger != nil {
				s.logger.Warnf("[ConsolidationRunner] 达到迭代上限仍未收敛 run=%s rounds=%d notes=%d",
					r.summary.RunID, r.round, len(notes))
			}
			return nil
		}

		r.round++
		total := r.tracker.Report(r.round, estimator.FromHere(len(notes), sel.NotesNeeded, r.req.Target, r.fanIn))
		r.summary.TotalBatchesEstimate = total
		s.updateState(r.key, func(st *types.RunState) {
			st.BatchNumber = r.round
			st.TotalBatchesEstimate = total
		})
		r.progress(types.PhaseSubmitting)

		if s.logger != nil {
			sum := sel.Batch.Sum()
			s.logger.Infof("[ConsolidationRunner] 第 %d/%d 轮：合并 %d 张票据 sum=%s",
				r.round, total, len(sel.Batch), sum.Dec())
		}

		receipt, err := s.submitter.SubmitMerge(ctx, r.req.Wallet, r.req.Asset, sel.Batch)
		if err != nil {
			s.metrics.RoundFailed()
			return r.fail(types.ErrorKindMergeSubmissionFailed, err)
		}
		s.metrics.RoundConfirmed()
		r.summary.RoundsCompleted = r.round
		r.summary.Receipts = append(r.summary.Receipts, receipt)
		s.record(ctx, r.summary.RunID, r.round, r.req.Wallet, r.req.Asset, receipt)

		r.progress(types.PhaseSyncing)
		settleStart := s.clock.Now()
		if err := s.settler.Settle(ctx, r.req.Wallet, r.req.Asset, receipt); err != nil {
			return r.fail(types.ErrorKindLedgerSyncFailed, err)
		}
		s.metrics.ObserveSettle(s.clock.Since(settleStart))
		r.lastMerge = receipt
	}
}

func (r *run) progress(phase types.Phase) {
	r.svc.emitProgress(r.req.Observer, types.ProgressEvent{
		RunID:         r.summary.RunID,
		Wallet:        r.req.Wallet,
		Asset:         r.req.Asset,
		BatchNumber:   r.round,
		TotalEstimate: r.summary.TotalBatchesEstimate,
		Phase:         phase,
	})
}

func (r *run) fail(kind types.ErrorKind, cause error) error {
	r.summary.Outcome = types.OutcomeFailed
	return types.NewConsolidationError(kind, r.req.Wallet, r.req.Asset, r.round, cause)
}

// finish 收尾：成功路径做最终刷新，失败路径只使缓存失效；更新状态、指标与事件
func (r *run) finish(ctx context.Context, runErr error) {
	s := r.svc

	if runErr == nil {
		if notes, err := s.refresh(ctx, r.req.Wallet, r.req.Asset); err != nil {
			if s.logger != nil {
				s.logger.Warnf("[ConsolidationRunner] 最终刷新失败 run=%s: %v", r.summary.RunID, err)
			}
		} else {
			r.summary.FinalNoteCount = len(notes)
		}
	} else if err := s.scanner.InvalidateNoteCache(ctx, r.req.Wallet); err != nil && s.logger != nil {
		s.logger.Warnf("[ConsolidationRunner] 使缓存失效失败 run=%s: %v", r.summary.RunID, err)
	}

	r.summary.FinishedAt = s.clock.Now()

	s.updateState(r.key, func(st *types.RunState) {
		if runErr != nil {
			st.Status = types.RunStatusError
			st.LastError = runErr.Error()
			return
		}
		st.Status = types.RunStatusCompleted
		st.LastError = ""
	})

	if runErr == nil {
		r.progress(types.PhaseCompleted)
	}

	s.metrics.RunFinished(r.summary.Outcome, r.summary.Duration())
	s.publishFinished(r.summary, runErr)

	if s.logger == nil {
		return
	}
	if runErr != nil {
		s.logger.Errorf("[ConsolidationRunner] ❌ 合并失败 run=%s rounds=%d: %v", r.summary.RunID, r.summary.RoundsCompleted, runErr)
		return
	}
	s.logger.Infof("[ConsolidationRunner] ✅ 合并结束 run=%s outcome=%s reason=%s rounds=%d notes=%d→%d",
		r.summary.RunID, r.summary.Outcome, r.summary.TerminalReason, r.summary.RoundsCompleted,
		r.summary.InitialNoteCount, r.summary.FinalNoteCount)
}
