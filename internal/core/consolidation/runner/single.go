package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// RunSingleBatch 只执行外部计划中的第 Index 个批次
//
// 与 Run 共用 (钱包, 资产) 锁；提交前确认批次中的票据仍未花费，否则返回 PlanStale。
func (s *Service) RunSingleBatch(ctx context.Context, req consolidation.SingleBatchRequest) (*types.MergeReceipt, error) {
	if err := validateIdentity(req.Wallet, req.Asset); err != nil {
		return nil, err
	}
	batch, err := s.planBatch(req)
	if err != nil {
		return nil, types.NewConsolidationError(types.ErrorKindInvalidRequest, req.Wallet, req.Asset, 0, err)
	}
	round := uint32(req.Index + 1)

	key := runKey{req.Wallet, req.Asset}
	if !s.locks.tryAcquire(key) {
		s.metrics.RunRejected()
		return nil, types.NewConsolidationError(types.ErrorKindConcurrentRunRejected, req.Wallet, req.Asset, 0, nil)
	}
	defer s.locks.release(key)

	runID := s.newRunID()
	total := uint32(len(req.Plan.Batches))
	s.setState(key, types.RunState{RunID: runID, BatchNumber: round, TotalBatchesEstimate: total, Status: types.RunStatusRunning})

	receipt, err := s.executeBatch(ctx, req, runID, round, total, batch)
	s.updateState(key, func(st *types.RunState) {
		if err != nil {
			st.Status = types.RunStatusError
			st.LastError = err.Error()
			return
		}
		st.Status = types.RunStatusCompleted
		st.LastError = ""
	})
	return receipt, err
}

func (s *Service) executeBatch(ctx context.Context, req consolidation.SingleBatchRequest, runID string, round, total uint32, batch types.Batch) (*types.MergeReceipt, error) {
	emit := func(phase types.Phase) {
		s.emitProgress(req.Observer, types.ProgressEvent{
			RunID: runID, Wallet: req.Wallet, Asset: req.Asset,
			BatchNumber: round, TotalEstimate: total, Phase: phase,
		})
	}

	notes, err := s.refresh(ctx, req.Wallet, req.Asset)
	if err != nil {
		return nil, types.NewConsolidationError(types.ErrorKindLedgerSyncFailed, req.Wallet, req.Asset, round, err)
	}
	batch, missing, err := resolveBatch(notes, batch)
	if err != nil {
		return nil, types.NewConsolidationError(types.ErrorKindInvalidRequest, req.Wallet, req.Asset, round, err)
	}
	if missing > 0 {
		return nil, types.NewConsolidationError(types.ErrorKindPlanStale, req.Wallet, req.Asset, round,
			fmt.Errorf("%d of %d planned notes are no longer unspent", missing, len(batch)))
	}

	emit(types.PhaseSubmitting)
	receipt, err := s.submitter.SubmitMerge(ctx, req.Wallet, req.Asset, batch)
	if err != nil {
		s.metrics.RoundFailed()
		return nil, types.NewConsolidationError(types.ErrorKindMergeSubmissionFailed, req.Wallet, req.Asset, round, err)
	}
	s.metrics.RoundConfirmed()
	s.record(ctx, runID, round, req.Wallet, req.Asset, receipt)

	emit(types.PhaseSyncing)
	if err := s.settler.Settle(ctx, req.Wallet, req.Asset, receipt); err != nil {
		return receipt, types.NewConsolidationError(types.ErrorKindLedgerSyncFailed, req.Wallet, req.Asset, round, err)
	}
	emit(types.PhaseCompleted)

	if s.logger != nil {
		s.logger.Infof("[ConsolidationRunner] 计划批次 %d/%d 已确认 wallet=%s asset=%s tx=%s",
			round, total, req.Wallet, req.Asset, receipt.TxHash.TerminalString())
	}
	return receipt, nil
}

// planBatch 校验计划并取出批次
func (s *Service) planBatch(req consolidation.SingleBatchRequest) (types.Batch, error) {
	plan := req.Plan
	if plan == nil {
		return nil, errors.New("plan 不能为空")
	}
	if plan.Wallet != "" && plan.Wallet != req.Wallet {
		return nil, fmt.Errorf("plan 属于钱包 %s", plan.Wallet)
	}
	if plan.Asset != "" && plan.Asset != req.Asset {
		return nil, fmt.Errorf("plan 属于资产 %s", plan.Asset)
	}
	if req.Index < 0 || req.Index >= len(plan.Batches) {
		return nil, fmt.Errorf("批次序号 %d 越界（共 %d 批）", req.Index, len(plan.Batches))
	}
	batch := plan.Batches[req.Index]
	if len(batch) < 2 || len(batch) > s.FanIn() {
		return nil, fmt.Errorf("批次大小 %d 不在 [2, %d] 内", len(batch), s.FanIn())
	}
	seen := make(map[types.Commitment]struct{}, len(batch))
	for _, n := range batch {
		if n.Asset != req.Asset {
			return nil, fmt.Errorf("票据 %s 不属于资产 %s", n.Commitment.TerminalString(), req.Asset)
		}
		if _, dup := seen[n.Commitment]; dup {
			return nil, fmt.Errorf("票据 %s 在批次中重复出现", n.Commitment.TerminalString())
		}
		seen[n.Commitment] = struct{}{}
	}
	return batch, nil
}

// resolveBatch 用当前快照中的票据替换计划批次
//
// 提交的金额只取自账本快照；计划中声明的金额与快照不一致时返回错误。
// missing 为已不在快照中的票据数。
func resolveBatch(current []types.Note, planned types.Batch) (types.Batch, int, error) {
	index := make(map[types.Commitment]types.Note, len(current))
	for _, n := range current {
		index[n.Commitment] = n
	}
	resolved := make(types.Batch, 0, len(planned))
	missing := 0
	for _, n := range planned {
		found, ok := index[n.Commitment]
		if !ok {
			missing++
			continue
		}
		if !n.Amount.Eq(&found.Amount) {
			return nil, 0, fmt.Errorf("票据 %s 金额与账本不符（计划 %s，账本 %s）",
				n.Commitment.TerminalString(), n.AmountString(), found.AmountString())
		}
		resolved = append(resolved, found)
	}
	if missing > 0 {
		return planned, missing, nil
	}
	return resolved, 0, nil
}
