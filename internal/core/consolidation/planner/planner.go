// Package planner 生成分层合并计划
//
// 计划把当前快照（最小优先）切成互不相交的批次，每批最多 fanIn 张，
// 末尾落单的一张不进入计划。执行方可以按批调用 RunSingleBatch，自行控制节奏。
package planner

import (
	"github.com/weisyn/consolidator/internal/core/consolidation/selector"
	"github.com/weisyn/consolidator/pkg/types"
)

// BuildLayerPlan 基于当前快照生成一层合并计划
func BuildLayerPlan(wallet types.WalletID, asset types.AssetID, notes []types.Note, fanIn int) *types.ConsolidationPlan {
	fanIn = selector.ClampBatchSize(fanIn)
	sorted := types.SortNotes(notes)

	plan := &types.ConsolidationPlan{Wallet: wallet, Asset: asset, Batches: []types.Batch{}}
	for start := 0; start < len(sorted); start += fanIn {
		end := min(start+fanIn, len(sorted))
		if end-start < selector.MinBatchSize {
			break
		}
		plan.Batches = append(plan.Batches, types.Batch(sorted[start:end]))
	}
	return plan
}

// NotesAfter 计划全部执行后的票据数
func NotesAfter(noteCount int, plan *types.ConsolidationPlan) int {
	if plan == nil {
		return noteCount
	}
	after := noteCount
	for _, b := range plan.Batches {
		after -= len(b) - 1
	}
	return after
}
