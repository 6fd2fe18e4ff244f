// Package selector 提供合并批次选择策略实现
//
// 🎯 **设计定位**：纯函数，无副作用，不访问账本
//
// 📋 **核心职责**：
// - 按金额从小到大排序（金额相同按承诺值字节序），给出下一轮要合并的批次
// - 未指定目标时：取最小的 min(扇入, n) 张票据
// - 指定目标时：最小优先累加直到覆盖目标金额，只在"目标所需票据"中选批，
//   从不把更大的非必需票据卷入合并
//
// ⚠️ **核心约束**：
// - 不修改输入切片
// - 同一输入多次调用结果相同
package selector

import (
	"fmt"

	"github.com/weisyn/consolidator/pkg/types"
)

// MinBatchSize 单次合并的最少输入数（单张票据不能与自身合并）
const MinBatchSize = 2

// Selection 选择结果：终止 或 批次
type Selection struct {
	// Terminal 为 true 时 Batch 为空，Reason 给出终止原因
	Terminal bool
	Reason   types.TerminalReason

	// Batch 下一轮要合并的票据（升序）
	Batch types.Batch

	// NotesNeeded 定向模式下覆盖目标所需的票据数 k；非定向模式为全部票据数
	NotesNeeded int

	// Sum 定向模式下前 k 张的累加金额；非定向模式为全部票据金额
	Sum types.Amount
}

// String 实现 fmt.Stringer
func (s Selection) String() string {
	if s.Terminal {
		return fmt.Sprintf("terminal(%s)", s.Reason)
	}
	return fmt.Sprintf("batch(size=%d, needed=%d)", len(s.Batch), s.NotesNeeded)
}

// ClampBatchSize 将扇入限制在 [MinBatchSize, 255] 内
func ClampBatchSize(maxBatchSize int) int {
	if maxBatchSize < MinBatchSize {
		return MinBatchSize
	}
	if maxBatchSize > 255 {
		return 255
	}
	return maxBatchSize
}

// Select 给出下一轮合并批次或终止原因
//
// 参数：
//   - notes: 单一资产的当前未花费票据（任意顺序）
//   - target: 定向目标，nil 表示合并到最少票据数
//   - maxBatchSize: 扇入上限，小于 2 时按 2 处理
func Select(notes []types.Note, target *types.ConsolidationTarget, maxBatchSize int) Selection {
	fanIn := ClampBatchSize(maxBatchSize)
	sorted := types.SortNotes(notes)

	if target == nil {
		return selectAll(sorted, fanIn)
	}
	return selectForTarget(sorted, target, fanIn)
}

// selectAll 非定向模式
func selectAll(sorted []types.Note, fanIn int) Selection {
	sel := Selection{NotesNeeded: len(sorted), Sum: types.SumAmounts(sorted)}
	if len(sorted) <= 1 {
		sel.Terminal = true
		sel.Reason = types.TerminalFullyConsolidated
		return sel
	}
	sel.Batch = types.Batch(sorted[:min(fanIn, len(sorted))])
	return sel
}

// selectForTarget 定向模式
func selectForTarget(sorted []types.Note, target *types.ConsolidationTarget, fanIn int) Selection {
	k, sum := accumulate(sorted, &target.TargetAmount)
	sel := Selection{NotesNeeded: k, Sum: sum}

	if k <= int(target.MaxInputsForSpend) && sum.Cmp(&target.TargetAmount) >= 0 {
		sel.Terminal = true
		sel.Reason = types.TerminalTargetSpendable
		return sel
	}

	size := min(fanIn, k)
	if size < MinBatchSize {
		sel.Terminal = true
		sel.Reason = types.TerminalNothingToMerge
		return sel
	}
	sel.Batch = types.Batch(sorted[:size])
	return sel
}

// accumulate 最小优先累加，直到 sum ≥ target 或票据耗尽；返回使用的票据数与累加和
func accumulate(sorted []types.Note, target *types.Amount) (int, types.Amount) {
	var sum types.Amount
	k := 0
	for k < len(sorted) && sum.Cmp(target) < 0 {
		sum.Add(&sum, &sorted[k].Amount)
		k++
	}
	return k, sum
}
