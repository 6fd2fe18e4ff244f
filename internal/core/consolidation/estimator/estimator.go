// Package estimator 估算剩余合并轮数
//
// 估算值只用于进度展示，从不参与终止判断。
package estimator

import (
	"sync"

	"github.com/weisyn/consolidator/pkg/types"
)

// Unbounded 非定向合并的轮数估算：ceil(log(noteCount) / log(fanIn))，下限 0
//
// 使用整数运算：求满足 fanIn^r ≥ noteCount 的最小 r。
func Unbounded(noteCount, fanIn int) uint32 {
	if noteCount <= 1 {
		return 0
	}
	if fanIn < 2 {
		fanIn = 2
	}
	var rounds uint32
	for capacity := 1; capacity < noteCount; capacity *= fanIn {
		rounds++
	}
	return rounds
}

// Targeted 定向合并的轮数估算：ceil((needed − maxInputs) / (fanIn − 1))，needed ≤ maxInputs 时为 0
func Targeted(notesNeeded, maxInputs, fanIn int) uint32 {
	if notesNeeded <= maxInputs {
		return 0
	}
	if fanIn < 2 {
		fanIn = 2
	}
	excess := notesNeeded - maxInputs
	step := fanIn - 1
	return uint32((excess + step - 1) / step)
}

// FromHere 根据当前快照估算从本轮起还需要的轮数
func FromHere(noteCount, notesNeeded int, target *types.ConsolidationTarget, fanIn int) uint32 {
	if target == nil {
		return Unbounded(noteCount, fanIn)
	}
	return Targeted(notesNeeded, int(target.MaxInputsForSpend), fanIn)
}

// Tracker 单次运行内的估算跟踪器，保证对外报告的总轮数不回退
type Tracker struct {
	mu    sync.Mutex
	prior uint32
}

// Report 记录第 batchNumber 轮开始前的估算，返回对外报告的总轮数
//
// 返回 max(上次报告值, 已完成轮数 + 本轮起估算值, batchNumber)。
func (t *Tracker) Report(batchNumber, fromHere uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var completed uint32
	if batchNumber > 0 {
		completed = batchNumber - 1
	}
	total := max(t.prior, completed+fromHere, batchNumber)
	t.prior = total
	return total
}

// Current 当前报告值
func (t *Tracker) Current() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prior
}
