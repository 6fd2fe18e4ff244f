// Package consolidation 提供票据合并调度的公共接口定义
//
// 📋 **collaborators.go - 外部协作者接口**
//
// 调度器只通过以下接口与外部世界交互：
//   - NoteScanner：账本扫描（可能带缓存），配合 InvalidateNoteCache 使用
//   - MergeSubmitter：合并交易构建、证明生成与提交（阻塞至链上确认）
//   - FragmentationScorer：碎片化评分（仅供监控器参考）
//
// 实现位置:
//   - internal/core/notes（CachedScanner / SimLedger）
package consolidation

import (
	"context"

	"github.com/weisyn/consolidator/pkg/types"
)

// NoteSource 未缓存的账本视图（索引器 / 钱包同步器）
type NoteSource interface {
	// ListNotes 返回指定钱包、资产的当前未花费票据
	ListNotes(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error)
}

// NoteScanner 账本扫描接口
//
// ScanNotes 的结果可以被缓存；调度器每轮选批前都会先调用 InvalidateNoteCache。
type NoteScanner interface {
	// ScanNotes 获取当前未花费票据（顺序无意义）
	ScanNotes(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error)

	// InvalidateNoteCache 使该钱包所有资产的缓存失效，下一次 ScanNotes 必须绕过缓存
	InvalidateNoteCache(ctx context.Context, wallet types.WalletID) error
}

// MergeSubmitter 合并原语
type MergeSubmitter interface {
	// SubmitMerge 提交一次合并并阻塞直到链上确认或失败
	//
	// 参数:
	//   batch: 2..扇入 张同资产票据
	//
	// 返回:
	//   *types.MergeReceipt: 确认回执（包含新产生的票据）
	//   error: 提交、证明或确认失败
	SubmitMerge(ctx context.Context, wallet types.WalletID, asset types.AssetID, batch types.Batch) (*types.MergeReceipt, error)
}

// FragmentationScorer 碎片化评分器
type FragmentationScorer interface {
	// Score 返回 0..100，越高越碎片化
	Score(notes []types.Note) uint8
}

// ScorerFunc 函数适配器
type ScorerFunc func(notes []types.Note) uint8

// Score 实现 FragmentationScorer
func (f ScorerFunc) Score(notes []types.Note) uint8 {
	return f(notes)
}
