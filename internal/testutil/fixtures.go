package testutil

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/consolidator/pkg/types"
)

// ==================== 测试数据 ====================

const (
	// TestWallet 测试钱包
	TestWallet types.WalletID = "wallet-test"
	// TestAsset 测试资产
	TestAsset types.AssetID = "USDC"
	// OtherAsset 另一资产（并发测试）
	OtherAsset types.AssetID = "WETH"
)

// Commitment 由序号生成确定性承诺值
func Commitment(i int) types.Commitment {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	return common.BytesToHash(buf[:])
}

// Notes 按金额生成票据，承诺值依次为 Commitment(1..n)
func Notes(asset types.AssetID, amounts ...uint64) []types.Note {
	notes := make([]types.Note, 0, len(amounts))
	for i, a := range amounts {
		notes = append(notes, types.NewNote(Commitment(i+1), types.AmountFromUint64(a), asset))
	}
	return notes
}

// Amounts 提取金额（保持输入顺序）
func Amounts(notes []types.Note) []uint64 {
	out := make([]uint64, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Amount.Uint64())
	}
	return out
}

// AmountList 将 uint64 转为金额列表（用于 SimLedger.Seed）
func AmountList(amounts ...uint64) []types.Amount {
	out := make([]types.Amount, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, types.AmountFromUint64(a))
	}
	return out
}
