// Package types 定义票据合并调度器的核心数据类型
//
// 🎯 **设计定位**：跨层共享的纯数据定义，不包含任何业务流程
//
// 📋 **核心类型**：
// - Note：机密余额碎片（类似 UTXO），由承诺值唯一标识
// - NoteSet：按资产分组的票据集合，每轮调度都重新获取
// - Amount：u128 金额（基于 uint256 实现，限制在 128 位以内）
//
// ⚠️ **核心约束**：
// - Note 一经观测即不可变；合并产生新票据，旧票据从扫描结果中消失
// - 调度器在选择批次前总是按金额升序重新排序
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxAmountBits 金额的最大位宽（u128）
const MaxAmountBits = 128

// Commitment 票据承诺值（bytes32，唯一标识）
type Commitment = common.Hash

// AssetID 资产标识
type AssetID string

// WalletID 钱包标识
type WalletID string

// Amount 票据金额（非负，≤ 2^128-1）
type Amount = uint256.Int

// ParseAmount 从十进制字符串解析金额
//
// 拒绝负数、非十进制格式以及超过 u128 范围的值。
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if s == "" {
		return a, fmt.Errorf("金额不能为空")
	}
	if err := a.SetFromDecimal(s); err != nil {
		return a, fmt.Errorf("无效的金额格式 %q: %w", s, err)
	}
	if a.BitLen() > MaxAmountBits {
		return a, fmt.Errorf("金额超出 u128 范围: %s", s)
	}
	return a, nil
}

// MustAmount 解析金额，失败时 panic（仅用于常量与测试夹具）
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromUint64 由 uint64 构造金额
func AmountFromUint64(v uint64) Amount {
	return *uint256.NewInt(v)
}

// Note 机密余额碎片
type Note struct {
	// Commitment 承诺值，票据唯一身份
	Commitment Commitment `json:"commitment"`

	// Amount 金额（JSON 编码见 MarshalJSON）
	Amount Amount `json:"-"`

	// Asset 所属资产
	Asset AssetID `json:"asset"`
}

// NewNote 创建票据
func NewNote(commitment Commitment, amount Amount, asset AssetID) Note {
	return Note{Commitment: commitment, Amount: amount, Asset: asset}
}

// AmountString 以十进制字符串返回金额
func (n Note) AmountString() string {
	return n.Amount.Dec()
}

// String 实现 fmt.Stringer
func (n Note) String() string {
	return fmt.Sprintf("%s:%s@%s", n.Asset, n.Amount.Dec(), n.Commitment.TerminalString())
}

// noteJSON 票据的 JSON 表示（金额以十进制字符串编码，避免精度丢失）
type noteJSON struct {
	Commitment Commitment `json:"commitment"`
	Amount     string     `json:"amount"`
	Asset      AssetID    `json:"asset"`
}

// MarshalJSON 实现 json.Marshaler
func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(noteJSON{
		Commitment: n.Commitment,
		Amount:     n.Amount.Dec(),
		Asset:      n.Asset,
	})
}

// UnmarshalJSON 实现 json.Unmarshaler
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw noteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return err
	}
	n.Commitment = raw.Commitment
	n.Amount = amount
	n.Asset = raw.Asset
	return nil
}

// NoteSet 按资产分组的票据集合
//
// 插入顺序无意义；选择批次前总是重新排序。
type NoteSet map[AssetID][]Note

// Notes 返回指定资产的票据副本
func (s NoteSet) Notes(asset AssetID) []Note {
	notes := s[asset]
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}

// Count 返回指定资产的票据数量
func (s NoteSet) Count(asset AssetID) int {
	return len(s[asset])
}

// compareNotes 确定性排序：金额升序 → 承诺值字节序升序
func compareNotes(a, b *Note) int {
	if c := a.Amount.Cmp(&b.Amount); c != 0 {
		return c
	}
	return bytes.Compare(a.Commitment[:], b.Commitment[:])
}

// SortNotes 返回按金额升序排列的新切片（金额相同按承诺值字节序），不修改输入
func SortNotes(notes []Note) []Note {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareNotes(&sorted[i], &sorted[j]) < 0
	})
	return sorted
}

// SumAmounts 计算票据金额总和
//
// 溢出时饱和到 uint256 最大值；调用方在 u128 约束下不会触发。
func SumAmounts(notes []Note) Amount {
	var sum Amount
	for i := range notes {
		if _, overflow := sum.AddOverflow(&sum, &notes[i].Amount); overflow {
			sum.SetAllOne()
			return sum
		}
	}
	return sum
}

// Commitments 提取票据承诺值列表
func Commitments(notes []Note) []Commitment {
	out := make([]Commitment, 0, len(notes))
	for i := range notes {
		out = append(out, notes[i].Commitment)
	}
	return out
}

// ContainsAll 判断 set 里的承诺值是否全部出现在 notes 中
func ContainsAll(notes []Note, set []Commitment) bool {
	if len(set) == 0 {
		return true
	}
	present := make(map[Commitment]struct{}, len(notes))
	for i := range notes {
		present[notes[i].Commitment] = struct{}{}
	}
	for _, c := range set {
		if _, ok := present[c]; !ok {
			return false
		}
	}
	return true
}

// ContainsAny 判断 notes 中是否包含 set 里的任一承诺值
func ContainsAny(notes []Note, set []Commitment) bool {
	if len(set) == 0 {
		return false
	}
	index := make(map[Commitment]struct{}, len(set))
	for _, c := range set {
		index[c] = struct{}{}
	}
	for i := range notes {
		if _, ok := index[notes[i].Commitment]; ok {
			return true
		}
	}
	return false
}
