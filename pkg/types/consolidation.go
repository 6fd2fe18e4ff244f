package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxBatchSize 单次合并的默认最大输入数（扇入）
const DefaultMaxBatchSize = 3

// DefaultMaxIterations 单次运行的默认最大合并轮数
const DefaultMaxIterations = 10

// ConsolidationTarget 定向合并目标
//
// 目标达成条件：存在一个不超过 MaxInputsForSpend 张票据的子集，其金额之和 ≥ TargetAmount。
// 为 nil 时表示"合并到最少票据数"。
type ConsolidationTarget struct {
	TargetAmount      Amount
	MaxInputsForSpend uint8
}

// NewConsolidationTarget 创建定向合并目标
func NewConsolidationTarget(amount Amount, maxInputs uint8) *ConsolidationTarget {
	return &ConsolidationTarget{TargetAmount: amount, MaxInputsForSpend: maxInputs}
}

// String 实现 fmt.Stringer
func (t *ConsolidationTarget) String() string {
	if t == nil {
		return "all"
	}
	return fmt.Sprintf("amount=%s,maxInputs=%d", t.TargetAmount.Dec(), t.MaxInputsForSpend)
}

// Batch 一轮合并的输入票据（2..扇入 张，有序，只消费一次）
type Batch []Note

// Sum 批次金额之和
func (b Batch) Sum() Amount {
	return SumAmounts(b)
}

// Commitments 批次承诺值
func (b Batch) Commitments() []Commitment {
	return Commitments(b)
}

// ============================================================================
//                              枚举类型
// ============================================================================

// RunStatus 运行状态
//
// 状态机：Idle → Running → {Completed, Error}
type RunStatus uint8

const (
	RunStatusIdle RunStatus = iota
	RunStatusRunning
	RunStatusCompleted
	RunStatusError
)

var runStatusNames = map[RunStatus]string{
	RunStatusIdle:      "idle",
	RunStatusRunning:   "running",
	RunStatusCompleted: "completed",
	RunStatusError:     "error",
}

// String 实现 fmt.Stringer
func (s RunStatus) String() string {
	if name, ok := runStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// MarshalText 以名称编码，避免裸整数越过组件边界
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase 进度阶段
type Phase string

const (
	PhaseSubmitting Phase = "submitting"
	PhaseSyncing    Phase = "syncing"
	PhaseCompleted  Phase = "completed"
)

// RunOutcome 运行结果
type RunOutcome uint8

const (
	// OutcomeCompleted 选择器给出终止条件（SelectionTerminal）
	OutcomeCompleted RunOutcome = iota + 1
	// OutcomeNotConverged 达到迭代上限仍未终止（非硬错误）
	OutcomeNotConverged
	// OutcomeFailed 合并提交或账本同步失败
	OutcomeFailed
)

// String 实现 fmt.Stringer
func (o RunOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNotConverged:
		return "not_converged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (o RunOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// TerminalReason 选择器终止原因
type TerminalReason uint8

const (
	TerminalNone TerminalReason = iota
	// TerminalFullyConsolidated 仅剩 ≤1 张票据
	TerminalFullyConsolidated
	// TerminalTargetSpendable 目标金额已可在输入上限内支付
	TerminalTargetSpendable
	// TerminalNothingToMerge 可选批次不足 2 张，无法继续合并
	TerminalNothingToMerge
)

// String 实现 fmt.Stringer
func (r TerminalReason) String() string {
	switch r {
	case TerminalNone:
		return "none"
	case TerminalFullyConsolidated:
		return "fully_consolidated"
	case TerminalTargetSpendable:
		return "target_spendable"
	case TerminalNothingToMerge:
		return "nothing_to_merge"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (r TerminalReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ============================================================================
//                              运行状态与结果
// ============================================================================

// RunState 单次运行的内存状态（不持久化，仅由运行协程修改）
type RunState struct {
	RunID                string    `json:"run_id,omitempty"`
	BatchNumber          uint32    `json:"batch_number"`
	TotalBatchesEstimate uint32    `json:"total_batches_estimate"`
	Status               RunStatus `json:"status"`
	LastError            string    `json:"last_error,omitempty"`
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	RunID         string   `json:"run_id"`
	Wallet        WalletID `json:"wallet"`
	Asset         AssetID  `json:"asset"`
	BatchNumber   uint32   `json:"batch_number"`
	TotalEstimate uint32   `json:"total_estimate"`
	Phase         Phase    `json:"phase"`
}

// MergeReceipt 合并确认回执
type MergeReceipt struct {
	TxHash      common.Hash  `json:"tx_hash"`
	Inputs      []Commitment `json:"inputs"`
	Outputs     []Note       `json:"outputs"`
	ConfirmedAt time.Time    `json:"confirmed_at"`
}

// OutputCommitments 回执产出票据的承诺值，nil 回执返回 nil
func (r *MergeReceipt) OutputCommitments() []Commitment {
	if r == nil {
		return nil
	}
	return Commitments(r.Outputs)
}

// Reflected 判断账本视图是否已反映该回执：输入全部消失且产出全部可见
func (r *MergeReceipt) Reflected(notes []Note) bool {
	if r == nil {
		return true
	}
	return !ContainsAny(notes, r.Inputs) && ContainsAll(notes, r.OutputCommitments())
}

// RunSummary 运行摘要
type RunSummary struct {
	RunID                string          `json:"run_id"`
	Wallet               WalletID        `json:"wallet"`
	Asset                AssetID         `json:"asset"`
	Target               string          `json:"target"`
	Outcome              RunOutcome      `json:"outcome"`
	TerminalReason       TerminalReason  `json:"terminal_reason"`
	RoundsCompleted      uint32          `json:"rounds_completed"`
	TotalBatchesEstimate uint32          `json:"total_batches_estimate"`
	InitialNoteCount     int             `json:"initial_note_count"`
	FinalNoteCount       int             `json:"final_note_count"`
	Receipts             []*MergeReceipt `json:"receipts,omitempty"`
	StartedAt            time.Time       `json:"started_at"`
	FinishedAt           time.Time       `json:"finished_at"`
}

// Duration 运行耗时
func (s *RunSummary) Duration() time.Duration {
	if s == nil || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ConsolidationPlan 外部预先计算的合并计划（按轮逐批执行）
type ConsolidationPlan struct {
	Wallet  WalletID `json:"wallet"`
	Asset   AssetID  `json:"asset"`
	Batches []Batch  `json:"batches"`
}

// Advisory 监控器给出的合并建议
type Advisory struct {
	Wallet             WalletID  `json:"wallet"`
	Asset              AssetID   `json:"asset"`
	NoteCount          int       `json:"note_count"`
	DustCount          int       `json:"dust_count"`
	FragmentationScore uint8     `json:"fragmentation_score"`
	Reasons            []string  `json:"reasons"`
	EvaluatedAt        time.Time `json:"evaluated_at"`
}

// Advised 是否建议合并
func (a *Advisory) Advised() bool {
	return a != nil && len(a.Reasons) > 0
}

// String 实现 fmt.Stringer
func (a *Advisory) String() string {
	data, _ := json.Marshal(a)
	return string(data)
}
