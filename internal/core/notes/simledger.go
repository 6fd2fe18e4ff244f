package notes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	simulatorconfig "github.com/weisyn/consolidator/internal/config/simulator"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

// 模拟账本错误
var (
	ErrNoteSpent     = errors.New("simledger: note already spent or unknown")
	ErrAssetMismatch = errors.New("simledger: note asset mismatch")
	ErrBatchTooSmall = errors.New("simledger: merge needs at least 2 inputs")
	ErrDuplicateNote = errors.New("simledger: note appears twice in batch")
)

type ledgerKey struct {
	wallet types.WalletID
	asset  types.AssetID
}

// pendingMerge 已确认但尚未对扫描可见的合并
type pendingMerge struct {
	key       ledgerKey
	inputs    []types.Note
	output    types.Note
	visibleAt time.Time
}

// SimLedger 内存账本模拟器
//
// 同时实现 NoteSource、NoteScanner 与 MergeSubmitter，供 CLI simulate、
// serve 开发模式与测试使用。合并校验输入未花费且属于同一资产，
// 移除输入并产生一张金额为输入之和的新票据。
type SimLedger struct {
	mu sync.Mutex

	notes   map[ledgerKey][]types.Note
	pending []pendingMerge

	confirmLatency time.Duration
	visibilityLag  time.Duration

	// 故障注入：按提交序号（从 1 开始）失败
	mergeFailures map[int]error
	scanFailures  []error
	merges        int
	scans         int
	invalidations int

	clock  clock.Clock
	logger log.Logger
}

// NewSimLedger 创建模拟账本；options 可为 nil
func NewSimLedger(options *simulatorconfig.SimulatorOptions, clk clock.Clock, logger log.Logger) *SimLedger {
	if clk == nil {
		clk = clockimpl.NewSystemClock()
	}
	l := &SimLedger{
		notes:         make(map[ledgerKey][]types.Note),
		mergeFailures: make(map[int]error),
		clock:         clk,
		logger:        logger,
	}
	if options != nil {
		l.confirmLatency = options.ConfirmLatency
		l.visibilityLag = options.VisibilityLag
		for _, seed := range options.Seeds {
			l.Seed(seed.Wallet, seed.Asset, seed.Amounts...)
		}
	}
	return l
}

// Seed 为 (钱包, 资产) 添加票据，返回新票据
func (l *SimLedger) Seed(wallet types.WalletID, asset types.AssetID, amounts ...types.Amount) []types.Note {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{wallet, asset}
	created := make([]types.Note, 0, len(amounts))
	for _, amount := range amounts {
		n := types.NewNote(newCommitment(), amount, asset)
		l.notes[key] = append(l.notes[key], n)
		created = append(created, n)
	}
	return created
}

// FailMergeAt 第 call 次（从 1 开始计数）合并提交返回 err
func (l *SimLedger) FailMergeAt(call int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeFailures[call] = err
}

// FailNextScan 下一次扫描返回 err
func (l *SimLedger) FailNextScan(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scanFailures = append(l.scanFailures, err)
}

// MergeCount 已提交的合并次数（包括失败的）
func (l *SimLedger) MergeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.merges
}

// ScanCount 扫描次数
func (l *SimLedger) ScanCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scans
}

// InvalidationCount 缓存失效次数
func (l *SimLedger) InvalidationCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invalidations
}

// Amounts 当前可见票据金额（测试辅助，升序）
func (l *SimLedger) Amounts(wallet types.WalletID, asset types.AssetID) []uint64 {
	notes, _ := l.ListNotes(context.Background(), wallet, asset)
	sorted := types.SortNotes(notes)
	out := make([]uint64, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, n.Amount.Uint64())
	}
	return out
}

// ListNotes 实现 NoteSource：返回当前对扫描可见的票据
func (l *SimLedger) ListNotes(_ context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scans++
	if len(l.scanFailures) > 0 {
		err := l.scanFailures[0]
		l.scanFailures = l.scanFailures[1:]
		return nil, err
	}

	key := ledgerKey{wallet, asset}
	view := append([]types.Note(nil), l.notes[key]...)

	// 尚未可见的合并：回滚为合并前的视图
	now := l.clock.Now()
	for _, p := range l.pending {
		if p.key != key || !now.Before(p.visibleAt) {
			continue
		}
		view = removeNotes(view, []types.Commitment{p.output.Commitment})
		view = append(view, p.inputs...)
	}
	return view, nil
}

// ScanNotes 实现 NoteScanner（模拟器没有缓存）
func (l *SimLedger) ScanNotes(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error) {
	return l.ListNotes(ctx, wallet, asset)
}

// InvalidateNoteCache 实现 NoteScanner，只计数
func (l *SimLedger) InvalidateNoteCache(context.Context, types.WalletID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidations++
	return nil
}

// SubmitMerge 实现 MergeSubmitter：阻塞 confirmLatency 后确认
func (l *SimLedger) SubmitMerge(ctx context.Context, wallet types.WalletID, asset types.AssetID, batch types.Batch) (*types.MergeReceipt, error) {
	l.mu.Lock()
	l.merges++
	call := l.merges
	injected := l.mergeFailures[call]
	l.mu.Unlock()

	if injected != nil {
		return nil, injected
	}
	if len(batch) < 2 {
		return nil, ErrBatchTooSmall
	}

	if l.confirmLatency > 0 {
		timer := time.NewTimer(l.confirmLatency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{wallet, asset}
	current := l.notes[key]
	// 金额以账本中存储的票据为准，不信任调用方传入的金额
	stored := make([]types.Note, 0, len(batch))
	seen := make(map[types.Commitment]struct{}, len(batch))
	for _, in := range batch {
		if in.Asset != asset {
			return nil, fmt.Errorf("%w: %s", ErrAssetMismatch, in.Commitment.TerminalString())
		}
		if _, dup := seen[in.Commitment]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNote, in.Commitment.TerminalString())
		}
		seen[in.Commitment] = struct{}{}
		note, ok := findNote(current, in.Commitment)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoteSpent, in.Commitment.TerminalString())
		}
		stored = append(stored, note)
	}

	inputs := batch.Commitments()
	output := types.NewNote(newCommitment(), types.SumAmounts(stored), asset)
	l.notes[key] = append(removeNotes(current, inputs), output)

	now := l.clock.Now()
	if l.visibilityLag > 0 {
		l.pending = append(l.pending, pendingMerge{
			key:       key,
			inputs:    stored,
			output:    output,
			visibleAt: now.Add(l.visibilityLag),
		})
	}

	if l.logger != nil {
		l.logger.Debugf("[SimLedger] 合并确认 wallet=%s asset=%s inputs=%d output=%s",
			wallet, asset, len(batch), output.AmountString())
	}

	return &types.MergeReceipt{
		TxHash:      newCommitment(),
		Inputs:      inputs,
		Outputs:     []types.Note{output},
		ConfirmedAt: now,
	}, nil
}

// newCommitment 由两个随机 UUID 拼出 32 字节承诺值
func newCommitment() common.Hash {
	a, b := uuid.New(), uuid.New()
	var h common.Hash
	copy(h[:16], a[:])
	copy(h[16:], b[:])
	return h
}

func findNote(notes []types.Note, c types.Commitment) (types.Note, bool) {
	for i := range notes {
		if notes[i].Commitment == c {
			return notes[i], true
		}
	}
	return types.Note{}, false
}

func removeNotes(notes []types.Note, remove []types.Commitment) []types.Note {
	out := make([]types.Note, 0, len(notes))
	for _, n := range notes {
		if !types.ContainsAny([]types.Note{n}, remove) {
			out = append(out, n)
		}
	}
	return out
}

var (
	_ consolidation.NoteSource     = (*SimLedger)(nil)
	_ consolidation.NoteScanner    = (*SimLedger)(nil)
	_ consolidation.MergeSubmitter = (*SimLedger)(nil)
)
