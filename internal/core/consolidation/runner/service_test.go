package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	simulatorconfig "github.com/weisyn/consolidator/internal/config/simulator"
	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	"github.com/weisyn/consolidator/internal/core/consolidation/metrics"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	eventimpl "github.com/weisyn/consolidator/internal/core/infrastructure/event"
	"github.com/weisyn/consolidator/internal/core/notes"
	"github.com/weisyn/consolidator/internal/testutil"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

const (
	wallet = testutil.TestWallet
	asset  = testutil.TestAsset
)

// ==================== 测试辅助 ====================

var (
	// 确认后一小时内扫描仍返回旧视图
	simOptionsLag = simulatorconfig.SimulatorOptions{VisibilityLag: time.Hour}
	// 确认后 3 秒可见
	simOptionsShortLag = simulatorconfig.SimulatorOptions{VisibilityLag: 3 * time.Second}
)

func testOptions() *consolidationconfig.ConsolidationOptions {
	opts := consolidationconfig.DefaultConsolidationOptions()
	opts.SettleDelay = 0
	return opts
}

func newLedger(amounts ...uint64) *notes.SimLedger {
	ledger := notes.NewSimLedger(nil, nil, nil)
	ledger.Seed(wallet, asset, testutil.AmountList(amounts...)...)
	return ledger
}

func newService(t *testing.T, ledger *notes.SimLedger, mutate func(*Deps)) *Service {
	t.Helper()
	deps := Deps{
		Scanner:   ledger,
		Submitter: ledger,
		Options:   testOptions(),
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Logger:    testutil.NewTestLogger(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	svc, err := NewService(deps)
	require.NoError(t, err)
	return svc
}

func target(amount uint64, maxInputs uint8) *types.ConsolidationTarget {
	return types.NewConsolidationTarget(types.AmountFromUint64(amount), maxInputs)
}

// blockingSubmitter 第一次提交阻塞直到 release 关闭
type blockingSubmitter struct {
	inner   consolidation.MergeSubmitter
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSubmitter(inner consolidation.MergeSubmitter) *blockingSubmitter {
	return &blockingSubmitter{inner: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSubmitter) SubmitMerge(ctx context.Context, w types.WalletID, a types.AssetID, batch types.Batch) (*types.MergeReceipt, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.inner.SubmitMerge(ctx, w, a, batch)
}

// ==================== 构造 ====================

func TestNewService_RequiresCollaborators(t *testing.T) {
	ledger := newLedger()
	_, err := NewService(Deps{Submitter: ledger})
	assert.Error(t, err)
	_, err = NewService(Deps{Scanner: ledger})
	assert.Error(t, err)

	bad := testOptions()
	bad.MaxBatchSize = 1
	_, err = NewService(Deps{Scanner: ledger, Submitter: ledger, Options: bad})
	assert.Error(t, err)
}

// ==================== 场景 ====================

func TestRun_FullConsolidation(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	svc := newService(t, ledger, nil)
	observer := &testutil.RecordingObserver{}

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{
		Wallet: wallet, Asset: asset, Observer: observer,
	})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeCompleted, summary.Outcome)
	assert.Equal(t, types.TerminalFullyConsolidated, summary.TerminalReason)
	assert.Equal(t, uint32(2), summary.RoundsCompleted)
	assert.Equal(t, 4, summary.InitialNoteCount)
	assert.Equal(t, 1, summary.FinalNoteCount)
	require.Len(t, summary.Receipts, 2)
	assert.Equal(t, uint64(7), summary.Receipts[0].Outputs[0].Amount.Uint64())
	assert.Equal(t, uint64(15), summary.Receipts[1].Outputs[0].Amount.Uint64())
	assert.Equal(t, []uint64{15}, ledger.Amounts(wallet, asset))

	assert.Equal(t, []types.Phase{
		types.PhaseSubmitting, types.PhaseSyncing,
		types.PhaseSubmitting, types.PhaseSyncing,
		types.PhaseCompleted,
	}, observer.Phases())
	for _, e := range observer.Events() {
		assert.Equal(t, uint32(2), e.TotalEstimate, "估算值不应回退")
		assert.Equal(t, summary.RunID, e.RunID)
	}

	state := svc.State(wallet, asset)
	assert.Equal(t, types.RunStatusCompleted, state.Status)
	assert.Equal(t, uint32(2), state.BatchNumber)
	assert.False(t, svc.IsRunning(wallet, asset))
}

func TestRun_TargetedEarlyStop(t *testing.T) {
	ledger := newLedger(1, 1, 1, 50)
	svc := newService(t, ledger, nil)

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{
		Wallet: wallet, Asset: asset, Target: target(40, 2),
	})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeCompleted, summary.Outcome)
	assert.Equal(t, types.TerminalTargetSpendable, summary.TerminalReason)
	assert.Equal(t, uint32(1), summary.RoundsCompleted)
	assert.Equal(t, []uint64{3, 50}, ledger.Amounts(wallet, asset))
}

func TestRun_TwoNotesSingleInputTarget(t *testing.T) {
	t.Run("合并后可支付", func(t *testing.T) {
		ledger := newLedger(10, 20)
		svc := newService(t, ledger, nil)

		summary, err := svc.Run(context.Background(), consolidation.RunRequest{
			Wallet: wallet, Asset: asset, Target: target(25, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, types.TerminalTargetSpendable, summary.TerminalReason)
		assert.Equal(t, uint32(1), summary.RoundsCompleted)
	})

	t.Run("余额永远不足", func(t *testing.T) {
		ledger := newLedger(10, 20)
		svc := newService(t, ledger, nil)

		summary, err := svc.Run(context.Background(), consolidation.RunRequest{
			Wallet: wallet, Asset: asset, Target: target(1000, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeCompleted, summary.Outcome)
		assert.Equal(t, types.TerminalNothingToMerge, summary.TerminalReason)
		assert.Equal(t, uint32(1), summary.RoundsCompleted)
	})
}

func TestRun_IterationCeiling(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	svc := newService(t, ledger, nil)

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{
		Wallet: wallet, Asset: asset, MaxIterations: 1,
	})
	require.NoError(t, err, "未收敛不是硬错误")
	assert.Equal(t, types.OutcomeNotConverged, summary.Outcome)
	assert.Equal(t, types.TerminalNone, summary.TerminalReason)
	assert.Equal(t, uint32(1), summary.RoundsCompleted)
	assert.Equal(t, 1, ledger.MergeCount())
	assert.Equal(t, types.RunStatusCompleted, svc.State(wallet, asset).Status)
}

func TestRun_TerminatesAndReducesMonotonically(t *testing.T) {
	for n := 0; n <= 12; n++ {
		amounts := make([]uint64, n)
		for i := range amounts {
			amounts[i] = uint64(i + 1)
		}
		ledger := newLedger(amounts...)
		svc := newService(t, ledger, nil)

		counts := []int{n}
		observer := consolidation.ProgressFunc(func(e types.ProgressEvent) {
			if e.Phase == types.PhaseSyncing {
				counts = append(counts, len(ledger.Amounts(wallet, asset)))
			}
		})

		summary, err := svc.Run(context.Background(), consolidation.RunRequest{
			Wallet: wallet, Asset: asset, MaxIterations: 20, Observer: observer,
		})
		require.NoError(t, err)
		assert.Equal(t, types.OutcomeCompleted, summary.Outcome, "n=%d", n)
		assert.LessOrEqual(t, summary.FinalNoteCount, 1, "n=%d", n)

		for i := 1; i < len(counts); i++ {
			batchSize := len(summary.Receipts[i-1].Inputs)
			assert.Equal(t, counts[i-1]-(batchSize-1), counts[i], "n=%d round=%d", n, i)
		}
	}
}

// ==================== 错误处理 ====================

func TestRun_MergeFailureMidRun(t *testing.T) {
	// 7 张票据需要 3 轮：7 → 5 → 3 → 1
	ledger := newLedger(1, 1, 1, 1, 1, 1, 1)
	boom := errors.New("prover unavailable")
	ledger.FailMergeAt(2, boom)
	svc := newService(t, ledger, nil)

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMergeSubmissionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, types.ErrorKindMergeSubmissionFailed, types.KindOf(err))

	require.NotNil(t, summary, "失败时返回部分进度")
	assert.Equal(t, types.OutcomeFailed, summary.Outcome)
	assert.Equal(t, uint32(1), summary.RoundsCompleted)
	assert.Len(t, summary.Receipts, 1)

	state := svc.State(wallet, asset)
	assert.Equal(t, types.RunStatusError, state.Status)
	assert.NotEmpty(t, state.LastError)
	assert.False(t, svc.IsRunning(wallet, asset), "锁必须释放")

	// 再次调用被接受，并从重新扫描的快照开始
	summary, err = svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 5, summary.InitialNoteCount)
	assert.Equal(t, uint32(2), summary.RoundsCompleted)
	assert.Equal(t, []uint64{7}, ledger.Amounts(wallet, asset))
}

func TestRun_ScanFailure(t *testing.T) {
	ledger := newLedger(1, 2, 3)
	ledger.FailNextScan(errors.New("indexer offline"))
	svc := newService(t, ledger, nil)

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	assert.ErrorIs(t, err, types.ErrLedgerSyncFailed)
	require.NotNil(t, summary)
	assert.Equal(t, types.OutcomeFailed, summary.Outcome)
	assert.Equal(t, uint32(0), summary.RoundsCompleted)
	assert.Equal(t, 0, ledger.MergeCount())
	assert.False(t, svc.IsRunning(wallet, asset))
}

func TestRun_StaleViewAborts(t *testing.T) {
	clk := clockimpl.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	stale := notes.NewSimLedger(&simOptionsLag, clk, nil)
	stale.Seed(wallet, asset, testutil.AmountList(1, 2, 4, 8)...)

	svc := newService(t, stale, nil)
	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})

	assert.ErrorIs(t, err, types.ErrLedgerSyncFailed)
	assert.ErrorIs(t, err, errStaleView)
	require.NotNil(t, summary)
	assert.Equal(t, uint32(1), summary.RoundsCompleted)
	assert.Equal(t, 1, stale.MergeCount(), "旧视图上不得再次提交合并")
}

// outputLagScanner 输入消失后，新出现的票据还要再等 lag 次扫描才可见；lag 为负时永不可见
type outputLagScanner struct {
	*notes.SimLedger
	lag     int
	mu      sync.Mutex
	pending map[types.Commitment]int
}

func newOutputLagScanner(ledger *notes.SimLedger, lag int) *outputLagScanner {
	s := &outputLagScanner{SimLedger: ledger, lag: lag, pending: make(map[types.Commitment]int)}
	seeded, _ := ledger.ListNotes(context.Background(), wallet, asset)
	for _, n := range seeded {
		s.pending[n.Commitment] = 0
	}
	return s
}

func (s *outputLagScanner) ScanNotes(ctx context.Context, w types.WalletID, a types.AssetID) ([]types.Note, error) {
	current, err := s.SimLedger.ScanNotes(ctx, w, a)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := make([]types.Note, 0, len(current))
	for _, n := range current {
		left, known := s.pending[n.Commitment]
		if !known {
			left = s.lag
		}
		switch {
		case left < 0:
			s.pending[n.Commitment] = left
		case left > 0:
			s.pending[n.Commitment] = left - 1
		default:
			visible = append(visible, n)
		}
	}
	return visible, nil
}

func TestRun_MissingOutputIsStaleView(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	// 产出票据永远不可见
	scanner := newOutputLagScanner(ledger, -1)
	svc := newService(t, ledger, func(d *Deps) { d.Scanner = scanner })

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	assert.ErrorIs(t, err, types.ErrLedgerSyncFailed)
	assert.ErrorIs(t, err, errStaleView)
	require.NotNil(t, summary)
	assert.NotEqual(t, types.OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 1, ledger.MergeCount())
}

func TestRun_PollSettleWaitsForOutputs(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	scanner := newOutputLagScanner(ledger, 2)
	polls := 0
	settler := &PollSettler{
		Scanner:  scanner,
		Interval: time.Second,
		Timeout:  time.Minute,
		Sleep: func(context.Context, time.Duration) error {
			polls++
			return nil
		},
	}
	svc := newService(t, ledger, func(d *Deps) { d.Scanner = scanner; d.Settler = settler })

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	require.NoError(t, err)
	assert.Equal(t, types.TerminalFullyConsolidated, summary.TerminalReason)
	assert.Equal(t, []uint64{15}, ledger.Amounts(wallet, asset))
	assert.Positive(t, polls)
}

func TestMergeReceipt_Reflected(t *testing.T) {
	in := testutil.Notes(asset, 1, 2)
	out := testutil.Notes(asset, 3)
	out[0].Commitment = testutil.Commitment(99)
	receipt := &types.MergeReceipt{Inputs: types.Commitments(in), Outputs: out}

	assert.False(t, receipt.Reflected(in), "输入仍在")
	assert.False(t, receipt.Reflected(nil), "产出未出现")
	assert.True(t, receipt.Reflected(out))
	assert.True(t, (*types.MergeReceipt)(nil).Reflected(in))
}

func TestRun_InvalidRequest(t *testing.T) {
	svc := newService(t, newLedger(1, 2), nil)

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Asset: asset})
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

// ==================== 并发 ====================

func TestRun_RejectsConcurrentRunForSameAsset(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	ledger.Seed(wallet, testutil.OtherAsset, testutil.AmountList(5, 6)...)
	blocking := newBlockingSubmitter(ledger)
	svc := newService(t, ledger, func(d *Deps) { d.Submitter = blocking })

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
		done <- err
	}()
	<-blocking.entered

	before := svc.State(wallet, asset)
	assert.True(t, svc.IsRunning(wallet, asset))

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, types.ErrConcurrentRunRejected)
	assert.Equal(t, before, svc.State(wallet, asset), "被拒绝的调用不得改动运行中的状态")
	assert.Equal(t, types.RunStatusRunning, before.Status)

	// 不同资产可以并发
	other, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: testutil.OtherAsset})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, other.Outcome)

	close(blocking.release)
	require.NoError(t, <-done)
	assert.False(t, svc.IsRunning(wallet, asset))
}

// ==================== 进度通知 ====================

func TestRun_ObserverPanicDoesNotAbort(t *testing.T) {
	ledger := newLedger(1, 2, 4)
	logger := testutil.NewTestBehavioralLogger()
	svc := newService(t, ledger, func(d *Deps) { d.Logger = logger })

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{
		Wallet: wallet, Asset: asset,
		Observer: consolidation.ProgressFunc(func(types.ProgressEvent) { panic("ui crashed") }),
	})
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, summary.Outcome)
	assert.True(t, logger.Contains("panic 已恢复"))
}

func TestRun_PublishesEvents(t *testing.T) {
	ledger := newLedger(1, 2, 4, 8)
	bus := eventimpl.New(eventconfig.New(nil))

	var mu sync.Mutex
	var phases []types.Phase
	var finished *types.RunSummary
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationProgress, func(e types.ProgressEvent) {
		mu.Lock()
		phases = append(phases, e.Phase)
		mu.Unlock()
	}))
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationFinished, func(s *types.RunSummary, err error) {
		mu.Lock()
		finished = s
		mu.Unlock()
	}))

	svc := newService(t, ledger, func(d *Deps) { d.EventBus = bus })
	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, phases, 5)
	assert.Same(t, summary, finished)
}

// ==================== 同步等待 ====================

func TestRun_PollSettleWaitsForVisibility(t *testing.T) {
	clk := clockimpl.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledger := notes.NewSimLedger(&simOptionsShortLag, clk, nil)
	ledger.Seed(wallet, asset, testutil.AmountList(1, 2, 4, 8)...)

	polls := 0
	settler := &PollSettler{
		Scanner:  ledger,
		Interval: time.Second,
		Timeout:  time.Minute,
		Sleep: func(ctx context.Context, d time.Duration) error {
			polls++
			clk.Advance(d)
			return nil
		},
	}
	svc := newService(t, ledger, func(d *Deps) { d.Settler = settler; d.Clock = clk })

	summary, err := svc.Run(context.Background(), consolidation.RunRequest{Wallet: wallet, Asset: asset})
	require.NoError(t, err)
	assert.Equal(t, types.TerminalFullyConsolidated, summary.TerminalReason)
	assert.Equal(t, uint32(2), summary.RoundsCompleted)
	assert.Equal(t, 6, polls, "每轮等待 3 秒可见延迟")
}

func TestPollSettler_Timeout(t *testing.T) {
	clk := clockimpl.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledger := notes.NewSimLedger(&simOptionsLag, clk, nil)
	seeded := ledger.Seed(wallet, asset, testutil.AmountList(1, 2)...)
	receipt, err := ledger.SubmitMerge(context.Background(), wallet, asset, types.Batch(seeded))
	require.NoError(t, err)

	settler := &PollSettler{Scanner: ledger, Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}
	err = settler.Settle(context.Background(), wallet, asset, receipt)
	assert.ErrorIs(t, err, ErrSettleTimeout)
}

func TestFixedDelaySettler_UsesSleep(t *testing.T) {
	var slept time.Duration
	settler := &FixedDelaySettler{Delay: 2 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}}
	require.NoError(t, settler.Settle(context.Background(), wallet, asset, nil))
	assert.Equal(t, 2*time.Second, slept)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, (&FixedDelaySettler{Delay: time.Hour}).Settle(ctx, wallet, asset, nil), context.Canceled)
}
