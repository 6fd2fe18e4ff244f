package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	eventimpl "github.com/weisyn/consolidator/internal/core/infrastructure/event"
	"github.com/weisyn/consolidator/internal/core/notes"
	"github.com/weisyn/consolidator/internal/testutil"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

type fakeRuns map[types.AssetID]bool

func (f fakeRuns) IsRunning(_ types.WalletID, asset types.AssetID) bool { return f[asset] }

func monitorOptions() *consolidationconfig.MonitorOptions {
	opts := consolidationconfig.DefaultMonitorOptions()
	opts.PollInterval = 10 * time.Millisecond
	opts.FragmentationThreshold = 60
	opts.MaxNoteCount = 5
	opts.MaxDustNotes = 2
	opts.DustAmountFloor = types.AmountFromUint64(10)
	opts.Watch = []consolidationconfig.WatchTarget{
		{Wallet: testutil.TestWallet, Asset: testutil.TestAsset},
	}
	return opts
}

// callbackRecorder 记录回调收到的建议
type callbackRecorder struct {
	mu    sync.Mutex
	calls []*types.Advisory
}

func (r *callbackRecorder) callback(_ context.Context, a *types.Advisory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, a)
}

func (r *callbackRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newMonitor(t *testing.T, ledger *notes.SimLedger, mutate func(*Deps)) (*Monitor, *callbackRecorder) {
	t.Helper()
	rec := &callbackRecorder{}
	deps := Deps{
		Scanner:  ledger,
		Options:  monitorOptions(),
		Callback: rec.callback,
		Logger:   testutil.NewTestLogger(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	m, err := New(deps)
	require.NoError(t, err)
	t.Cleanup(m.Disable)
	return m, rec
}

func seededLedger(amounts ...uint64) *notes.SimLedger {
	ledger := notes.NewSimLedger(nil, nil, nil)
	ledger.Seed(testutil.TestWallet, testutil.TestAsset, testutil.AmountList(amounts...)...)
	return ledger
}

// ==================== 评分 ====================

func TestDefaultScorer(t *testing.T) {
	asset := testutil.TestAsset
	assert.Equal(t, uint8(0), DefaultScorer.Score(nil))
	assert.Equal(t, uint8(0), DefaultScorer.Score(testutil.Notes(asset, 100)))
	assert.Equal(t, uint8(0), DefaultScorer.Score(testutil.Notes(asset, 0, 0)))
	assert.Equal(t, uint8(50), DefaultScorer.Score(testutil.Notes(asset, 5, 5)))
	assert.Equal(t, uint8(90), DefaultScorer.Score(testutil.Notes(asset, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)))
	assert.Equal(t, uint8(1), DefaultScorer.Score(testutil.Notes(asset, 1, 99)))
	// 2/3 → 66.67 → 67
	assert.Equal(t, uint8(67), DefaultScorer.Score(testutil.Notes(asset, 1, 1, 1)))
}

// ==================== 评估规则 ====================

func TestEvaluate(t *testing.T) {
	m, _ := newMonitor(t, seededLedger(), nil)
	at := time.Unix(1700000000, 0)

	t.Run("单张票据从不建议", func(t *testing.T) {
		a := m.Evaluate(testutil.TestWallet, testutil.TestAsset, testutil.Notes(testutil.TestAsset, 1), at)
		assert.False(t, a.Advised())
		assert.Equal(t, 1, a.DustCount)
	})

	t.Run("健康分布", func(t *testing.T) {
		a := m.Evaluate(testutil.TestWallet, testutil.TestAsset, testutil.Notes(testutil.TestAsset, 20, 1000), at)
		assert.False(t, a.Advised())
		assert.Equal(t, uint8(2), a.FragmentationScore)
	})

	t.Run("碎片化评分超过阈值", func(t *testing.T) {
		a := m.Evaluate(testutil.TestWallet, testutil.TestAsset, testutil.Notes(testutil.TestAsset, 50, 50, 50), at)
		assert.Equal(t, []string{ReasonFragmentation}, a.Reasons)
	})

	t.Run("票据数与零钱数超限", func(t *testing.T) {
		a := m.Evaluate(testutil.TestWallet, testutil.TestAsset,
			testutil.Notes(testutil.TestAsset, 1, 2, 3, 4, 5, 100000), at)
		assert.Equal(t, []string{ReasonNoteCount, ReasonDustNotes}, a.Reasons)
		assert.Equal(t, 5, a.DustCount)
		assert.Equal(t, at, a.EvaluatedAt)
	})
}

// ==================== CheckNow ====================

func TestCheckNow_DisabledDoesNotNotify(t *testing.T) {
	m, rec := newMonitor(t, seededLedger(1, 1, 1, 1), nil)

	results, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Advised())
	assert.Equal(t, 0, rec.count(), "未启用时只评估不回调")
	assert.False(t, m.LastEvaluation().IsZero())
}

func TestCheckNow_EnabledNotifiesAndPublishes(t *testing.T) {
	bus := eventimpl.New(eventconfig.New(nil))
	var published []*types.Advisory
	var mu sync.Mutex
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationAdvisory, func(a *types.Advisory) {
		mu.Lock()
		published = append(published, a)
		mu.Unlock()
	}))

	opts := monitorOptions()
	opts.PollInterval = time.Hour // 只由 CheckNow 触发
	m, rec := newMonitor(t, seededLedger(1, 1, 1, 1), func(d *Deps) {
		d.EventBus = bus
		d.Options = opts
	})
	require.NoError(t, m.Enable(context.Background()))

	_, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, published, 1)
}

func TestCheckNow_SkipsRunningPairs(t *testing.T) {
	m, rec := newMonitor(t, seededLedger(1, 1, 1, 1), func(d *Deps) {
		d.Runs = fakeRuns{testutil.TestAsset: true}
	})
	require.NoError(t, m.Enable(context.Background()))

	results, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, rec.count())
}

func TestCheckNow_ScanErrorsAreCollected(t *testing.T) {
	ledger := seededLedger(1, 1, 1)
	ledger.Seed(testutil.TestWallet, testutil.OtherAsset, testutil.AmountList(5, 5)...)
	boom := errors.New("indexer offline")
	ledger.FailNextScan(boom)

	opts := monitorOptions()
	opts.Watch = append(opts.Watch, consolidationconfig.WatchTarget{Wallet: testutil.TestWallet, Asset: testutil.OtherAsset})
	m, _ := newMonitor(t, ledger, func(d *Deps) { d.Options = opts })

	results, err := m.CheckNow(context.Background())
	assert.ErrorIs(t, err, boom)
	require.Len(t, results, 1)
	assert.Equal(t, testutil.OtherAsset, results[0].Asset)
}

func TestCheckNow_CallbackPanicRecovered(t *testing.T) {
	m, _ := newMonitor(t, seededLedger(1, 1, 1, 1), func(d *Deps) {
		d.Callback = func(context.Context, *types.Advisory) { panic("boom") }
		d.Options.PollInterval = time.Hour
	})
	require.NoError(t, m.Enable(context.Background()))

	assert.NotPanics(t, func() {
		_, err := m.CheckNow(context.Background())
		assert.NoError(t, err)
	})
}

// ==================== 启停 ====================

func TestEnableDisable_Polling(t *testing.T) {
	clk := clockimpl.NewMockClock(time.Unix(1700000000, 0))
	m, rec := newMonitor(t, seededLedger(1, 1, 1, 1), func(d *Deps) { d.Clock = clk })

	assert.False(t, m.Enabled())
	require.NoError(t, m.Enable(context.Background()))
	require.NoError(t, m.Enable(context.Background()), "重复启用为空操作")
	assert.True(t, m.Enabled())

	// 节拍来自注入的时钟
	require.Eventually(t, func() bool { return clk.Tickers() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, rec.count())
	clk.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	clk.Advance(10 * time.Millisecond)
	require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, clk.Now(), m.LastEvaluation())

	m.Disable()
	assert.False(t, m.Enabled())
	assert.Zero(t, clk.Tickers(), "停用后节拍器已停止")
	after := rec.count()
	clk.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, rec.count(), "停用后不再评估")

	m.Disable()
}

func TestEnable_SurvivesCallerContext(t *testing.T) {
	m, rec := newMonitor(t, seededLedger(1, 1, 1, 1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Enable(ctx))
	cancel()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, m.Enabled())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)

	bad := monitorOptions()
	bad.FragmentationThreshold = 101
	_, err = New(Deps{Scanner: seededLedger(), Options: bad})
	assert.Error(t, err)
}

var _ consolidation.Monitor = (*Monitor)(nil)
