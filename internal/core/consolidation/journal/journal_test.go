package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	badgerstore "github.com/weisyn/consolidator/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/consolidator/internal/testutil"
	"github.com/weisyn/consolidator/pkg/types"
)

func receipt(amount uint64) *types.MergeReceipt {
	out := testutil.Notes(testutil.TestAsset, amount)
	return &types.MergeReceipt{
		TxHash:  testutil.Commitment(int(amount)),
		Inputs:  []types.Commitment{testutil.Commitment(1), testutil.Commitment(2)},
		Outputs: out,
	}
}

func TestJournal_RecordAndList(t *testing.T) {
	ctx := context.Background()
	clk := clockimpl.NewMockClock(time.Unix(1700000000, 0))
	j, err := New(testutil.NewMockBadgerStore(), clk, nil)
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, "run-a", 1, testutil.TestWallet, testutil.TestAsset, receipt(7)))
	clk.Advance(time.Second)
	require.NoError(t, j.Record(ctx, "run-a", 2, testutil.TestWallet, testutil.TestAsset, receipt(15)))
	clk.Advance(time.Second)
	require.NoError(t, j.Record(ctx, "run-b", 1, testutil.TestWallet, testutil.TestAsset, receipt(30)))
	require.NoError(t, j.Record(ctx, "run-c", 1, testutil.TestWallet, testutil.OtherAsset, receipt(99)))

	entries, err := j.List(ctx, testutil.TestWallet, testutil.TestAsset, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "run-b", entries[0].RunID, "最新记录在前")
	assert.Equal(t, uint64(30), entries[0].Receipt.Outputs[0].Amount.Uint64())

	limited, err := j.List(ctx, testutil.TestWallet, testutil.TestAsset, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	run, err := j.Run(ctx, testutil.TestWallet, testutil.TestAsset, "run-a")
	require.NoError(t, err)
	require.Len(t, run, 2)
	assert.Equal(t, uint32(1), run[0].Round)
	assert.Equal(t, uint32(2), run[1].Round)

	latest, err := j.Latest(ctx, testutil.TestWallet, testutil.TestAsset)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "run-b", latest[0].RunID)

	latest, err = j.Latest(ctx, testutil.TestWallet, testutil.OtherAsset)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "run-c", latest[0].RunID)
}

func TestJournal_LatestEmpty(t *testing.T) {
	j, err := New(testutil.NewMockBadgerStore(), nil, nil)
	require.NoError(t, err)
	latest, err := j.Latest(context.Background(), testutil.TestWallet, testutil.TestAsset)
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestJournal_RecordIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	j, err := New(store, nil, nil)
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, "run-a", 1, testutil.TestWallet, testutil.TestAsset, receipt(3)))
	require.NoError(t, j.Record(ctx, "run-b", 1, testutil.TestWallet, testutil.TestAsset, receipt(7)))

	latest, err := j.Latest(ctx, testutil.TestWallet, testutil.TestAsset)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "run-b", latest[0].RunID)

	// 取消的上下文：记录与指针都不写入
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, j.Record(canceled, "run-c", 1, testutil.TestWallet, testutil.TestAsset, receipt(9)))

	latest, err = j.Latest(ctx, testutil.TestWallet, testutil.TestAsset)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "run-b", latest[0].RunID)
	run, err := j.Run(ctx, testutil.TestWallet, testutil.TestAsset, "run-c")
	require.NoError(t, err)
	assert.Empty(t, run)
}

func TestJournal_WriteError(t *testing.T) {
	store := testutil.NewMockBadgerStore()
	store.SetErr = errors.New("disk full")
	j, err := New(store, nil, nil)
	require.NoError(t, err)

	err = j.Record(context.Background(), "run", 1, testutil.TestWallet, testutil.TestAsset, receipt(3))
	assert.ErrorIs(t, err, store.SetErr)
}

func TestJournal_SkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMockBadgerStore()
	j, err := New(store, nil, testutil.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, "run", 1, testutil.TestWallet, testutil.TestAsset, receipt(3)))
	require.NoError(t, store.Set(ctx, entryKey(testutil.TestWallet, testutil.TestAsset, "run", 2), []byte("garbage")))

	entries, err := j.List(ctx, testutil.TestWallet, testutil.TestAsset, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func newBadgerStore(t *testing.T) *badgerstore.Store {
	cfg := badgerconfig.New(&types.UserBadgerConfig{InMemory: types.BoolPtr(true)}, "")
	store, err := badgerstore.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}
