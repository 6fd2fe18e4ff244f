package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/consolidator/internal/core/consolidation/planner"
	"github.com/weisyn/consolidator/internal/testutil"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

func currentPlan(t *testing.T, svc *Service) *types.ConsolidationPlan {
	t.Helper()
	notes, err := svc.scanner.ScanNotes(context.Background(), wallet, asset)
	require.NoError(t, err)
	return planner.BuildLayerPlan(wallet, asset, notes, svc.FanIn())
}

func TestRunSingleBatch_ExecutesOneBatch(t *testing.T) {
	ledger := newLedger(1, 2, 3, 4, 5, 6)
	svc := newService(t, ledger, nil)
	plan := currentPlan(t, svc)
	require.Len(t, plan.Batches, 2)

	observer := &testutil.RecordingObserver{}
	receipt, err := svc.RunSingleBatch(context.Background(), consolidation.SingleBatchRequest{
		Wallet: wallet, Asset: asset, Plan: plan, Index: 1, Observer: observer,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(15), receipt.Outputs[0].Amount.Uint64())
	assert.Equal(t, []uint64{1, 2, 3, 15}, ledger.Amounts(wallet, asset))
	assert.Equal(t, 1, ledger.MergeCount())

	assert.Equal(t, []types.Phase{types.PhaseSubmitting, types.PhaseSyncing, types.PhaseCompleted}, observer.Phases())
	for _, e := range observer.Events() {
		assert.Equal(t, uint32(2), e.BatchNumber)
		assert.Equal(t, uint32(2), e.TotalEstimate)
	}
	assert.Equal(t, types.RunStatusCompleted, svc.State(wallet, asset).Status)
}

func TestRunSingleBatch_StalePlan(t *testing.T) {
	ledger := newLedger(1, 2, 3, 4)
	svc := newService(t, ledger, nil)
	plan := currentPlan(t, svc)

	_, err := svc.RunSingleBatch(context.Background(), consolidation.SingleBatchRequest{
		Wallet: wallet, Asset: asset, Plan: plan, Index: 0,
	})
	require.NoError(t, err)

	// 同一批次再次执行：输入已花费
	_, err = svc.RunSingleBatch(context.Background(), consolidation.SingleBatchRequest{
		Wallet: wallet, Asset: asset, Plan: plan, Index: 0,
	})
	assert.ErrorIs(t, err, types.ErrPlanStale)
	assert.Equal(t, 1, ledger.MergeCount())
	assert.Equal(t, types.RunStatusError, svc.State(wallet, asset).Status)
}

func TestRunSingleBatch_InvalidRequests(t *testing.T) {
	ledger := newLedger(1, 2, 3)
	svc := newService(t, ledger, nil)
	plan := currentPlan(t, svc)

	cases := map[string]consolidation.SingleBatchRequest{
		"计划为空":  {Wallet: wallet, Asset: asset},
		"序号越界":  {Wallet: wallet, Asset: asset, Plan: plan, Index: 5},
		"负序号":   {Wallet: wallet, Asset: asset, Plan: plan, Index: -1},
		"资产不匹配": {Wallet: wallet, Asset: testutil.OtherAsset, Plan: plan},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RunSingleBatch(context.Background(), req)
			assert.ErrorIs(t, err, types.ErrInvalidRequest)
		})
	}
	assert.Equal(t, 0, ledger.MergeCount())
}

func TestRunSingleBatch_DuplicateNotesRejected(t *testing.T) {
	ledger := newLedger(5, 7)
	svc := newService(t, ledger, nil)
	current, err := ledger.ListNotes(context.Background(), wallet, asset)
	require.NoError(t, err)

	plan := &types.ConsolidationPlan{Wallet: wallet, Asset: asset, Batches: []types.Batch{{current[0], current[0]}}}
	_, err = svc.RunSingleBatch(context.Background(), consolidation.SingleBatchRequest{
		Wallet: wallet, Asset: asset, Plan: plan, Index: 0,
	})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, 0, ledger.MergeCount())
	assert.Equal(t, []uint64{5, 7}, ledger.Amounts(wallet, asset))
}

func TestRunSingleBatch_AmountMismatchRejected(t *testing.T) {
	ledger := newLedger(5, 7)
	svc := newService(t, ledger, nil)
	current, err := ledger.ListNotes(context.Background(), wallet, asset)
	require.NoError(t, err)

	inflated := current[0]
	inflated.Amount = testutil.AmountList(1000000)[0]
	plan := &types.ConsolidationPlan{Wallet: wallet, Asset: asset, Batches: []types.Batch{{inflated, current[1]}}}
	_, err = svc.RunSingleBatch(context.Background(), consolidation.SingleBatchRequest{
		Wallet: wallet, Asset: asset, Plan: plan, Index: 0,
	})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, 0, ledger.MergeCount())
	assert.Equal(t, []uint64{5, 7}, ledger.Amounts(wallet, asset))
}

func TestResolveBatch_UsesSnapshotNotes(t *testing.T) {
	current := testutil.Notes(asset, 3, 4, 5)
	planned := types.Batch{current[2], current[0]}

	resolved, missing, err := resolveBatch(current, planned)
	require.NoError(t, err)
	assert.Zero(t, missing)
	assert.Equal(t, types.Batch{current[2], current[0]}, resolved)

	_, missing, err = resolveBatch(current[:1], planned)
	require.NoError(t, err)
	assert.Equal(t, 1, missing)
}
