package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventconfig "github.com/weisyn/consolidator/internal/config/event"
	"github.com/weisyn/consolidator/pkg/types"
)

func TestEventBus_SyncAndAsync(t *testing.T) {
	bus := New(eventconfig.New(nil))

	var received types.ProgressEvent
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationProgress, func(e types.ProgressEvent) {
		received = e
	}))
	bus.Publish(types.EventTypeConsolidationProgress, types.ProgressEvent{BatchNumber: 2, Phase: types.PhaseSyncing})
	assert.Equal(t, uint32(2), received.BatchNumber)
	assert.Equal(t, types.PhaseSyncing, received.Phase)

	var mu sync.Mutex
	var asyncCalls int
	require.NoError(t, bus.SubscribeAsync(types.EventTypeConsolidationAdvisory, func(a *types.Advisory) {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		asyncCalls++
		mu.Unlock()
	}, false))
	bus.Publish(types.EventTypeConsolidationAdvisory, &types.Advisory{Wallet: "w"})
	bus.WaitAsync()

	mu.Lock()
	assert.Equal(t, 1, asyncCalls)
	mu.Unlock()
	assert.Equal(t, uint64(2), bus.PublishedCount())
}

func TestEventBus_Disabled(t *testing.T) {
	bus := New(eventconfig.New(&types.UserEventConfig{Enabled: types.BoolPtr(false)}))

	called := false
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationProgress, func(types.ProgressEvent) { called = true }))
	bus.Publish(types.EventTypeConsolidationProgress, types.ProgressEvent{})

	assert.False(t, called)
	assert.False(t, bus.HasCallback(types.EventTypeConsolidationProgress))
	assert.Zero(t, bus.PublishedCount())
}

func TestEventBus_SubscriberLimit(t *testing.T) {
	cfg := eventconfig.New(nil)
	cfg.GetOptions().MaxSubscribers = 1
	bus := New(cfg)

	handler := func(types.ProgressEvent) {}
	require.NoError(t, bus.Subscribe(types.EventTypeConsolidationProgress, handler))
	assert.Error(t, bus.Subscribe(types.EventTypeConsolidationProgress, func(types.ProgressEvent) {}))

	require.NoError(t, bus.Unsubscribe(types.EventTypeConsolidationProgress, handler))
	assert.NoError(t, bus.Subscribe(types.EventTypeConsolidationProgress, handler))
}

func TestEventBus_StartStop(t *testing.T) {
	bus := New(nil)
	require.NoError(t, bus.Start(t.Context()))
	assert.True(t, bus.IsRunning())
	assert.Error(t, bus.Start(t.Context()))
	require.NoError(t, bus.Stop(t.Context()))
	assert.False(t, bus.IsRunning())
}
