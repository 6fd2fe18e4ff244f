package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackground_StopCancelsAndWaits(t *testing.T) {
	bg := NewBackground()
	started := make(chan struct{})
	var exited atomic.Bool

	require.True(t, bg.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		exited.Store(true)
	}))
	<-started

	require.NoError(t, bg.Stop(context.Background()))
	assert.True(t, exited.Load(), "Stop 返回前协程必须已退出")
	assert.True(t, bg.Stopped())
	assert.False(t, bg.Go(func(context.Context) { t.Error("停止后不应再执行") }))
}

func TestBackground_StopTimeout(t *testing.T) {
	bg := NewBackground()
	release := make(chan struct{})
	defer close(release)
	require.True(t, bg.Go(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bg.Stop(ctx), context.DeadlineExceeded)
}

func TestBackground_ConcurrentGoAndStop(t *testing.T) {
	bg := NewBackground()
	var running atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bg.Go(func(ctx context.Context) {
				running.Add(1)
				<-ctx.Done()
				running.Add(-1)
			})
		}()
	}
	require.NoError(t, bg.Stop(context.Background()))
	assert.Zero(t, running.Load(), "Stop 之后不能有仍在执行的协程")
	wg.Wait()
	require.NoError(t, bg.Stop(context.Background()))
	assert.Zero(t, running.Load())
}
