package runner

import (
	"context"
	"sync"
)

// Background 跟踪由服务发起的后台运行（自动合并、异步 HTTP 运行）
//
// Stop 之后 Go 不再启动新协程；Stop 取消进行中的运行并等待其退出。
type Background struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewBackground 创建后台运行组
func NewBackground() *Background {
	ctx, cancel := context.WithCancel(context.Background())
	return &Background{ctx: ctx, cancel: cancel}
}

// Go 在独立协程中执行 fn；已停止时返回 false 且不执行
func (b *Background) Go(fn func(ctx context.Context)) bool {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return false
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
	return true
}

// Stopped 是否已停止
func (b *Background) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

// Stop 取消进行中的运行并等待退出，ctx 到期时返回 ctx.Err()
func (b *Background) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
