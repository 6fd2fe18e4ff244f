package runner

import (
	"sync"

	"github.com/weisyn/consolidator/pkg/types"
)

// runKey 运行互斥的粒度：(钱包, 资产)
type runKey struct {
	wallet types.WalletID
	asset  types.AssetID
}

// lockRegistry 进程内运行锁表（非账本级锁）
type lockRegistry struct {
	mu   sync.Mutex
	held map[runKey]struct{}
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{held: make(map[runKey]struct{})}
}

// tryAcquire 获取锁；已被持有时立即返回 false
func (r *lockRegistry) tryAcquire(key runKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[key]; ok {
		return false
	}
	r.held[key] = struct{}{}
	return true
}

func (r *lockRegistry) release(key runKey) {
	r.mu.Lock()
	delete(r.held, key)
	r.mu.Unlock()
}

func (r *lockRegistry) isHeld(key runKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[key]
	return ok
}

func (r *lockRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.held)
}
