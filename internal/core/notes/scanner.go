// Package notes 提供账本视图适配：带缓存的票据扫描器与开发用账本模拟器
package notes

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/types"
)

const snapshotKeyPrefix = "notes/"

// CachedScanner 带快照缓存的票据扫描器
//
// 并发未命中按 (钱包, 资产, 代次) 合并为一次账本读取。InvalidateNoteCache
// 推进钱包代次：失效之前发起的读取不会把结果写回缓存，失效之后的扫描也不会
// 复用失效之前的读取。
type CachedScanner struct {
	source   consolidation.NoteSource
	cache    SnapshotCache
	ttl      time.Duration
	eventBus event.EventBus
	logger   log.Logger

	group singleflight.Group

	genMu       sync.Mutex
	generations map[types.WalletID]uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedScanner 创建扫描器；cache 为 nil 时每次直接读账本
func NewCachedScanner(source consolidation.NoteSource, cache SnapshotCache, ttl time.Duration, eventBus event.EventBus, logger log.Logger) (*CachedScanner, error) {
	if source == nil {
		return nil, errors.New("note source 不能为空")
	}
	return &CachedScanner{
		source:      source,
		cache:       cache,
		ttl:         ttl,
		eventBus:    eventBus,
		logger:      logger,
		generations: make(map[types.WalletID]uint64),
	}, nil
}

// walletPrefix 钱包段十六进制编码：钱包 ID 中的 '/' 与通配符不会让前缀匹配到其他钱包
func walletPrefix(wallet types.WalletID) string {
	return fmt.Sprintf("%s%s/", snapshotKeyPrefix, hex.EncodeToString([]byte(wallet)))
}

func snapshotKey(wallet types.WalletID, asset types.AssetID) string {
	return walletPrefix(wallet) + string(asset)
}

func (s *CachedScanner) generation(wallet types.WalletID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[wallet]
}

// ScanNotes 实现 NoteScanner
func (s *CachedScanner) ScanNotes(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]types.Note, error) {
	if s.cache == nil {
		return s.source.ListNotes(ctx, wallet, asset)
	}

	key := snapshotKey(wallet, asset)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		if s.logger != nil {
			s.logger.Warnf("[NoteScanner] 读取快照缓存失败，回退账本 key=%s: %v", key, err)
		}
	} else if ok {
		notes, err := decodeSnapshot(data)
		if err == nil {
			s.hits.Add(1)
			return notes, nil
		}
		if s.logger != nil {
			s.logger.Warnf("[NoteScanner] 快照损坏，回退账本 key=%s: %v", key, err)
		}
	}

	s.misses.Add(1)
	gen := s.generation(wallet)
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		notes, err := s.source.ListNotes(ctx, wallet, asset)
		if err != nil {
			return nil, err
		}
		s.store(ctx, wallet, key, gen, notes)
		return notes, nil
	})
	if err != nil {
		return nil, err
	}
	notes := v.([]types.Note)
	return append([]types.Note(nil), notes...), nil
}

// store 只在代次未变化时写回缓存
func (s *CachedScanner) store(ctx context.Context, wallet types.WalletID, key string, gen uint64, notes []types.Note) {
	data, err := encodeSnapshot(notes)
	if err != nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[wallet] != gen {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil && s.logger != nil {
		s.logger.Warnf("[NoteScanner] 写入快照缓存失败 key=%s: %v", key, err)
	}
}

// InvalidateNoteCache 实现 NoteScanner：删除该钱包全部资产的快照
func (s *CachedScanner) InvalidateNoteCache(ctx context.Context, wallet types.WalletID) error {
	s.genMu.Lock()
	s.generations[wallet]++
	s.genMu.Unlock()

	if s.cache != nil {
		if _, err := s.cache.DeleteByPrefix(ctx, walletPrefix(wallet)); err != nil {
			return fmt.Errorf("删除快照缓存失败: %w", err)
		}
	}
	if s.eventBus != nil {
		s.eventBus.Publish(types.EventTypeNoteCacheInvalidated, wallet)
	}
	return nil
}

// Stats 缓存命中与未命中次数
func (s *CachedScanner) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

var _ consolidation.NoteScanner = (*CachedScanner)(nil)
