// Package journal 合并回执审计日志
//
// 每轮确认的合并写入一条记录，键为 journal/<wallet>/<asset>/<runID>/<round>，
// 值为 snappy 压缩的 JSON。同一事务内更新 journal-latest/<wallet>/<asset>，
// 指向该 (钱包, 资产) 最近一次写入记录的运行。日志只供查询与审计，从不用于恢复运行。
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/golang/snappy"

	clockimpl "github.com/weisyn/consolidator/internal/core/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/consolidator/pkg/types"
)

const (
	keyPrefix    = "journal/"
	latestPrefix = "journal-latest/"
)

// DefaultListLimit List 未指定上限时返回的条数
const DefaultListLimit = 50

// Entry 一条回执记录
type Entry struct {
	RunID      string              `json:"run_id"`
	Round      uint32              `json:"round"`
	Wallet     types.WalletID      `json:"wallet"`
	Asset      types.AssetID       `json:"asset"`
	Receipt    *types.MergeReceipt `json:"receipt"`
	RecordedAt int64               `json:"recorded_at"` // unix 毫秒
}

// latestPointer 最近一次记录所属的运行
type latestPointer struct {
	RunID string `json:"run_id"`
	Round uint32 `json:"round"`
}

// Journal 基于 BadgerDB 的回执日志
type Journal struct {
	store  storage.BadgerStore
	clock  clock.Clock
	logger log.Logger
}

// New 创建回执日志
func New(store storage.BadgerStore, clk clock.Clock, logger log.Logger) (*Journal, error) {
	if store == nil {
		return nil, errors.New("journal 需要 badger 存储")
	}
	if clk == nil {
		clk = clockimpl.NewSystemClock()
	}
	return &Journal{store: store, clock: clk, logger: logger}, nil
}

func pairPrefix(wallet types.WalletID, asset types.AssetID) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/", keyPrefix, wallet, asset))
}

func entryKey(wallet types.WalletID, asset types.AssetID, runID string, round uint32) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%s/%08d", keyPrefix, wallet, asset, runID, round))
}

func latestKey(wallet types.WalletID, asset types.AssetID) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", latestPrefix, wallet, asset))
}

// Record 写入一条回执，并在同一事务内移动最新运行指针
func (j *Journal) Record(ctx context.Context, runID string, round uint32, wallet types.WalletID, asset types.AssetID, receipt *types.MergeReceipt) error {
	entry := Entry{
		RunID:      runID,
		Round:      round,
		Wallet:     wallet,
		Asset:      asset,
		Receipt:    receipt,
		RecordedAt: j.clock.Now().UnixMilli(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("编码回执失败: %w", err)
	}
	pointer, err := json.Marshal(latestPointer{RunID: runID, Round: round})
	if err != nil {
		return fmt.Errorf("编码最新运行指针失败: %w", err)
	}
	err = j.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		if err := tx.Set(entryKey(wallet, asset, runID, round), snappy.Encode(nil, raw)); err != nil {
			return err
		}
		return tx.Set(latestKey(wallet, asset), pointer)
	})
	if err != nil {
		return fmt.Errorf("写入回执失败: %w", err)
	}
	if j.logger != nil {
		j.logger.Debugf("[Journal] 已记录 run=%s round=%d wallet=%s asset=%s", runID, round, wallet, asset)
	}
	return nil
}

// List 返回 (钱包, 资产) 的回执，按记录时间倒序，最多 limit 条（≤0 使用默认值）
func (j *Journal) List(ctx context.Context, wallet types.WalletID, asset types.AssetID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	kvs, err := j.store.PrefixScan(ctx, pairPrefix(wallet, asset))
	if err != nil {
		return nil, fmt.Errorf("扫描回执失败: %w", err)
	}

	entries := make([]Entry, 0, len(kvs))
	for _, kv := range kvs {
		entry, err := decodeEntry(kv.Value)
		if err != nil {
			if j.logger != nil {
				j.logger.Warnf("[Journal] 跳过损坏的记录 key=%s: %v", kv.Key, err)
			}
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].RecordedAt != entries[b].RecordedAt {
			return entries[a].RecordedAt > entries[b].RecordedAt
		}
		return entries[a].Round > entries[b].Round
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Run 返回某次运行的全部回执，按轮次升序
func (j *Journal) Run(ctx context.Context, wallet types.WalletID, asset types.AssetID, runID string) ([]Entry, error) {
	prefix := append(pairPrefix(wallet, asset), []byte(runID+"/")...)
	kvs, err := j.store.PrefixScan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("扫描回执失败: %w", err)
	}
	entries := make([]Entry, 0, len(kvs))
	for _, kv := range kvs {
		entry, err := decodeEntry(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("解码回执 %s 失败: %w", kv.Key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Latest 返回该 (钱包, 资产) 最近一次写入记录的运行的全部回执；没有记录时返回空
func (j *Journal) Latest(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]Entry, error) {
	raw, err := j.store.Get(ctx, latestKey(wallet, asset))
	if err != nil {
		return nil, fmt.Errorf("读取最新运行指针失败: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var pointer latestPointer
	if err := json.Unmarshal(raw, &pointer); err != nil {
		return nil, fmt.Errorf("解码最新运行指针失败: %w", err)
	}
	return j.Run(ctx, wallet, asset, pointer.RunID)
}

func decodeEntry(value []byte) (Entry, error) {
	var entry Entry
	raw, err := snappy.Decode(nil, value)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(raw, &entry)
	return entry, err
}
