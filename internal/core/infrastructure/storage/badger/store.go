// Package badger 提供基于BadgerDB的存储实现
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	log "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	interfaces "github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// Store 实现BadgerStore接口
type Store struct {
	db     *badgerdb.DB
	config *badgerconfig.Config
	logger log.Logger

	// 避免 Close 过程中仍被写入
	closing int32
	writeWg sync.WaitGroup
}

// New 创建新的BadgerStore实例
func New(config *badgerconfig.Config, logger log.Logger) (*Store, error) {
	if config == nil {
		return nil, errors.New("badger 配置不能为空")
	}

	var opts badgerdb.Options
	if config.IsInMemory() {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		dataDir := config.GetPath()
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("无法创建BadgerDB数据目录: %w", err)
		}
		opts = badgerdb.DefaultOptions(dataDir)
		opts.SyncWrites = config.IsSyncWritesEnabled()
		opts.ValueLogFileSize = 64 << 20
	}
	opts.MemTableSize = config.GetMemTableSize()
	opts.BlockCacheSize = 16 << 20
	opts.IndexCacheSize = 16 << 20
	opts.NumMemtables = 2
	opts.NumCompactors = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}
	if logger != nil {
		logger.Infof("[BadgerStore] 已打开 (path=%s, in_memory=%v)", config.GetPath(), config.IsInMemory())
	}
	return &Store{db: db, config: config, logger: logger}, nil
}

// Close 关闭存储并释放资源
func (s *Store) Close() error {
	// 进入关闭态：阻断后续写入，并等待 in-flight 写完成
	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}

	waitCh := make(chan struct{})
	go func() {
		s.writeWg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(10 * time.Second):
		if s.logger != nil {
			s.logger.Warn("[BadgerStore] 等待 in-flight 写事务超时，继续关闭")
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("关闭BadgerDB失败: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("[BadgerStore] 已安全关闭")
	}
	return nil
}

func (s *Store) beginWrite() (func(), error) {
	if atomic.LoadInt32(&s.closing) == 1 {
		return nil, fmt.Errorf("badger store is closing")
	}
	s.writeWg.Add(1)
	// double-check，避免在 Add 之后进入 closing
	if atomic.LoadInt32(&s.closing) == 1 {
		s.writeWg.Done()
		return nil, fmt.Errorf("badger store is closing")
	}
	return s.writeWg.Done, nil
}

// Get 获取指定键的值
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	var valCopy []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil // 键不存在时返回nil值和nil错误
		}
		if err != nil {
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger获取键失败: %w", err)
	}
	return valCopy, nil
}

// Set 设置键值对
func (s *Store) Set(_ context.Context, key, value []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete 删除指定键的值
func (s *Store) Delete(_ context.Context, key []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
}

// Exists 检查键是否存在
func (s *Store) Exists(_ context.Context, key []byte) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger检查键存在性失败: %w", err)
	}
	return exists, nil
}

// PrefixScan 按前缀扫描键值对（按键字节序升序）
func (s *Store) PrefixScan(ctx context.Context, prefix []byte) ([]interfaces.KV, error) {
	var result []interfaces.KV
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			valCopy, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, interfaces.KV{Key: item.KeyCopy(nil), Value: valCopy})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger前缀扫描失败: %w", err)
	}
	return result, nil
}

// RunInTransaction 在单个读写事务中执行 fn：fn 返回 nil 时提交，否则整体回滚
//
// 回执日志用它把记录与每对 (钱包, 资产) 的最新运行指针原子写入。
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx interfaces.BadgerTransaction) error) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(&txnAdapter{ctx: ctx, txn: txn})
	})
	if err != nil {
		return fmt.Errorf("badger事务失败: %w", err)
	}
	return nil
}

// badgerLogger 实现BadgerDB的日志接口
type badgerLogger struct {
	logger log.Logger
}

func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Errorf("[BadgerDB] "+format, args...)
	}
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Warnf("[BadgerDB] "+format, args...)
	}
}

// Infof Badger 的 Info 日志非常频繁，降级为 Debug
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debugf("[BadgerDB] "+format, args...)
	}
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debugf("[BadgerDB] "+format, args...)
	}
}

var _ interfaces.BadgerStore = (*Store)(nil)
