package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

var _ storage.BadgerTransaction = (*txnAdapter)(nil)

// txnAdapter 把 badger 读写事务暴露为 storage.BadgerTransaction
//
// 提交与回滚由 RunInTransaction 负责；调用方上下文取消后，后续操作全部失败，
// 事务随之回滚。
type txnAdapter struct {
	ctx context.Context
	txn *badgerdb.Txn
}

// Get 键不存在时返回 nil, nil
func (t *txnAdapter) Get(key []byte) ([]byte, error) {
	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	item, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *txnAdapter) Set(key, value []byte) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	if err := t.txn.Set(key, value); err != nil {
		return fmt.Errorf("事务写入 %q 失败: %w", key, err)
	}
	return nil
}

func (t *txnAdapter) Delete(key []byte) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	return t.txn.Delete(key)
}

func (t *txnAdapter) Exists(key []byte) (bool, error) {
	if err := t.ctx.Err(); err != nil {
		return false, err
	}
	_, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
