// Package testutil 提供合并调度各模块测试的辅助工具
//
// 🧪 **测试辅助工具包**
//
// 本包提供测试所需的 Mock 对象、测试数据和辅助函数，用于简化测试代码编写。
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// ==================== Mock 对象 ====================

// MockLogger 统一的日志Mock实现
//
// ✅ **设计原则**：最小实现，所有方法返回空值，不记录日志
// 📋 **使用场景**：大多数测试用例，不需要验证日志调用
type MockLogger struct{}

func (m *MockLogger) Debug(msg string)                          {}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Info(msg string)                           {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warn(msg string)                           {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Error(msg string)                          {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) Fatal(msg string)                          {}
func (m *MockLogger) Fatalf(format string, args ...interface{}) {}
func (m *MockLogger) With(args ...interface{}) log.Logger       { return m }
func (m *MockLogger) Sync() error                               { return nil }
func (m *MockLogger) GetZapLogger() *zap.Logger                 { return zap.NewNop() }

// BehavioralMockLogger 行为Mock日志（记录格式化后的调用）
//
// 📋 **使用场景**：需要验证日志调用的测试
type BehavioralMockLogger struct {
	logs  []string
	mutex sync.Mutex
}

func (m *BehavioralMockLogger) add(level, msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = append(m.logs, level+": "+msg)
}

func (m *BehavioralMockLogger) Debug(msg string) { m.add("DEBUG", msg) }
func (m *BehavioralMockLogger) Debugf(format string, args ...interface{}) {
	m.add("DEBUG", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Info(msg string) { m.add("INFO", msg) }
func (m *BehavioralMockLogger) Infof(format string, args ...interface{}) {
	m.add("INFO", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Warn(msg string) { m.add("WARN", msg) }
func (m *BehavioralMockLogger) Warnf(format string, args ...interface{}) {
	m.add("WARN", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Error(msg string) { m.add("ERROR", msg) }
func (m *BehavioralMockLogger) Errorf(format string, args ...interface{}) {
	m.add("ERROR", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Fatal(msg string) { m.add("FATAL", msg) }
func (m *BehavioralMockLogger) Fatalf(format string, args ...interface{}) {
	m.add("FATAL", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) With(args ...interface{}) log.Logger { return m }
func (m *BehavioralMockLogger) Sync() error                         { return nil }
func (m *BehavioralMockLogger) GetZapLogger() *zap.Logger           { return zap.NewNop() }

// GetLogs 获取所有日志记录
func (m *BehavioralMockLogger) GetLogs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string{}, m.logs...)
}

// Contains 是否存在包含 substr 的日志
func (m *BehavioralMockLogger) Contains(substr string) bool {
	for _, line := range m.GetLogs() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// ClearLogs 清空日志记录
func (m *BehavioralMockLogger) ClearLogs() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = m.logs[:0]
}

// MockBadgerStore 模拟 BadgerDB 存储服务
//
// ✅ **设计原则**：内存存储，支持基本操作
// 📋 **使用场景**：单元测试，不需要真实数据库
type MockBadgerStore struct {
	data  map[string][]byte
	mutex sync.RWMutex

	// SetErr 非空时所有写操作返回该错误
	SetErr error
}

// NewMockBadgerStore 创建模拟 BadgerDB 存储服务
func NewMockBadgerStore() *MockBadgerStore {
	return &MockBadgerStore{data: make(map[string][]byte)}
}

// Close 实现 storage.BadgerStore 接口
func (m *MockBadgerStore) Close() error { return nil }

// Get 实现 storage.BadgerStore 接口
func (m *MockBadgerStore) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set 实现 storage.BadgerStore 接口
func (m *MockBadgerStore) Set(_ context.Context, key, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete 实现 storage.BadgerStore 接口
func (m *MockBadgerStore) Delete(_ context.Context, key []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.data, string(key))
	return nil
}

// Exists 实现 storage.BadgerStore 接口
func (m *MockBadgerStore) Exists(_ context.Context, key []byte) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

// PrefixScan 实现 storage.BadgerStore 接口（按键升序）
func (m *MockBadgerStore) PrefixScan(_ context.Context, prefix []byte) ([]storage.KV, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var out []storage.KV
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			out = append(out, storage.KV{Key: []byte(k), Value: append([]byte(nil), v...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// RunInTransaction 实现 storage.BadgerStore 接口（直接写入，不回滚）
func (m *MockBadgerStore) RunInTransaction(ctx context.Context, fn func(tx storage.BadgerTransaction) error) error {
	return fn(&mockTx{store: m, ctx: ctx})
}

type mockTx struct {
	store *MockBadgerStore
	ctx   context.Context
}

func (t *mockTx) Get(key []byte) ([]byte, error)     { return t.store.Get(t.ctx, key) }
func (t *mockTx) Set(key, value []byte) error        { return t.store.Set(t.ctx, key, value) }
func (t *mockTx) Delete(key []byte) error            { return t.store.Delete(t.ctx, key) }
func (t *mockTx) Exists(key []byte) (bool, error)    { return t.store.Exists(t.ctx, key) }

var _ storage.BadgerStore = (*MockBadgerStore)(nil)
