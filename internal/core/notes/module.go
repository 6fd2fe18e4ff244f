package notes

import (
	"fmt"

	"go.uber.org/fx"

	notecacheconfig "github.com/weisyn/consolidator/internal/config/notecache"
	logimpl "github.com/weisyn/consolidator/internal/core/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/config"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 账本视图模块依赖
type ModuleParams struct {
	fx.In

	Provider        config.Provider
	StorageProvider storage.Provider
	EventBus        event.EventBus `optional:"true"`
	Clock           clock.Clock    `optional:"true"`
	Logger          log.Logger     `optional:"true"`
}

// ModuleOutput 账本视图模块输出
type ModuleOutput struct {
	fx.Out

	Ledger    *SimLedger
	Source    consolidation.NoteSource
	Submitter consolidation.MergeSubmitter
	Scanner   consolidation.NoteScanner
}

// Module 返回账本视图模块
//
// 当前唯一的账本后端是 SimLedger；接入真实链时替换 Source 与 Submitter 即可。
func Module() fx.Option {
	return fx.Module("notes",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 组装模拟账本与带缓存的扫描器
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := logimpl.NewModuleLogger(params.Logger, logimpl.ModuleLedger)

	ledger := NewSimLedger(params.Provider.GetSimulator(), params.Clock, logger)

	cache, err := newSnapshotCache(params.Provider, params.StorageProvider)
	if err != nil {
		return ModuleOutput{}, err
	}

	opts := params.Provider.GetNoteCache()
	scanner, err := NewCachedScanner(ledger, cache, opts.TTL, params.EventBus,
		logimpl.NewModuleLogger(params.Logger, logimpl.ModuleCache))
	if err != nil {
		return ModuleOutput{}, err
	}

	if logger != nil {
		logger.Infof("[Notes] 账本视图就绪 cache=%s ttl=%s", opts.Backend, opts.TTL)
	}

	return ModuleOutput{
		Ledger:    ledger,
		Source:    ledger,
		Submitter: ledger,
		Scanner:   scanner,
	}, nil
}

// newSnapshotCache 按配置选择快照缓存后端；none 返回 nil
func newSnapshotCache(provider config.Provider, storageProvider storage.Provider) (SnapshotCache, error) {
	switch backend := provider.GetNoteCache().Backend; backend {
	case notecacheconfig.BackendNone:
		return nil, nil
	case notecacheconfig.BackendRedis:
		client, err := storageProvider.GetRedisClient()
		if err != nil {
			return nil, fmt.Errorf("获取 Redis 客户端失败: %w", err)
		}
		return NewRedisSnapshotCache(client, provider.GetRedis().KeyPrefix), nil
	default:
		store, err := storageProvider.GetMemoryStore()
		if err != nil {
			return nil, fmt.Errorf("获取内存存储失败: %w", err)
		}
		return NewMemorySnapshotCache(store), nil
	}
}
