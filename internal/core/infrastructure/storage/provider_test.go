package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerconfig "github.com/weisyn/consolidator/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/consolidator/internal/config/storage/memory"
	redisconfig "github.com/weisyn/consolidator/internal/config/storage/redis"
	"github.com/weisyn/consolidator/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/consolidator/pkg/types"
)

func newTestProvider(t *testing.T) *Provider {
	memStore, err := memory.New(memoryconfig.New(nil), nil)
	require.NoError(t, err)
	badgerCfg := badgerconfig.New(&types.UserBadgerConfig{InMemory: types.BoolPtr(true)}, "")
	return NewProvider(memStore, badgerCfg, redisconfig.New(nil).GetOptions(), nil)
}

func TestProvider_LazyBadgerOpen(t *testing.T) {
	p := newTestProvider(t)
	defer func() { _ = p.Close() }()

	assert.Nil(t, p.badgerStore, "未调用前不应打开 badger")

	first, err := p.GetBadgerStore()
	require.NoError(t, err)
	second, err := p.GetBadgerStore()
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.Set(context.Background(), []byte("k"), []byte("v")))
}

func TestProvider_CloseIsIdempotent(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.GetMemoryStore()
	require.NoError(t, err)
	_, err = p.GetBadgerStore()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.GetMemoryStore()
	assert.ErrorIs(t, err, errProviderClosed)
	_, err = p.GetBadgerStore()
	assert.ErrorIs(t, err, errProviderClosed)
}
