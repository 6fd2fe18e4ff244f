package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/internal/config/notecache"
	"github.com/weisyn/consolidator/pkg/types"
)

func TestProvider_Defaults(t *testing.T) {
	provider := NewProvider(nil)

	assert.Equal(t, 3, provider.GetConsolidation().MaxBatchSize)
	assert.Equal(t, consolidation.SettleModeFixed, provider.GetConsolidation().SettleMode)
	assert.False(t, provider.GetMonitor().Enabled)
	assert.Equal(t, 30*time.Second, provider.GetMonitor().PollInterval)
	assert.Equal(t, notecache.BackendMemory, provider.GetNoteCache().Backend)
	assert.Equal(t, "127.0.0.1:8089", provider.GetAPI().Address())
	assert.True(t, filepath.IsAbs(provider.GetDataDir()))
	require.NoError(t, provider.Validate())
}

func TestProvider_BadgerPathFollowsDataDir(t *testing.T) {
	provider := NewProvider(&types.AppConfig{DataDir: types.StringPtr("/var/lib/consolidator")})
	assert.Equal(t, "/var/lib/consolidator/journal", provider.GetBadger().Path)

	provider = NewProvider(&types.AppConfig{
		DataDir: types.StringPtr("/var/lib/consolidator"),
		Storage: &types.UserStorageConfig{Badger: &types.UserBadgerConfig{Path: types.StringPtr("/tmp/j")}},
	})
	assert.Equal(t, "/tmp/j", provider.GetBadger().Path)
}

func TestProvider_ValidateAggregatesSections(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		Consolidation: &types.UserConsolidationConfig{MaxBatchSize: types.IntPtr(1)},
		NoteCache:     &types.UserNoteCacheConfig{Backend: types.StringPtr("memcached")},
		Log:           &types.UserLogConfig{Level: types.StringPtr("verbose")},
	})
	err := provider.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_batch_size")
	assert.Contains(t, err.Error(), "memcached")
	assert.Contains(t, err.Error(), "verbose")
}

func TestLoadFile(t *testing.T) {
	t.Run("文件不存在时返回空配置", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.NotNil(t, cfg)
	})

	t.Run("解析 JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "consolidator.json")
		content := `{
			"consolidation": {"max_batch_size": 4, "settle_mode": "poll"},
			"monitor": {"enabled": true, "watch": [{"wallet": "alice", "asset": "ETH"}]}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		provider := NewProvider(cfg)
		assert.Equal(t, 4, provider.GetConsolidation().MaxBatchSize)
		assert.Equal(t, consolidation.SettleModePoll, provider.GetConsolidation().SettleMode)
		require.Len(t, provider.GetMonitor().Watch, 1)
		assert.Equal(t, types.WalletID("alice"), provider.GetMonitor().Watch[0].Wallet)
	})

	t.Run("无效 JSON 返回错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}
