package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	logconfig "github.com/weisyn/consolidator/internal/config/log"
	"github.com/weisyn/consolidator/pkg/types"
)

func newBufferedRoutingCore() (*moduleRoutingCore, *bytes.Buffer, *bytes.Buffer) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{MessageKey: "message", LevelKey: "level"})
	var sysBuf, schedBuf bytes.Buffer
	return &moduleRoutingCore{
		systemCore:    zapcore.NewCore(enc, zapcore.AddSync(&sysBuf), zapcore.DebugLevel),
		schedulerCore: zapcore.NewCore(enc, zapcore.AddSync(&schedBuf), zapcore.DebugLevel),
	}, &sysBuf, &schedBuf
}

func TestModuleRoutingCore_RoutesByModuleField(t *testing.T) {
	core, sysBuf, schedBuf := newBufferedRoutingCore()
	entry := zapcore.Entry{Message: "hello", Level: zapcore.InfoLevel}

	require.NoError(t, core.Write(entry, []zapcore.Field{zap.String("module", ModuleStorage)}))
	assert.NotZero(t, sysBuf.Len())
	assert.Zero(t, schedBuf.Len(), "storage 日志只写入 system.log")
	sysBuf.Reset()

	require.NoError(t, core.Write(entry, []zapcore.Field{zap.String("module", ModuleConsolidation)}))
	assert.Zero(t, sysBuf.Len())
	assert.NotZero(t, schedBuf.Len(), "consolidation 日志只写入 scheduler.log")
	schedBuf.Reset()

	require.NoError(t, core.Write(entry, nil))
	assert.NotZero(t, sysBuf.Len(), "无 module 字段时写入两个文件")
	assert.NotZero(t, schedBuf.Len())
}

func TestModuleRoutingCore_WithRoutesEarly(t *testing.T) {
	core, sysBuf, schedBuf := newBufferedRoutingCore()
	logger := zap.New(core).With(zap.String("module", ModuleMonitor))

	logger.Info("evaluation finished")

	assert.Zero(t, sysBuf.Len())
	assert.Contains(t, schedBuf.String(), "evaluation finished")
}

func TestNew_MultiFileWritesSplitLogs(t *testing.T) {
	dir := t.TempDir()
	cfg := logconfig.New(&types.UserLogConfig{
		Level:    types.StringPtr("debug"),
		FilePath: types.StringPtr(filepath.Join(dir, "consolidator.log")),
	})
	logger, err := New(cfg)
	require.NoError(t, err)

	NewModuleLogger(logger, ModuleConsolidation).Info("round confirmed")
	NewModuleLogger(logger, ModuleCache).Info("snapshot evicted")
	require.NoError(t, logger.Sync())

	scheduler, err := os.ReadFile(filepath.Join(dir, "scheduler.log"))
	require.NoError(t, err)
	system, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(scheduler), "round confirmed"))
	assert.False(t, strings.Contains(string(scheduler), "snapshot evicted"))
	assert.True(t, strings.Contains(string(system), "snapshot evicted"))
}

func TestNewModuleLogger_FallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, NewModuleLogger(nil, ModuleAPI))
	assert.NotNil(t, OrGlobal(nil))
}
