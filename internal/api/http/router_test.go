package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consolidationconfig "github.com/weisyn/consolidator/internal/config/consolidation"
	"github.com/weisyn/consolidator/internal/api/http/handlers"
	"github.com/weisyn/consolidator/internal/core/consolidation/journal"
	"github.com/weisyn/consolidator/internal/core/consolidation/metrics"
	"github.com/weisyn/consolidator/internal/core/consolidation/monitor"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	"github.com/weisyn/consolidator/internal/core/notes"
	"github.com/weisyn/consolidator/internal/testutil"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

const pairPath = "/api/v1/consolidation/" + string(testutil.TestWallet) + "/" + string(testutil.TestAsset)

type testEnv struct {
	router   *gin.Engine
	ledger   *notes.SimLedger
	registry *prometheus.Registry
	async    *runner.Background
}

func newTestEnv(t *testing.T, withJournal bool, amounts ...uint64) *testEnv {
	gin.SetMode(gin.TestMode)

	ledger := notes.NewSimLedger(nil, nil, nil)
	ledger.Seed(testutil.TestWallet, testutil.TestAsset, testutil.AmountList(amounts...)...)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var (
		recorder runner.ReceiptRecorder
		reader   handlers.JournalReader
	)
	if withJournal {
		j, err := journal.New(testutil.NewMockBadgerStore(), nil, nil)
		require.NoError(t, err)
		recorder, reader = j, j
	}

	service, err := runner.NewService(runner.Deps{
		Scanner:   ledger,
		Submitter: ledger,
		Settler:   &runner.FixedDelaySettler{},
		Journal:   recorder,
		Metrics:   m,
	})
	require.NoError(t, err)

	monitorOptions := consolidationconfig.DefaultMonitorOptions()
	monitorOptions.Watch = []consolidationconfig.WatchTarget{{Wallet: testutil.TestWallet, Asset: testutil.TestAsset}}
	mon, err := monitor.New(monitor.Deps{Scanner: ledger, Options: monitorOptions, Runs: service, Metrics: m})
	require.NoError(t, err)
	t.Cleanup(mon.Disable)

	async := runner.NewBackground()
	t.Cleanup(func() { _ = async.Stop(context.Background()) })

	deps := RouterDeps{
		Runner:        service,
		Scanner:       ledger,
		Monitor:       mon,
		Runs:          service,
		Async:         async,
		FanIn:         service.FanIn(),
		Logger:        testutil.NewTestLogger(),
		EnableMetrics: true,
		Registerer:    registry,
		Gatherer:      registry,
	}
	if reader != nil {
		deps.Journal = reader
	}
	return &testEnv{router: NewRouter(deps), ledger: ledger, registry: registry, async: async}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, 1)

	w, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRun_FullConsolidation(t *testing.T) {
	env := newTestEnv(t, true, 1, 2, 4, 8)

	w, body := env.do(t, http.MethodPost, pairPath+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", body["outcome"])
	assert.Equal(t, float64(4), body["initial_note_count"])
	assert.Equal(t, float64(1), body["final_note_count"])
	assert.Equal(t, []uint64{15}, env.ledger.Amounts(testutil.TestWallet, testutil.TestAsset))

	w, body = env.do(t, http.MethodGet, pairPath+"/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["running"])
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "completed", state["status"])

	w, body = env.do(t, http.MethodGet, pairPath+"/journal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(env.ledger.MergeCount()), body["count"])

	// 单次运行：最新运行与全部记录一致
	w, body = env.do(t, http.MethodGet, pairPath+"/journal?run_id=latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(env.ledger.MergeCount()), body["count"])

	w, _ = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `wes_consolidation_runs_total{outcome="completed"} 1`)
	assert.Contains(t, w.Body.String(), "wes_api_requests_total")
}

func TestRun_Targeted(t *testing.T) {
	env := newTestEnv(t, false, 1, 1, 1, 50)

	w, body := env.do(t, http.MethodPost, pairPath+"/run", gin.H{"target_amount": "50", "max_inputs": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", body["outcome"])
	assert.Equal(t, "target_spendable", body["terminal_reason"])
	// 覆盖 50 需要全部 4 张票据，max_inputs=1 时必须合并成一张
	assert.Equal(t, 2, env.ledger.MergeCount())
	assert.Equal(t, []uint64{53}, env.ledger.Amounts(testutil.TestWallet, testutil.TestAsset))
}

func TestRun_AsyncStoppedWithServer(t *testing.T) {
	env := newTestEnv(t, false, 1, 2, 4, 8)

	w, body := env.do(t, http.MethodPost, pairPath+"/run?async=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "accepted", body["status"])

	require.NoError(t, env.async.Stop(context.Background()))
	w, body = env.do(t, http.MethodGet, pairPath+"/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["running"], "Stop 返回时异步运行已退出")

	w, _ = env.do(t, http.MethodPost, pairPath+"/run?async=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.LessOrEqual(t, env.ledger.MergeCount(), 2)
}

func TestRun_InvalidBody(t *testing.T) {
	env := newTestEnv(t, false, 1, 2)

	w, body := env.do(t, http.MethodPost, pairPath+"/run", gin.H{"target_amount": "12abc", "max_inputs": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	w, _ = env.do(t, http.MethodPost, pairPath+"/run", gin.H{"target_amount": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanAndBatch(t *testing.T) {
	env := newTestEnv(t, false, 1, 2, 4, 8, 16)

	w, _ := env.do(t, http.MethodGet, pairPath+"/plan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var planResp struct {
		Plan       types.ConsolidationPlan `json:"plan"`
		NoteCount  int                     `json:"note_count"`
		NotesAfter int                     `json:"notes_after"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &planResp))
	assert.Equal(t, 5, planResp.NoteCount)
	require.NotEmpty(t, planResp.Plan.Batches)

	batch := gin.H{"plan": planResp.Plan, "index": 0}
	w, _ = env.do(t, http.MethodPost, pairPath+"/batch", batch)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, env.ledger.MergeCount())

	// 同一批次再次执行：票据已花费
	w, body := env.do(t, http.MethodPost, pairPath+"/batch", batch)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PLAN_STALE", body["code"])

	w, body = env.do(t, http.MethodPost, pairPath+"/batch", gin.H{"plan": planResp.Plan, "index": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	w, _ = env.do(t, http.MethodGet, pairPath+"/plan?fan_in=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalDisabled(t *testing.T) {
	env := newTestEnv(t, false, 1)

	w, body := env.do(t, http.MethodGet, pairPath+"/journal", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}

func TestMonitorEndpoints(t *testing.T) {
	env := newTestEnv(t, false, 1, 2, 3)

	w, body := env.do(t, http.MethodGet, "/api/v1/monitor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["enabled"])

	w, body = env.do(t, http.MethodPost, "/api/v1/monitor/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["evaluated"])

	w, body = env.do(t, http.MethodPost, "/api/v1/monitor/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["enabled"])

	w, body = env.do(t, http.MethodPost, "/api/v1/monitor/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["enabled"])
}

// stubRunner 只返回预设错误，用于校验错误映射
type stubRunner struct {
	err     error
	summary *types.RunSummary
}

func (s *stubRunner) Run(context.Context, consolidation.RunRequest) (*types.RunSummary, error) {
	return s.summary, s.err
}

func (s *stubRunner) RunSingleBatch(context.Context, consolidation.SingleBatchRequest) (*types.MergeReceipt, error) {
	return nil, s.err
}

func (s *stubRunner) State(types.WalletID, types.AssetID) types.RunState { return types.RunState{} }
func (s *stubRunner) IsRunning(types.WalletID, types.AssetID) bool       { return false }

func TestRun_ErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		kind   types.ErrorKind
		status int
	}{
		{types.ErrorKindConcurrentRunRejected, http.StatusConflict},
		{types.ErrorKindMergeSubmissionFailed, http.StatusBadGateway},
		{types.ErrorKindLedgerSyncFailed, http.StatusBadGateway},
		{types.ErrorKindInvalidRequest, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			stub := &stubRunner{err: types.NewConsolidationError(tc.kind, testutil.TestWallet, testutil.TestAsset, 2, nil)}
			if tc.kind == types.ErrorKindMergeSubmissionFailed {
				stub.summary = &types.RunSummary{Outcome: types.OutcomeFailed, RoundsCompleted: 1}
			}
			env := &testEnv{router: NewRouter(RouterDeps{Runner: stub, FanIn: 3})}

			w, body := env.do(t, http.MethodPost, pairPath+"/run", nil)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, strings.ToUpper(tc.kind.String()), body["code"])
			if stub.summary != nil {
				summary := body["summary"].(map[string]interface{})
				assert.Equal(t, "failed", summary["outcome"])
			}
		})
	}
}
