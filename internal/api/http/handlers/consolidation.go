package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/consolidator/internal/core/consolidation/journal"
	"github.com/weisyn/consolidator/internal/core/consolidation/planner"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

// JournalReader 回执审计日志查询
type JournalReader interface {
	List(ctx context.Context, wallet types.WalletID, asset types.AssetID, limit int) ([]journal.Entry, error)
	Run(ctx context.Context, wallet types.WalletID, asset types.AssetID, runID string) ([]journal.Entry, error)
	Latest(ctx context.Context, wallet types.WalletID, asset types.AssetID) ([]journal.Entry, error)
}

// ConsolidationHandler 合并调度端点处理器
//
// 📋 **端点**（均挂在 /consolidation/:wallet/:asset 下）：
// - GET  /state: 当前或最近一次运行状态
// - POST /run: 发起完整合并（?async=true 时立即返回 202）
// - GET  /plan: 按当前票据计算分层合并计划
// - POST /batch: 执行计划中的单个批次
// - GET  /journal: 查询回执审计日志
type ConsolidationHandler struct {
	logger  *zap.Logger
	runner  consolidation.Runner
	scanner consolidation.NoteScanner
	journal JournalReader
	async   *runner.Background
	fanIn   int
}

// NewConsolidationHandler 创建处理器
//
// journal 可为 nil（审计日志未启用）；async 跟踪 ?async=true 发起的运行，
// 为 nil 时处理器自建一个，由 Stop 结束。
func NewConsolidationHandler(logger *zap.Logger, r consolidation.Runner, scanner consolidation.NoteScanner, journal JournalReader, async *runner.Background, fanIn int) *ConsolidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if async == nil {
		async = runner.NewBackground()
	}
	return &ConsolidationHandler{
		logger:  logger,
		runner:  r,
		scanner: scanner,
		journal: journal,
		async:   async,
		fanIn:   fanIn,
	}
}

// Stop 取消进行中的异步运行并等待退出
func (h *ConsolidationHandler) Stop(ctx context.Context) error {
	return h.async.Stop(ctx)
}

// RegisterRoutes 注册合并调度路由
func (h *ConsolidationHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/consolidation/:wallet/:asset")
	{
		g.GET("/state", h.GetState)
		g.POST("/run", h.Run)
		g.GET("/plan", h.GetPlan)
		g.POST("/batch", h.RunBatch)
		g.GET("/journal", h.GetJournal)
	}
}

// GetState 获取运行状态
//
// GET /api/v1/consolidation/:wallet/:asset/state
func (h *ConsolidationHandler) GetState(c *gin.Context) {
	wallet, asset := pair(c)
	c.JSON(http.StatusOK, gin.H{
		"wallet":  wallet,
		"asset":   asset,
		"running": h.runner.IsRunning(wallet, asset),
		"state":   h.runner.State(wallet, asset),
	})
}

// runBody POST /run 请求体；target_amount 为空表示合并到最少票据数
type runBody struct {
	TargetAmount  string `json:"target_amount"`
	MaxInputs     uint8  `json:"max_inputs"`
	MaxIterations uint32 `json:"max_iterations"`
}

func (b runBody) target() (*types.ConsolidationTarget, error) {
	if b.TargetAmount == "" {
		return nil, nil
	}
	amount, err := types.ParseAmount(b.TargetAmount)
	if err != nil {
		return nil, err
	}
	if b.MaxInputs == 0 {
		return nil, errors.New("max_inputs 必须大于 0")
	}
	return types.NewConsolidationTarget(amount, b.MaxInputs), nil
}

// Run 发起完整合并
//
// POST /api/v1/consolidation/:wallet/:asset/run
//
// 运行不随请求取消：客户端断开后合并继续，结果可通过 /state 与 /journal 查询。
// 异步运行在服务停止时取消。
func (h *ConsolidationHandler) Run(c *gin.Context) {
	wallet, asset := pair(c)

	var body runBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, ErrorCodeInvalidJSON, err.Error())
			return
		}
	}
	target, err := body.target()
	if err != nil {
		badRequest(c, ErrorCodeInvalidRequest, err.Error())
		return
	}

	req := consolidation.RunRequest{
		Wallet:        wallet,
		Asset:         asset,
		Target:        target,
		MaxIterations: body.MaxIterations,
	}
	ctx := context.WithoutCancel(c.Request.Context())

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if h.runner.IsRunning(wallet, asset) {
			writeError(c, types.NewConsolidationError(types.ErrorKindConcurrentRunRejected, wallet, asset, 0, nil), nil)
			return
		}
		started := h.async.Go(func(runCtx context.Context) {
			if _, err := h.runner.Run(runCtx, req); err != nil {
				h.logger.Warn("async consolidation run failed",
					zap.String("wallet", string(wallet)),
					zap.String("asset", string(asset)),
					zap.Error(err))
			}
		})
		if !started {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down", "code": ErrorCodeServiceUnavailable})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "wallet": wallet, "asset": asset})
		return
	}

	summary, err := h.runner.Run(ctx, req)
	if err != nil {
		var extra gin.H
		if summary != nil {
			extra = gin.H{"summary": summary}
		}
		writeError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetPlan 计算分层合并计划
//
// GET /api/v1/consolidation/:wallet/:asset/plan?fan_in=3
func (h *ConsolidationHandler) GetPlan(c *gin.Context) {
	wallet, asset := pair(c)

	fanIn := h.fanIn
	if raw := c.Query("fan_in"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 2 {
			badRequest(c, ErrorCodeInvalidRequest, "fan_in 必须是 ≥2 的整数")
			return
		}
		fanIn = v
	}

	notes, err := h.scanner.ScanNotes(c.Request.Context(), wallet, asset)
	if err != nil {
		h.logger.Error("scan notes for plan failed", zap.Error(err))
		writeError(c, types.NewConsolidationError(types.ErrorKindLedgerSyncFailed, wallet, asset, 0, err), nil)
		return
	}

	plan := planner.BuildLayerPlan(wallet, asset, notes, fanIn)
	c.JSON(http.StatusOK, gin.H{
		"plan":        plan,
		"note_count":  len(notes),
		"notes_after": planner.NotesAfter(len(notes), plan),
	})
}

// batchBody POST /batch 请求体
type batchBody struct {
	Plan  *types.ConsolidationPlan `json:"plan" binding:"required"`
	Index int                      `json:"index"`
}

// RunBatch 执行计划中的单个批次
//
// POST /api/v1/consolidation/:wallet/:asset/batch
func (h *ConsolidationHandler) RunBatch(c *gin.Context) {
	wallet, asset := pair(c)

	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, ErrorCodeInvalidJSON, err.Error())
		return
	}

	receipt, err := h.runner.RunSingleBatch(context.WithoutCancel(c.Request.Context()), consolidation.SingleBatchRequest{
		Wallet: wallet,
		Asset:  asset,
		Plan:   body.Plan,
		Index:  body.Index,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// GetJournal 查询回执审计日志
//
// GET /api/v1/consolidation/:wallet/:asset/journal?limit=50&run_id=...
// run_id=latest 返回最近一次写入记录的运行。
func (h *ConsolidationHandler) GetJournal(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "journal not enabled",
			"code":  ErrorCodeServiceUnavailable,
		})
		return
	}
	wallet, asset := pair(c)
	ctx := c.Request.Context()

	var (
		entries []journal.Entry
		err     error
	)
	switch runID := c.Query("run_id"); runID {
	case "latest":
		entries, err = h.journal.Latest(ctx, wallet, asset)
	case "":
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
				badRequest(c, ErrorCodeInvalidRequest, "limit 必须是非负整数")
				return
			}
		}
		entries, err = h.journal.List(ctx, wallet, asset, limit)
	default:
		entries, err = h.journal.Run(ctx, wallet, asset, runID)
	}
	if err != nil {
		h.logger.Error("read journal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": ErrorCodeInternalError})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
