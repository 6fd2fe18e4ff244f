package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
)

// ActiveRunCounter 当前运行数（*runner.Service 满足）
type ActiveRunCounter interface {
	ActiveRuns() int
}

// HealthHandler 健康检查端点处理器
//
// - /health: 完整状态（运行数、监控器状态、运行时长）
// - /health/live: 存活检查
type HealthHandler struct {
	startTime time.Time
	runs      ActiveRunCounter
	monitor   consolidation.Monitor
}

// NewHealthHandler 创建健康检查处理器；runs 与 monitor 可为 nil
func NewHealthHandler(runs ActiveRunCounter, monitor consolidation.Monitor) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), runs: runs, monitor: monitor}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.GetHealth)
	r.GET("/health/live", h.GetLiveness)
}

// GetHealth GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	components := gin.H{}
	if h.runs != nil {
		components["active_runs"] = h.runs.ActiveRuns()
	}
	if h.monitor != nil {
		components["monitor_enabled"] = h.monitor.Enabled()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(h.startTime).Truncate(time.Second).String(),
		"components": components,
	})
}

// GetLiveness GET /health/live
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
