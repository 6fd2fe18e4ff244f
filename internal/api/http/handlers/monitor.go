package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/consolidator/pkg/interfaces/consolidation"
)

// MonitorHandler 自动合并监控端点处理器
type MonitorHandler struct {
	logger  *zap.Logger
	monitor consolidation.Monitor
}

// NewMonitorHandler 创建监控处理器
func NewMonitorHandler(logger *zap.Logger, monitor consolidation.Monitor) *MonitorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorHandler{logger: logger, monitor: monitor}
}

// RegisterRoutes 注册监控路由
func (h *MonitorHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/monitor")
	{
		g.GET("", h.GetStatus)
		g.POST("/enable", h.Enable)
		g.POST("/disable", h.Disable)
		g.POST("/check", h.Check)
	}
}

// GetStatus GET /api/v1/monitor
func (h *MonitorHandler) GetStatus(c *gin.Context) {
	body := gin.H{"enabled": h.monitor.Enabled()}
	if last := h.monitor.LastEvaluation(); !last.IsZero() {
		body["last_evaluation"] = last
	}
	c.JSON(http.StatusOK, body)
}

// Enable POST /api/v1/monitor/enable
func (h *MonitorHandler) Enable(c *gin.Context) {
	if err := h.monitor.Enable(c.Request.Context()); err != nil {
		h.logger.Error("enable monitor failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": ErrorCodeInternalError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

// Disable POST /api/v1/monitor/disable
func (h *MonitorHandler) Disable(c *gin.Context) {
	h.monitor.Disable()
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

// Check POST /api/v1/monitor/check
//
// 立即评估所有监控对；监控器未启用时只返回结果，不触发回调。
func (h *MonitorHandler) Check(c *gin.Context) {
	advisories, err := h.monitor.CheckNow(c.Request.Context())
	if err != nil {
		h.logger.Error("monitor check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": ErrorCodeInternalError})
		return
	}
	advised := 0
	for _, a := range advisories {
		if a.Advised() {
			advised++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"advisories": advisories,
		"evaluated":  len(advisories),
		"advised":    advised,
	})
}
