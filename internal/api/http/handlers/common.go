// Package handlers 提供合并调度运维 API 的 HTTP 处理器
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/consolidator/pkg/types"
)

// 通用错误代码
const (
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"
	ErrorCodeInvalidJSON        = "INVALID_JSON"
	ErrorCodeInternalError      = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeNotFound           = "NOT_FOUND"
)

// errorCode 合并错误分类对应的错误代码（CONCURRENT_RUN_REJECTED 等）
func errorCode(kind types.ErrorKind) string {
	return strings.ToUpper(kind.String())
}

// statusForError 把合并调度错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConcurrentRunRejected), errors.Is(err, types.ErrPlanStale):
		return http.StatusConflict
	case errors.Is(err, types.ErrMergeSubmissionFailed), errors.Is(err, types.ErrLedgerSyncFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError 统一错误响应：{"error": ..., "code": ...}，extra 中的字段合并到响应体
func writeError(c *gin.Context, err error, extra gin.H) {
	code := ErrorCodeInternalError
	if kind := types.KindOf(err); kind != types.ErrorKindUnknown {
		code = errorCode(kind)
	}
	body := gin.H{"error": err.Error(), "code": code}
	for k, v := range extra {
		body[k] = v
	}
	_ = c.Error(err)
	c.JSON(statusForError(err), body)
}

// badRequest 参数错误
func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": code})
}

// pair 从路径参数读取 (钱包, 资产)
func pair(c *gin.Context) (types.WalletID, types.AssetID) {
	return types.WalletID(c.Param("wallet")), types.AssetID(c.Param("asset"))
}
