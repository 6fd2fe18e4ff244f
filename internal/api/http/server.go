// Package http 提供合并调度运维 HTTP API
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apiconfig "github.com/weisyn/consolidator/internal/config/api"
	"github.com/weisyn/consolidator/pkg/interfaces/infrastructure/log"
)

// portSearchRange 端口被占用时向上探测的范围
const portSearchRange = 100

// Server HTTP服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	options    *apiconfig.APIOptions
	logger     log.Logger

	addr     string
	serveErr chan error
}

// NewServer 创建服务器（不监听，由 Start 启动）
func NewServer(router *gin.Engine, options *apiconfig.APIOptions, logger log.Logger) *Server {
	return &Server{router: router, options: options, logger: logger}
}

// Addr 实际监听地址（端口可能因冲突漂移）
func (s *Server) Addr() string {
	return s.addr
}

// Handler 返回路由（测试与嵌入使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动HTTP服务器并等待端口就绪
func (s *Server) Start() error {
	if !s.options.Enabled {
		s.infof("[HTTP] API 在配置中被禁用，跳过启动")
		return nil
	}

	port, err := s.handlePortConflict(s.options.Host, s.options.Port)
	if err != nil {
		return fmt.Errorf("端口处理失败: %w", err)
	}
	s.addr = fmt.Sprintf("%s:%d", s.options.Host, port)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.serveErr = make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	if err := s.waitForServerReady(s.addr, 3*time.Second); err != nil {
		return fmt.Errorf("HTTP服务器启动验证失败: %w", err)
	}

	s.infof("[HTTP] ✅ 服务器启动成功 addr=%s", s.addr)
	s.infof("[HTTP] 📡 API端点: http://%s/api/v1/", s.addr)
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if s.options.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.ShutdownTimeout)
		defer cancel()
	}
	s.infof("[HTTP] 正在关闭服务器...")
	return s.httpServer.Shutdown(ctx)
}

// handlePortConflict 端口被占用时向上寻找可用端口
func (s *Server) handlePortConflict(host string, port int) (int, error) {
	if port == 0 || isPortAvailable(host, port) {
		return port, nil
	}
	for candidate := port + 1; candidate <= port+portSearchRange && candidate <= 65535; candidate++ {
		if isPortAvailable(host, candidate) {
			if s.logger != nil {
				s.logger.Warnf("[HTTP] 🔄 端口已自动漂移: %d -> %d", port, candidate)
			}
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("端口 %d 起 %d 个端口均不可用", port, portSearchRange)
}

func isPortAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// waitForServerReady 轮询直到端口可连接或服务协程报错
func (s *Server) waitForServerReady(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case err, ok := <-s.serveErr:
			if ok && err != nil {
				return err
			}
		default:
		}
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("等待 %s 就绪超时", addr)
}

func (s *Server) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

// zapOf 取底层 zap 记录器，未注入时返回 Nop
func zapOf(logger log.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	if zl := logger.GetZapLogger(); zl != nil {
		return zl
	}
	return zap.NewNop()
}
