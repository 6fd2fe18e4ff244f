// Package app 负责装配并启动票据合并调度器
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/weisyn/consolidator/internal/config"
	"github.com/weisyn/consolidator/internal/core/consolidation/journal"
	"github.com/weisyn/consolidator/internal/core/consolidation/monitor"
	"github.com/weisyn/consolidator/internal/core/consolidation/runner"
	"github.com/weisyn/consolidator/internal/core/notes"
	configiface "github.com/weisyn/consolidator/pkg/interfaces/config"
	consolidationIface "github.com/weisyn/consolidator/pkg/interfaces/consolidation"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 60 * time.Second
)

// Components 启动后导出的核心组件（CLI 直接调用）
type Components struct {
	Service  *runner.Service
	Monitor  *monitor.Monitor
	Ledger   *notes.SimLedger
	Scanner  consolidationIface.NoteScanner
	Journal  *journal.Journal // 未启用审计日志时为 nil
	Provider configiface.Provider
}

// App 应用接口
type App interface {
	// Components 核心组件
	Components() Components
	// Stop 停止应用
	Stop() error
	// Wait 阻塞直到收到 SIGINT/SIGTERM，然后停止应用
	Wait()
}

type internalApp struct {
	bootstrap *Bootstrap
}

// BootstrapApp 创建并启动应用
func BootstrapApp(opts ...Option) (App, error) {
	o := newOptions(opts...)
	if o.appConfig == nil && o.configFilePath != "" {
		appConfig, err := config.LoadFile(o.configFilePath)
		if err != nil {
			return nil, err
		}
		o.appConfig = appConfig
	}

	bootstrap := NewBootstrap(o)
	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := bootstrap.StartApp(ctx); err != nil {
		return nil, err
	}
	return &internalApp{bootstrap: bootstrap}, nil
}

func (a *internalApp) Components() Components {
	return a.bootstrap.deps
}

func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

func (a *internalApp) Wait() {
	sig := WaitForSignal()
	fmt.Printf("\n🛑 收到信号 %v，正在优雅退出...\n", sig)
	if err := a.Stop(); err != nil {
		fmt.Printf("⚠️ 停止应用时出错: %v\n", err)
	}
}

// WaitForSignal 等待退出信号
func WaitForSignal() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	return <-signals
}
