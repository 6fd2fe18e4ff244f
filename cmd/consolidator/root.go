package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/consolidator/configs"
	"github.com/weisyn/consolidator/internal/config"
	"github.com/weisyn/consolidator/pkg/types"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigFile string // 配置文件路径
	Verbose    bool   // 详细日志输出到控制台
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "consolidator",
	Short: "机密票据合并调度器",
	Long: `consolidator - 机密余额票据合并调度器

将同一钱包、同一资产下的碎片化票据分轮合并为更少的票据:
- 每轮合并最多消费"扇入"张票据，合并后重新扫描账本
- 支持合并到最少票据数，或合并到目标金额可在输入上限内支付
- 可选的后台监控按碎片化评分给出合并建议并自动触发合并`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "configs/consolidator.json", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "详细日志输出到控制台")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 读取配置文件；一次性命令默认把日志压到 error 级别，避免干扰终端输出
//
// 未显式指定 --config 且默认路径不存在时使用内置配置。
func loadConfig(quiet bool) (*types.AppConfig, error) {
	var appConfig *types.AppConfig
	if _, statErr := os.Stat(globalFlags.ConfigFile); errors.Is(statErr, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		appConfig = &types.AppConfig{}
		if err := json.Unmarshal(configs.GetDefaultConfig(), appConfig); err != nil {
			return nil, fmt.Errorf("解析内置配置失败: %w", err)
		}
	} else {
		loaded, err := config.LoadFile(globalFlags.ConfigFile)
		if err != nil {
			return nil, err
		}
		appConfig = loaded
	}
	if appConfig.Log == nil {
		appConfig.Log = &types.UserLogConfig{}
	}
	switch {
	case globalFlags.Verbose:
		appConfig.Log.Level = types.StringPtr("debug")
		appConfig.Log.FilePath = types.StringPtr("stderr")
	case quiet:
		appConfig.Log.Level = types.StringPtr("error")
	}
	return appConfig, nil
}

// useEphemeralStorage 一次性命令使用内存 BadgerDB，避免与常驻服务争用数据目录锁
func useEphemeralStorage(appConfig *types.AppConfig) {
	if appConfig.Storage == nil {
		appConfig.Storage = &types.UserStorageConfig{}
	}
	if appConfig.Storage.Badger == nil {
		appConfig.Storage.Badger = &types.UserBadgerConfig{}
	}
	appConfig.Storage.Badger.InMemory = types.BoolPtr(true)
}
