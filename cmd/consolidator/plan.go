package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/consolidator/internal/app"
	"github.com/weisyn/consolidator/internal/core/consolidation/planner"
	"github.com/weisyn/consolidator/pkg/types"
)

var planFlags struct {
	wallet string
	asset  string
	fanIn  int
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "打印分层合并计划",
	Long:  "扫描当前票据并按扇入分层生成合并计划，只打印不提交",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, err := loadConfig(true)
		if err != nil {
			return err
		}
		if appConfig.Monitor != nil {
			appConfig.Monitor.Enabled = types.BoolPtr(false)
		}
		useEphemeralStorage(appConfig)

		application, err := app.BootstrapApp(app.WithAppConfig(appConfig), app.WithoutAPI())
		if err != nil {
			return err
		}
		defer func() { _ = application.Stop() }()

		comps := application.Components()
		wallet := types.WalletID(planFlags.wallet)
		asset := types.AssetID(planFlags.asset)

		fanIn := planFlags.fanIn
		if fanIn == 0 {
			fanIn = comps.Service.FanIn()
		}
		if fanIn < 2 {
			return fmt.Errorf("fan-in 必须 ≥ 2，当前为 %d", fanIn)
		}

		notes, err := comps.Scanner.ScanNotes(context.Background(), wallet, asset)
		if err != nil {
			return err
		}

		plan := planner.BuildLayerPlan(wallet, asset, notes, fanIn)
		if len(plan.Batches) == 0 {
			pterm.Info.Printfln("%s/%s 共 %d 张票据，无需合并", wallet, asset, len(notes))
			return nil
		}

		data := pterm.TableData{{"批次", "输入数", "金额合计"}}
		for i, batch := range plan.Batches {
			sum := batch.Sum()
			data = append(data, []string{strconv.Itoa(i), strconv.Itoa(len(batch)), sum.Dec()})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render(); err != nil {
			return err
		}
		pterm.Info.Printfln("扇入 %d：%d 张票据 → %d 张（%d 个批次）",
			fanIn, len(notes), planner.NotesAfter(len(notes), plan), len(plan.Batches))
		return nil
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.wallet, "wallet", "demo", "钱包标识")
	f.StringVar(&planFlags.asset, "asset", "USDC", "资产标识")
	f.IntVar(&planFlags.fanIn, "fan-in", 0, "每批最多输入数（0 使用配置值）")
}
