package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/consolidator/internal/app"
	consolidationIface "github.com/weisyn/consolidator/pkg/interfaces/consolidation"
	"github.com/weisyn/consolidator/pkg/types"
)

var simulateFlags struct {
	wallet        string
	asset         string
	amounts       []string
	target        string
	maxInputs     uint8
	maxIterations uint32
	settleDelay   string
}

// defaultSimAmounts 未配置种子时使用的演示票据
var defaultSimAmounts = []string{"1", "2", "3", "5", "8", "13", "21", "34", "55", "89"}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "在模拟账本上执行一次合并",
	Long: `使用内置模拟账本执行一次完整的合并运行并实时展示进度。

示例:
  consolidator simulate --amounts 1,2,4,8,16
  consolidator simulate --amounts 10,10,10,500 --target 500 --max-inputs 1`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateFlags.wallet, "wallet", "demo", "钱包标识")
	f.StringVar(&simulateFlags.asset, "asset", "USDC", "资产标识")
	f.StringSliceVar(&simulateFlags.amounts, "amounts", nil, "初始票据金额（逗号分隔，覆盖配置文件中的种子）")
	f.StringVar(&simulateFlags.target, "target", "", "定向合并目标金额（为空表示合并到最少票据数）")
	f.Uint8Var(&simulateFlags.maxInputs, "max-inputs", 1, "定向合并时支付允许的最多输入数")
	f.Uint32Var(&simulateFlags.maxIterations, "max-iterations", 0, "最大合并轮数（0 使用配置值）")
	f.StringVar(&simulateFlags.settleDelay, "settle-delay", "", "改用固定等待的账本同步时间（为空时沿用配置的同步方式）")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	appConfig, err := loadConfig(true)
	if err != nil {
		return err
	}

	wallet := types.WalletID(simulateFlags.wallet)
	asset := types.AssetID(simulateFlags.asset)

	req := consolidationIface.RunRequest{
		Wallet:        wallet,
		Asset:         asset,
		MaxIterations: simulateFlags.maxIterations,
	}
	if simulateFlags.target != "" {
		amount, err := types.ParseAmount(simulateFlags.target)
		if err != nil {
			return err
		}
		req.Target = types.NewConsolidationTarget(amount, simulateFlags.maxInputs)
	}

	prepareSimulation(appConfig, wallet, asset)

	application, err := app.BootstrapApp(app.WithAppConfig(appConfig), app.WithoutAPI())
	if err != nil {
		return err
	}
	defer func() { _ = application.Stop() }()

	comps := application.Components()
	ctx := context.Background()

	before, err := comps.Scanner.ScanNotes(ctx, wallet, asset)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Printfln("初始票据 %s/%s", wallet, asset)
	renderNotes(before)

	bar := &progressBar{}
	req.Observer = consolidationIface.ProgressFunc(bar.OnProgress)

	summary, runErr := comps.Service.Run(ctx, req)
	bar.stop()

	if summary != nil {
		pterm.DefaultSection.Println("运行摘要")
		renderSummary(summary)
	}
	if runErr != nil {
		pterm.Error.Println(runErr.Error())
		return runErr
	}

	after, err := comps.Scanner.ScanNotes(ctx, wallet, asset)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("合并后票据")
	renderNotes(after)
	return nil
}

// prepareSimulation 覆盖模拟器种子，按需改为固定等待同步
func prepareSimulation(appConfig *types.AppConfig, wallet types.WalletID, asset types.AssetID) {
	if appConfig.Simulator == nil {
		appConfig.Simulator = &types.UserSimulatorConfig{}
	}
	amounts := simulateFlags.amounts
	if len(amounts) == 0 && len(appConfig.Simulator.Seeds) == 0 {
		amounts = defaultSimAmounts
	}
	if len(amounts) > 0 {
		appConfig.Simulator.Seeds = []types.UserSimNoteSeeds{
			{Wallet: string(wallet), Asset: string(asset), Amounts: amounts},
		}
	}

	if appConfig.Consolidation == nil {
		appConfig.Consolidation = &types.UserConsolidationConfig{}
	}
	if simulateFlags.settleDelay != "" {
		appConfig.Consolidation.SettleMode = types.StringPtr("fixed")
		appConfig.Consolidation.SettleDelay = types.StringPtr(simulateFlags.settleDelay)
	}

	useEphemeralStorage(appConfig)

	// 一次性命令不启动后台监控与 HTTP 服务
	if appConfig.Monitor != nil {
		appConfig.Monitor.Enabled = types.BoolPtr(false)
	}
}

// progressBar 把进度事件映射到 pterm 进度条；总轮数估算变化时同步调整
type progressBar struct {
	printer *pterm.ProgressbarPrinter
}

func (p *progressBar) OnProgress(event types.ProgressEvent) {
	switch event.Phase {
	case types.PhaseSubmitting:
		total := int(event.TotalEstimate)
		if p.printer == nil {
			printer, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle("合并中").Start()
			if err != nil {
				return
			}
			p.printer = printer
		}
		if total > p.printer.Total {
			p.printer.Total = total
		}
		p.printer.UpdateTitle(fmt.Sprintf("第 %d/%d 轮", event.BatchNumber, event.TotalEstimate))
	case types.PhaseSyncing:
		if p.printer != nil {
			p.printer.Increment()
		}
	}
}

func (p *progressBar) stop() {
	if p.printer != nil {
		_, _ = p.printer.Stop()
	}
}

func renderNotes(notes []types.Note) {
	sorted := types.SortNotes(notes)
	data := pterm.TableData{{"#", "承诺值", "金额"}}
	for i, n := range sorted {
		data = append(data, []string{strconv.Itoa(i + 1), n.Commitment.TerminalString(), n.AmountString()})
	}
	sum := types.SumAmounts(sorted)
	data = append(data, []string{"", "合计", sum.Dec()})
	_ = pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
}

func renderSummary(s *types.RunSummary) {
	data := pterm.TableData{
		{"字段", "值"},
		{"运行ID", s.RunID},
		{"目标", s.Target},
		{"结果", s.Outcome.String()},
		{"终止原因", s.TerminalReason.String()},
		{"完成轮数", fmt.Sprintf("%d (估算 %d)", s.RoundsCompleted, s.TotalBatchesEstimate)},
		{"票据数", fmt.Sprintf("%d → %d", s.InitialNoteCount, s.FinalNoteCount)},
		{"耗时", s.Duration().String()},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
}
