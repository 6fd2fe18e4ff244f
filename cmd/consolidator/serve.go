package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/consolidator/internal/app"
	"github.com/weisyn/consolidator/internal/app/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动合并调度服务",
	Long:  "启动 HTTP API 与自动合并监控，直到收到 SIGINT/SIGTERM",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, err := loadConfig(false)
		if err != nil {
			return err
		}

		application, err := app.BootstrapApp(app.WithAppConfig(appConfig))
		if err != nil {
			return err
		}

		comps := application.Components()
		api := comps.Provider.GetAPI()
		pterm.Success.Printfln("consolidator %s 已启动", version.Version)
		if api.Enabled {
			pterm.Info.Printfln("HTTP API: http://%s", api.Address())
		}
		if comps.Monitor.Enabled() {
			pterm.Info.Printfln("自动合并监控已启用，轮询间隔 %s", comps.Monitor.Options().PollInterval)
		}

		application.Wait()
		return nil
	},
}
