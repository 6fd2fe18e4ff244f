// Package api 装配对外运维接口
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/consolidator/internal/api/http"
)

// Module 返回API模块
//
// fx.Invoke 保证即使没有其他组件依赖 *http.Server，服务器也会被构造并随生命周期启动。
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
		fx.Invoke(func(*http.Server) {}),
	)
}
