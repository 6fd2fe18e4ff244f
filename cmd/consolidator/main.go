// consolidator 票据合并调度器命令行入口
//
// 子命令:
//
//	serve     启动常驻服务（HTTP API + 自动合并监控）
//	simulate  在内置模拟账本上执行一次完整合并并展示进度
//	plan      打印分层合并计划（不提交）
//	version   显示版本信息
package main

func main() {
	Execute()
}
