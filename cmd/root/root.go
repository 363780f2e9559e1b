package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:          "frp-manager",
	Short:        "frp隧道管理控制台",
	Long:         `frp-manager管理多用户的frpc配置文件、启动停止frpc进程，并通过HTTP和WebSocket提供状态和日志`,
	SilenceUsage: true,
}

// 客户端命令连接的服务地址，默认取server.address
var ServerAddress string

func init() {
	RootCmd.PersistentFlags().StringVarP(&ServerAddress, "server", "s", "", "frp-manager server address (host:port or unix:/path)")
}
