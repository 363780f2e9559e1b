package tunnel

import (
	"fmt"

	"frp-manager/cmd/root"
	"frp-manager/internal/models"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start frpc for a tunnel config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callLifecycle(args[0], "start")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop frpc of a tunnel config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callLifecycle(args[0], "stop")
	},
}

/**
 * 通过服务接口启动或停止隧道
 * @param {string} id - 配置ID
 * @param {string} action - start/stop
 * @returns {error} 服务不可用或返回失败
 */
func callLifecycle(id, action string) error {
	client, err := root.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Post(fmt.Sprintf("/api/configs/%s/%s", id, action), nil)
	if err != nil {
		return fmt.Errorf("frp-manager server not reachable: %w", err)
	}
	var ev models.StatusEvent
	if err := resp.Decode(&ev); err != nil {
		return err
	}
	fmt.Printf("Tunnel %s is %s\n", ev.ID, ev.Status)
	return nil
}

func init() {
	tunnelCmd.AddCommand(startCmd)
	tunnelCmd.AddCommand(stopCmd)
}
