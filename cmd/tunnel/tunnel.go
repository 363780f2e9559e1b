package tunnel

import (
	"frp-manager/cmd/root"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel operations (list, start/stop, edit, delete, logs)",
	Long:  `Tunnel operations (list, start/stop, edit, delete, logs). Commands other than list need a running server.`,
}

const tunnelExample = `  # list tunnels of all users
  frp-manager tunnel list
  # start tunnel with id 3
  frp-manager tunnel start 3`

func init() {
	root.RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Example = tunnelExample
}
