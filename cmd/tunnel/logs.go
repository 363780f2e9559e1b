package tunnel

import (
	"fmt"
	"strings"

	"frp-manager/cmd/root"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Print buffered frpc output of a running tunnel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := root.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Get("/api/configs/"+args[0]+"/logs", nil)
		if err != nil {
			return fmt.Errorf("frp-manager server not reachable: %w", err)
		}
		var chunks []string
		if err := resp.Decode(&chunks); err != nil {
			return err
		}
		fmt.Print(strings.Join(chunks, ""))
		return nil
	},
}

func init() {
	tunnelCmd.AddCommand(logsCmd)
}
