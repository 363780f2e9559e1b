package tunnel

import (
	"fmt"
	"os"

	"frp-manager/cmd/root"
	"frp-manager/internal/models"
	"frp-manager/internal/rpc"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <id> <file>",
	Short: "Replace the content of a stopped tunnel config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		client, err := root.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		rec, err := editTunnel(client, args[0], string(content))
		if err != nil {
			return err
		}
		fmt.Printf("Tunnel %s (%s) updated\n", rec.ID, rec.Name)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a tunnel config, stopping frpc first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := root.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := deleteTunnel(client, args[0]); err != nil {
			return err
		}
		fmt.Printf("Tunnel %s deleted\n", args[0])
		return nil
	},
}

// editTunnel 运行中的配置会被服务端拒绝(409)
func editTunnel(client rpc.HTTPClient, id, content string) (*models.ConfigRecord, error) {
	resp, err := client.Put("/api/configs/"+id, models.EditConfigRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("frp-manager server not reachable: %w", err)
	}
	var rec models.ConfigRecord
	if err := resp.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func deleteTunnel(client rpc.HTTPClient, id string) error {
	resp, err := client.Delete("/api/configs/" + id)
	if err != nil {
		return fmt.Errorf("frp-manager server not reachable: %w", err)
	}
	return resp.Decode(nil)
}

func init() {
	tunnelCmd.AddCommand(editCmd)
	tunnelCmd.AddCommand(deleteCmd)
}
