package tunnel

import (
	"fmt"
	"time"

	"frp-manager/cmd/root"
	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/utils"
	"frp-manager/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var (
	listOwner string
	listNode  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tunnel configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := fetchRecords()
		if err != nil {
			return err
		}
		printRecords(filterRecords(records, listOwner, listNode))
		return nil
	},
}

/**
 * 优先从运行中的服务获取配置列表
 * @returns {[]models.ConfigRecord} 配置列表
 * @description
 * - 服务不可用时直接扫描配置目录，此时状态均为stopped
 */
func fetchRecords() ([]models.ConfigRecord, error) {
	if client, err := root.NewClient(); err == nil {
		defer client.Close()
		resp, err := client.Get("/api/configs", nil)
		if err == nil {
			var records []models.ConfigRecord
			if err := resp.Decode(&records); err != nil {
				return nil, err
			}
			return records, nil
		}
		logger.Debugf("Server unavailable, scanning config dir: %v", err)
	}

	users, err := root.OpenUsers()
	if err != nil {
		return nil, err
	}
	store := services.NewConfigStore(config.Config.Frp.ConfigDir, users, services.NewProcessRegistry())
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store.List(), nil
}

func filterRecords(records []models.ConfigRecord, owner string, node int) []models.ConfigRecord {
	var out []models.ConfigRecord
	for _, r := range records {
		if owner != "" && r.OwnerName != owner {
			continue
		}
		if node != 0 && r.NodeID != node {
			continue
		}
		out = append(out, r)
	}
	return out
}

/**
 *	Fields displayed in list format
 */
type Tunnel_Columns struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	Node       int    `json:"node"`
	RemotePort int    `json:"remote_port"`
	Status     string `json:"status"`
	Proxies    int    `json:"proxies"`
	UpdateTime string `json:"update_time"`
}

func printRecords(records []models.ConfigRecord) {
	if len(records) == 0 {
		fmt.Println("No tunnels")
		return
	}
	var dataList []*orderedmap.OrderedMap
	for _, r := range records {
		row := Tunnel_Columns{
			ID:         r.ID,
			Name:       r.Name,
			Owner:      r.OwnerName,
			Node:       r.NodeID,
			RemotePort: r.RemotePort,
			Status:     string(r.Status),
			Proxies:    len(r.Proxies),
			UpdateTime: r.UpdatedAt.Format(time.RFC3339),
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
}

func init() {
	listCmd.Flags().SortFlags = false
	listCmd.Flags().StringVarP(&listOwner, "owner", "o", "", "Only tunnels of this user")
	listCmd.Flags().IntVarP(&listNode, "node", "n", 0, "Only tunnels on this node")
	tunnelCmd.AddCommand(listCmd)
}
