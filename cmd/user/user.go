package user

import (
	"fmt"
	"time"

	"frp-manager/cmd/root"
	"frp-manager/internal/models"
	"frp-manager/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local users (list, add, passwd)",
	Long: `Manage the user database directly. A running server keeps its own copy
in memory, use the HTTP API while the server is up.`,
}

type User_Columns struct {
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Tunnels     int    `json:"tunnels"`
	TunnelLimit int    `json:"tunnel_limit"`
	CreateTime  string `json:"create_time"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := root.OpenUsers()
		if err != nil {
			return err
		}
		var rows []*orderedmap.OrderedMap
		for _, u := range users.FindAll() {
			row, _ := utils.StructToOrderedMap(User_Columns{
				UserID:      u.UserID,
				Username:    u.Username,
				Role:        u.Role,
				Tunnels:     len(u.Tunnels),
				TunnelLimit: u.TunnelLimit,
				CreateTime:  u.CreatedAt.Format(time.RFC3339),
			})
			rows = append(rows, row)
		}
		utils.PrintFormat(rows)
		return nil
	},
}

var optAdmin bool

var addCmd = &cobra.Command{
	Use:   "add <username> <password>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := root.OpenUsers()
		if err != nil {
			return err
		}
		role := models.RoleUser
		if optAdmin {
			role = models.RoleAdmin
		}
		u, err := users.Create(args[0], args[1], role, "cli")
		if err != nil {
			return err
		}
		fmt.Printf("User '%s' created (id: %s, role: %s)\n", u.Username, u.ID, u.Role)
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <username> <new-password>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := root.OpenUsers()
		if err != nil {
			return err
		}
		u, ok := users.FindByUsername(args[0])
		if !ok {
			return fmt.Errorf("user '%s' not found", args[0])
		}
		if err := users.SetPassword(u.ID, args[1]); err != nil {
			return err
		}
		fmt.Printf("Password of '%s' reset\n", u.Username)
		return nil
	},
}

func init() {
	addCmd.Flags().BoolVar(&optAdmin, "admin", false, "Create an administrator")
	userCmd.AddCommand(listCmd, addCmd, passwdCmd)
	root.RootCmd.AddCommand(userCmd)
}
