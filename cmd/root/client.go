package root

import (
	"fmt"
	"path/filepath"
	"strings"

	"frp-manager/internal/config"
	"frp-manager/internal/rpc"
	"frp-manager/services"
)

// 客户端命令以该用户身份调用接口，默认是配置中的管理员
var AsUser string

func init() {
	RootCmd.PersistentFlags().StringVar(&AsUser, "as", "", "Act as this user (default: auth.admin_username)")
}

/**
 * OpenUsers 打开本机的用户库
 * @returns {*services.UserStore} 用户库
 */
func OpenUsers() (*services.UserStore, error) {
	cfg := &config.Config
	return services.NewUserStore(filepath.Join(cfg.Directory.Data, "users.json"), cfg.Auth.DefaultTunnelLimit)
}

/**
 * NewClient 创建访问本机服务的客户端
 * @returns {rpc.HTTPClient} 已带上token的客户端
 * @description
 * - 命令行和服务共享jwt_secret和用户库，直接在本地签发token
 */
func NewClient() (rpc.HTTPClient, error) {
	cfg := &config.Config
	users, err := OpenUsers()
	if err != nil {
		return nil, err
	}
	name := AsUser
	if name == "" {
		name = cfg.Auth.AdminUsername
	}
	user, ok := users.FindByUsername(name)
	if !ok {
		return nil, fmt.Errorf("user '%s' not found, start the server once to create the admin", name)
	}
	token, err := services.NewAuthService(users, cfg.Auth.JwtSecret, cfg.Auth.TokenTTL).IssueToken(user)
	if err != nil {
		return nil, err
	}

	address := ServerAddress
	if address == "" {
		address = cfg.Server.Address
	}
	httpCfg := rpc.DefaultHTTPConfig(firstAddress(address))
	httpCfg.Token = token
	return rpc.NewHTTPClient(httpCfg), nil
}

// server.address可能包含多个地址，取第一个
func firstAddress(address string) string {
	first, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(first)
}
