package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"frp-manager/internal/env"
	"frp-manager/internal/models"

	"github.com/spf13/viper"
)

// 未配置时使用的凭据，生产环境必须覆盖
const (
	DefaultJwtSecret     = "frp-manager-secret-key"
	DefaultAdminPassword = "admin"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":3001")
 * @property {string} mode - Application mode (debug/release/test)
 * @property {string} static_dir - Prebuilt frontend bundle served at "/", empty disables it
 */
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	Mode      string `mapstructure:"mode"`
	StaticDir string `mapstructure:"static_dir"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Authentication configuration
 * @property {string} jwt_secret - HMAC secret used to sign tokens
 * @property {duration} token_ttl - Token lifetime
 * @property {float} login_rate - Login attempts per second per client IP
 * @property {int} default_tunnel_limit - Tunnel quota of newly created users
 */
type AuthConfig struct {
	JwtSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	AdminUsername      string        `mapstructure:"admin_username"`
	AdminPassword      string        `mapstructure:"admin_password"`
	LoginRate          float64       `mapstructure:"login_rate"`
	LoginBurst         int           `mapstructure:"login_burst"`
	DefaultTunnelLimit int           `mapstructure:"default_tunnel_limit"`
}

/**
 * frpc process configuration
 * @property {string} binary - frpc executable path
 * @property {[]string} args - Command line template, rendered with {{.ConfigPath}}
 * @property {string} config_dir - Root of per-user configuration directories
 * @property {int} log_buffer_chunks - Output chunks kept per running process
 * @property {bool} watch - Reload records when the config directory changes
 */
type FrpConfig struct {
	Binary          string   `mapstructure:"binary"`
	Args            []string `mapstructure:"args"`
	ConfigDir       string   `mapstructure:"config_dir"`
	LogBufferChunks int      `mapstructure:"log_buffer_chunks"`
	Watch           bool     `mapstructure:"watch"`
}

type DirectoryConfig struct {
	Data string `mapstructure:"data"`
	Logs string `mapstructure:"logs"`
}

var ErrNodeNotFound = errors.New("node not found")

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Frp       FrpConfig       `mapstructure:"frp"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Nodes     []models.Node   `mapstructure:"nodes"`
}

/**
 * Load application configuration from YAML file
 * @returns {*AppConfig} Parsed configuration, defaults not yet applied
 * @description
 * - Searches config.yaml in the working directory and the data directory
 * - FRPM_* environment variables override file values (FRPM_AUTH_JWT_SECRET etc.)
 * - A missing file is not an error, only an unreadable one is
 */
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(env.DataDir)
	v.SetEnvPrefix("FRPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("frp.watch", true)
	for _, key := range []string{
		"server.address", "server.mode", "server.static_dir",
		"log.level", "log.path",
		"auth.jwt_secret", "auth.token_ttl", "auth.admin_username", "auth.admin_password",
		"auth.login_rate", "auth.login_burst", "auth.default_tunnel_limit",
		"frp.binary", "frp.config_dir", "frp.log_buffer_chunks", "frp.watch",
		"directory.data", "directory.logs",
	} {
		// AutomaticEnv only covers keys viper already knows about
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var Config AppConfig

/**
 * Fill unset configuration values with defaults
 * @param {*AppConfig} cfg - Configuration to complete in place
 * @returns {*AppConfig} The same configuration
 */
func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":3001"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Directory.Data == "" {
		cfg.Directory.Data = env.DataDir
	}
	if cfg.Directory.Logs == "" {
		cfg.Directory.Logs = filepath.Join(cfg.Directory.Data, "logs")
	}
	if cfg.Auth.JwtSecret == "" {
		cfg.Auth.JwtSecret = DefaultJwtSecret
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = "admin"
	}
	if cfg.Auth.AdminPassword == "" {
		cfg.Auth.AdminPassword = DefaultAdminPassword
	}
	if cfg.Auth.LoginRate <= 0 {
		cfg.Auth.LoginRate = 1
	}
	if cfg.Auth.LoginBurst <= 0 {
		cfg.Auth.LoginBurst = 5
	}
	if cfg.Auth.DefaultTunnelLimit <= 0 {
		cfg.Auth.DefaultTunnelLimit = 5
	}
	if cfg.Frp.Binary == "" {
		cfg.Frp.Binary = "frpc"
	}
	if len(cfg.Frp.Args) == 0 {
		cfg.Frp.Args = []string{"-c", "{{.ConfigPath}}"}
	}
	if cfg.Frp.ConfigDir == "" {
		cfg.Frp.ConfigDir = filepath.Join(cfg.Directory.Data, "configs")
	}
	if cfg.Frp.LogBufferChunks <= 0 {
		cfg.Frp.LogBufferChunks = 1000
	}
	return cfg
}

/**
 * Load configuration and apply defaults into the package level Config
 * @returns {error} Error when the config file exists but cannot be parsed
 */
func Init() error {
	cfg, err := LoadConfig()
	if err != nil {
		collectConfig(&Config)
		return err
	}
	Config = *cfg
	collectConfig(&Config)
	return nil
}

// Defaults returns a configuration holding only default values.
func Defaults() AppConfig {
	var cfg AppConfig
	collectConfig(&cfg)
	return cfg
}

/**
 * Find a configured frps node
 * @param {int} nodeID - Node identifier
 * @returns {*models.Node} Node definition
 * @returns {error} ErrNodeNotFound when no node carries this ID
 */
func (c *AppConfig) FindNode(nodeID int) (*models.Node, error) {
	for i := range c.Nodes {
		if c.Nodes[i].NodeID == nodeID {
			return &c.Nodes[i], nil
		}
	}
	return nil, ErrNodeNotFound
}
