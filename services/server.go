package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/proc"
)

// Version is set at build time with -ldflags
var Version = "dev"

/**
 * Server 服务端所有组件的集合
 * @description
 * - 所有组件在这里构造一次，再注入给controller，没有包级单例
 */
type Server struct {
	cfg       *config.AppConfig
	startTime time.Time

	Users    *UserStore
	Auth     *AuthService
	Registry *ProcessRegistry
	Store    *ConfigStore
	Frp      *FrpService
	Nodes    *NodeService
	Notice   *NoticeService
	Hub      *WSHub
}

/**
 * Create new server instance with all services
 * @param {config.AppConfig} cfg - Application configuration
 * @param {proc.Launcher} launcher - Process launcher, nil for the os/exec launcher
 * @returns {*Server} Server with every service wired
 * @returns {error} User database could not be opened
 */
func NewServer(cfg *config.AppConfig, launcher proc.Launcher) (*Server, error) {
	if launcher == nil {
		launcher = proc.NewExecLauncher()
	}
	users, err := NewUserStore(filepath.Join(cfg.Directory.Data, "users.json"), cfg.Auth.DefaultTunnelLimit)
	if err != nil {
		return nil, fmt.Errorf("open user database: %w", err)
	}
	registry := NewProcessRegistry()
	store := NewConfigStore(cfg.Frp.ConfigDir, users, registry)
	hub := NewWSHub()

	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		Users:     users,
		Auth:      NewAuthService(users, cfg.Auth.JwtSecret, cfg.Auth.TokenTTL),
		Registry:  registry,
		Store:     store,
		Hub:       hub,
		Nodes:     NewNodeService(cfg.Nodes, store),
		Notice:    NewNoticeService(filepath.Join(cfg.Directory.Data, "notice.md")),
	}
	hub.SetAccess(observerAccess(store))
	s.Frp = NewFrpService(&cfg.Frp, store, registry, launcher, hub)
	return s, nil
}

// Config 返回服务使用的配置
func (s *Server) Config() *config.AppConfig {
	return s.cfg
}

/**
 * Init 创建默认管理员并加载配置记录
 */
func (s *Server) Init() error {
	if _, err := s.Users.EnsureAdmin(s.cfg.Auth.AdminUsername, s.cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	if err := s.Store.Reload(); err != nil {
		return err
	}
	logger.Infof("Loaded %d configs for %d users", len(s.Store.List()), s.Users.Count())
	s.warnDefaultCredentials()
	return nil
}

// warnDefaultCredentials 提示仍在使用内置的jwt密钥或管理员密码
func (s *Server) warnDefaultCredentials() {
	if s.cfg.Auth.JwtSecret == config.DefaultJwtSecret {
		logger.Warn("auth.jwt_secret is the built-in default, tokens can be forged by anyone who knows it")
	}
	if u, ok := s.Users.FindByUsername(s.cfg.Auth.AdminUsername); ok && u.IsAdmin() &&
		s.Users.VerifyPassword(u.ID, config.DefaultAdminPassword) {
		logger.Warnf("Administrator '%s' still uses the default password", u.Username)
	}
}

/**
 * observerAccess 决定ws观察者能否收到某个配置的事件
 * @description
 * - 配置已被删除时只有管理员能收到最后的事件
 */
func observerAccess(store *ConfigStore) AccessFunc {
	return func(caller *models.Caller, configID string) bool {
		rec, ok := store.Get(configID)
		if !ok {
			return caller.IsAdmin()
		}
		return CanAccess(caller, rec)
	}
}

/**
 * StartWatching 监听配置目录，ctx取消时退出
 * @description
 * - frp.watch为false时不启动
 */
func (s *Server) StartWatching(ctx context.Context) {
	if !s.cfg.Frp.Watch {
		logger.Info("Config dir watching is disabled")
		return
	}
	w, err := NewConfigWatcher(s.Store)
	if err != nil {
		logger.Errorf("Create config watcher failed: %v", err)
		return
	}
	if err := w.Run(ctx); err != nil {
		logger.Errorf("Config watcher stopped: %v", err)
	}
}

/**
 * Stop all frpc processes and disconnect observers
 */
func (s *Server) Shutdown() {
	s.Frp.StopAll()
	s.Hub.Close()
}

/**
* Get health check response for the server
* @returns {models.HealthResponse} Returns health check response with server status and metrics
 */
func (s *Server) GetHealthz() models.HealthResponse {
	uptime := time.Since(s.startTime)

	records := s.Store.List()
	running, failed := 0, 0
	for _, r := range records {
		switch r.Status {
		case models.StatusRunning:
			running++
		case models.StatusError:
			failed++
		}
	}

	return models.HealthResponse{
		Version:   Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    uptime.Truncate(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:  GetTotalRequestCount(),
			ErrorRequests:  GetTotalErrorCount(),
			TotalConfigs:   len(records),
			RunningTunnels: running,
			ErrorTunnels:   failed,
			TotalUsers:     s.Users.Count(),
			Observers:      s.Hub.Count(),
		},
	}
}
