package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"frp-manager/cmd/root"
	"frp-manager/controllers"
	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/middleware"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var optListen string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Run: func(cmd *cobra.Command, args []string) {
		if optListen != "" {
			config.Config.Server.Address = optListen
		}
		if err := startServer(&config.Config); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Build gin engine with all controllers registered
 * @param {*services.Server} server - Server holding all services
 * @returns {*gin.Engine} Router
 */
func NewRouter(server *services.Server) *gin.Engine {
	cfg := server.Config()
	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = logger.Writer()
	gin.DefaultErrorWriter = logger.Writer()

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(middleware.MetricsMiddleware())

	controllers.NewAPIController(server).RegisterRoutes(router)
	controllers.NewAuthController(server).RegisterRoutes(router)
	controllers.NewConfigController(server).RegisterRoutes(router)
	controllers.NewUserController(server).RegisterRoutes(router)
	controllers.NewNodeController(server).RegisterRoutes(router)
	controllers.NewWSController(server).RegisterRoutes(router)

	// 前端构建产物
	if cfg.Server.StaticDir != "" {
		if _, err := os.Stat(cfg.Server.StaticDir); err == nil {
			router.Static("/app", cfg.Server.StaticDir)
			router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/app/") })
		} else {
			logger.Warnf("Static dir '%s' not found: %v", cfg.Server.StaticDir, err)
		}
	}
	return router
}

/**
 * Start HTTP server and block until SIGINT/SIGTERM
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {error} Startup error
 * @description
 * - 退出前停止全部frpc进程
 */
func startServer(cfg *config.AppConfig) error {
	server, err := services.NewServer(cfg, nil)
	if err != nil {
		return err
	}
	if err := server.Init(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go server.StartWatching(ctx)

	listeners, err := CreateListeners(ParseListenAddrs(cfg.Server.Address))
	if len(listeners) == 0 {
		if err == nil {
			err = errors.New("no listen address")
		}
		return fmt.Errorf("create listeners: %w", err)
	}

	httpServer := &http.Server{
		Handler:           NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Serve on %s failed: %v", l.Addr(), err)
			}
		}(l)
	}
	logger.Infof("frp-manager %s started", services.Version)

	<-ctx.Done()
	logger.Info("Shutting down...")
	server.Shutdown()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	wg.Wait()
	return nil
}

func init() {
	serverCmd.Flags().StringVarP(&optListen, "listen", "l", "", "Listen address, overrides server.address")
	root.RootCmd.AddCommand(serverCmd)
}
