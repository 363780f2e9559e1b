package main

import (
	"os"

	_ "frp-manager/cmd"
	"frp-manager/cmd/root"
	"frp-manager/internal/config"
	"frp-manager/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env不存在时忽略，已有的环境变量优先
	_ = godotenv.Load()

	cfgErr := config.Init()

	// 检查是否是服务器模式
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLoggerWithMode(&config.Config.Log, isServerMode)
	if cfgErr != nil {
		logger.Warnf("Load config failed, using defaults: %v", cfgErr)
	}

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
