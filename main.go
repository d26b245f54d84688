// @title ExamPrep 后端 API
// @version 1.0
// @description 题库练习与学习资料后端服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"examprep_backend/internal/app"
	"examprep_backend/internal/config"
	"examprep_backend/pkg/configwatcher"
	"examprep_backend/pkg/logger"
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("Database migration finished, exiting")
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	if err := configwatcher.WatchConfig(filepath.Join(*configDir, "config.yaml"), application.ApplyConfig, stop); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}

	application.Run()
}
