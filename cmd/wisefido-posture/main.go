package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wisefido-posture/internal/config"
	"wisefido-posture/internal/logger"
	"wisefido-posture/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-posture")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 获取租户ID
	tenantID := os.Getenv("TENANT_ID")
	if tenantID == "" {
		log.Fatal("TENANT_ID environment variable is required")
	}

	// 4. 创建服务
	postureService, err := service.NewPostureService(cfg, log, tenantID)
	if err != nil {
		log.Fatal("Failed to create posture service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务
	if err := postureService.Start(ctx); err != nil {
		log.Fatal("Failed to start posture service", zap.Error(err))
	}

	// 6. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	if err := postureService.Stop(); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}

	log.Info("Posture service stopped")
}
