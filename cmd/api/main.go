package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-chat/internal/app"
	"agent-chat/internal/app/api"
	"agent-chat/pkg/config"
)

// shutdownTimeout 收到信号后等待在途对话结束的上限
const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadAPIConfigWithModel()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	bootstrap, err := app.NewBootstrap(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	logger := bootstrap.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := api.NewApp(ctx, bootstrap)
	if err != nil {
		logger.Error("创建 API 应用失败", "error", err)
		os.Exit(1)
	}

	addr := cfg.API.Addr()
	application.Build(addr)
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(addr) }()

	select {
	case <-ctx.Done():
		logger.Info("收到退出信号，开始关闭")
	case err := <-runErr:
		if err != nil {
			logger.Error("API 服务异常退出", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭失败", "error", err)
	}
	logger.Info("API 服务已关闭")
}
