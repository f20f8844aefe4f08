package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/harness"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	serverURL := flag.String("server", "", "服务器地址，覆盖配置")
	count := flag.Int("count", 0, "机器人数量，覆盖配置")
	timeout := flag.Duration("timeout", 2*time.Minute, "整个运行的超时")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *count > 0 {
		cfg.Bots.Count = *count
	}
	logger.SetDebug(cfg.Client.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	opts := harness.OptionsFromConfig(cfg)
	if cfg.Redis.Enabled {
		store, err := storage.Open(ctx, &cfg.Redis)
		if err != nil {
			log.Printf("连接 Redis 失败，只在本地记录日志: %v", err)
		} else {
			defer func() { _ = store.Close() }()
			opts.Journal = store
			opts.Snapshots = store
		}
	}

	h, err := harness.New(opts)
	if err != nil {
		log.Fatalf("创建机器人失败: %v", err)
	}
	defer h.Close()

	if cfg.Bots.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Bots.StatusAddr,
			Handler:           h.Handler(os.Stderr),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.LogError("status server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.LogInfo("status endpoint listening on %s (run %s)", cfg.Bots.StatusAddr, h.RunID())
	}

	if err := h.Run(ctx); err != nil {
		logger.LogError("run failed: %v", err)
		os.Exit(1)
	}
}
