package main

import (
	"context"
	"flag"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/logger"
	"github.com/ndbaker1/BONK/internal/sound"
	"github.com/ndbaker1/BONK/internal/storage"
	"github.com/ndbaker1/BONK/internal/ui"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	serverURL := flag.String("server", "", "服务器地址，覆盖配置，例如 ws://localhost:8000")
	identity := flag.String("identity", "", "玩家身份")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *identity != "" {
		cfg.Client.Identity = *identity
	}

	// TUI 占用终端，日志写入文件
	if err := logger.Init("client"); err != nil {
		log.Printf("初始化日志失败: %v", err)
	}
	defer logger.Close()
	logger.SetDebug(cfg.Client.Debug)

	opts := client.OptionsFromConfig(cfg)

	if cfg.Client.Sound {
		sm := sound.NewSoundManager()
		if err := sm.Init(); err != nil {
			logger.LogError("初始化音效失败: %v", err)
		} else {
			defer sm.Close()
			opts.Sound = sm
		}
	}

	if cfg.Redis.Enabled {
		store, err := storage.Open(context.Background(), &cfg.Redis)
		if err != nil {
			logger.LogError("连接 Redis 失败，不保存会话快照: %v", err)
		} else {
			defer func() { _ = store.Close() }()
			opts.Store = store
		}
	}

	c, err := client.New(opts)
	if err != nil {
		log.Fatalf("创建客户端失败: %v", err)
	}
	defer c.Close()

	p := tea.NewProgram(ui.NewOnlineModel(c), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.LogError("启动客户端时出错: %v", err)
		log.Printf("启动客户端时出错: %v", err)
		os.Exit(1)
	}
}
