package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ndbaker1/BONK/internal/client"
	"github.com/ndbaker1/BONK/internal/config"
	"github.com/ndbaker1/BONK/internal/logger"
	bonkmcp "github.com/ndbaker1/BONK/internal/mcp"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config YAML file")
	serverURL := flag.String("server", "", "game server URL, overrides config")
	settle := flag.Duration("settle", 0, "how long an action waits for the server's reply")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}

	// stdout 留给 MCP 协议
	if err := logger.Init("mcp"); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
	}
	defer logger.Close()
	logger.SetDebug(cfg.Client.Debug)

	c, err := client.New(client.OptionsFromConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	s := server.NewMCPServer("bonk", "1.0.0")
	bonkmcp.NewTools(c, *settle).Register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
