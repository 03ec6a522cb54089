package main

import (
	"log/slog"
	"os"

	"github.com/hallgard/authgate/internal/config"
	"github.com/hallgard/authgate/internal/server"
)

func main() {
	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg); err != nil {
		os.Exit(1)
	}
}
