package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-briefing/internal/app"
	"github.com/samvad-hq/samvad-briefing/internal/config"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "briefing bot start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("briefing bot starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.NewBriefing(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize briefing bot", "error", err.Error())
		return err
	}

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("briefing bot run: %w", err)
	}
	return nil
}
