package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jukebox/config"
	"jukebox/framework"
	"jukebox/logger"
	"jukebox/status"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := framework.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	if cfg.StatusAddr != "" {
		srv := status.NewServer(cfg.StatusAddr, bot.Player, log.Named("status"))
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Bot exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Bot stopped")
}
