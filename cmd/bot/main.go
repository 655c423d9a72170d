package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"festpost/internal/catalog"
	"festpost/internal/config"
	"festpost/internal/handlers"
	"festpost/internal/httpclient"
	"festpost/internal/logging"
	"festpost/internal/poster"
	"festpost/internal/provider"
	"festpost/internal/store"
	"festpost/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, closeLog := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error("bot error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		return err
	}

	gen, err := provider.New(cfg, httpClient, logger)
	if err != nil {
		return err
	}

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Service: poster.NewService(poster.Options{
			Catalog:        cat,
			Provider:       gen,
			Store:          store.New(),
			Logger:         logger,
			MaxPromptRunes: cfg.MaxPromptRunes,
		}),
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bot started", "username", tg.Username(), "provider", gen.Name())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	var g errgroup.Group
	g.SetLimit(cfg.MaxConcurrent)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return nil
			}

			g.Go(func() error {
				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
				return nil
			})
		}
	}
}
