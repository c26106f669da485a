package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexjbarnes/apiconfig/config"
)

func runWatch(ctx context.Context, settings *config.Settings, logger *slog.Logger, args []string, w io.Writer) error {
	flags, err := parseShowFlags("watch", args)
	if err != nil {
		return err
	}

	m, err := newManager(settings, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	cfg, err := m.LoadClientConfig(ctx)
	if err != nil {
		return err
	}
	if err := render(w, flags.format, cfg.Redacted()); err != nil {
		return err
	}

	logger.Info("watching for config changes", slog.Int("providers", len(m.Providers())))

	err = m.Watch(ctx, func(values map[string]any, err error) {
		if err != nil {
			logger.Error("config reload failed", slog.String("error", err.Error()))
			return
		}
		cfg, err := config.NewClientConfig(values)
		if err != nil {
			logger.Error("invalid config after reload", slog.String("error", err.Error()))
			return
		}
		if err := render(w, flags.format, cfg.Redacted()); err != nil {
			logger.Error("writing config", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("watching config: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
