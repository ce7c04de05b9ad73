package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/adapter/api"
	"github.com/poslane/poslane/internal/adapter/scanner"
	"github.com/poslane/poslane/internal/adapter/storage"
	"github.com/poslane/poslane/internal/adapter/terminal"
	"github.com/poslane/poslane/internal/config"
	"github.com/poslane/poslane/internal/core/service"
	"github.com/poslane/poslane/internal/port"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Embedded store: session + receipt journal.
	store, err := storage.OpenSQLiteAdapter(cfg.StorePath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	client := api.NewClient(cfg.APIEndpoint, cfg.HTTPTimeout, log)

	session := service.NewSessionService(store, client, log)
	if err := session.Load(ctx); err != nil {
		log.Fatalf("restore session: %v", err)
	}

	checkout := service.NewCheckoutService(client, client, session, log).
		WithReceiptJournal(store)

	// The lookup cache is optional; an unreachable redis downgrades to
	// direct lookups rather than blocking the lane.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, lookup cache disabled")
		} else {
			checkout.WithLookupCache(storage.NewRedisAdapter(rdb))
			defer rdb.Close()
		}
	}

	chime := scanner.NewBellChime(os.Stdout)
	scan := service.NewScannerService(scanner.NewZxingDecoder(), chime, log)

	ui := terminal.New(os.Stdin, os.Stdout, session, checkout, scan, log).
		WithReceiptJournal(store)
	if cfg.CameraURL != "" {
		streamURL := cfg.CameraURL
		// The stream request context must outlive the open call: cancelling
		// it tears the stream down. The scan cycle's ctx owns the lifetime.
		ui.WithCamera(func(ctx context.Context) (port.FrameSource, error) {
			return scanner.OpenMJPEGSource(ctx, http.DefaultClient, streamURL)
		})
	}

	log.WithField("api", cfg.APIEndpoint).Info("lane starting")
	if err := ui.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("lane stopped: %v", err)
	}
	log.Info("lane shut down")
}
