package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/lobby-roster/internal/bot"
	"github.com/DoyleJ11/lobby-roster/internal/config"
	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/httpapi"
	"github.com/DoyleJ11/lobby-roster/internal/logging"
	"github.com/DoyleJ11/lobby-roster/internal/sequencer"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/store/memory"
	"github.com/DoyleJ11/lobby-roster/internal/store/postgres"
	"github.com/DoyleJ11/lobby-roster/internal/store/sqlite"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Sessions outlive the signal so in-flight updates finish and the
	// journal drains before exit.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	tg, err := telegram.New(cfg.BotToken, telegram.Options{
		BaseURL:     cfg.TelegramAPI,
		PollTimeout: cfg.PollTimeout,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	svc := service.New(appCtx, st, tg, service.Options{
		Owner:      engine.ActorID(cfg.OwnerID),
		Title:      cfg.CardTitle,
		PendingTTL: cfg.PendingTTL,
		Sequencer: sequencer.Options{
			Attempts:    cfg.SendAttempts,
			Backoff:     cfg.SendBackoff,
			Concurrency: cfg.Concurrency,
		},
		Logger: log,
	})

	restored, err := svc.Restore(ctx)
	if err != nil {
		log.Warn("restore sessions", zap.Error(err))
	}
	log.Info("starting",
		zap.String("mode", cfg.BotMode),
		zap.String("store", cfg.StoreDriver),
		zap.String("addr", cfg.HTTPAddr),
		zap.Int("restored", restored))

	b := bot.New(svc, tg, log)
	routes := httpapi.Options{BaseContext: appCtx, Logger: log}
	if cfg.BotMode == "webhook" {
		routes.WebhookSecret = cfg.WebhookSecret
		routes.Dispatcher = b
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(svc, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		svc.Prompts().Run(gctx, time.Minute)
		return nil
	})
	if cfg.BotMode == "poll" {
		g.Go(func() error {
			if err := tg.DeleteWebhook(gctx); err != nil {
				log.Warn("delete webhook", zap.Error(err))
			}
			err := tg.Run(gctx, func(u telegram.Update) {
				b.Dispatch(appCtx, u)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	log.Info("shutting down")
	b.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := svc.Shutdown(shutdownCtx); serr != nil {
		log.Warn("flush sessions", zap.Error(serr))
	}
	return err
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	default:
		return memory.New(), nil
	}
}
